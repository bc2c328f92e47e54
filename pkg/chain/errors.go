package chain

import "errors"

var (
	// ErrEncode reports a call argument that does not fit the runtime type.
	ErrEncode = errors.New("cannot encode value for runtime type")
	// ErrUnknownCall reports a pallet or call missing from the metadata.
	ErrUnknownCall = errors.New("unknown pallet or call")
	// ErrUnsupportedExtension reports a signed extension that carries data
	// this client does not know how to fill in.
	ErrUnsupportedExtension = errors.New("unsupported signed extension")
	// ErrStaleNonce reports that the account nonce moved on since the
	// transaction was prepared.
	ErrStaleNonce = errors.New("account nonce changed since the transaction was prepared")
	// ErrNode wraps failures talking to the node.
	ErrNode = errors.New("node request failed")
)
