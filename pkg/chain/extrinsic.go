package chain

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"

	"github.com/luxfi/substrate-mpc/pkg/ceremony"
)

// Hash is a 32-byte block or extrinsic hash.
type Hash [32]byte

func (h Hash) Hex() string { return "0x" + hex.EncodeToString(h[:]) }

// UnsignedTransaction is a fully prepared transaction waiting for its group
// signature. Once pinned in a signing session every signer signs Payload and
// the aggregator submits exactly this call.
type UnsignedTransaction struct {
	Intent      ceremony.CallIntent         `cbor:"1,keyasint"`
	Account     ceremony.ThresholdPublicKey `cbor:"2,keyasint"`
	Nonce       uint64                      `cbor:"3,keyasint"`
	Call        []byte                      `cbor:"4,keyasint"`
	Extra       []byte                      `cbor:"5,keyasint"`
	Additional  []byte                      `cbor:"6,keyasint"`
	SpecVersion uint32                      `cbor:"7,keyasint"`
	TxVersion   uint32                      `cbor:"8,keyasint"`
	GenesisHash Hash                        `cbor:"9,keyasint"`
	Payload     ceremony.SignedMessage      `cbor:"10,keyasint"`
}

func (tx *UnsignedTransaction) Marshal() ([]byte, error) {
	return cbor.Marshal(tx)
}

// UnmarshalUnsignedTransaction decodes a pinned transaction and checks that
// its payload matches its parts.
func UnmarshalUnsignedTransaction(data []byte) (*UnsignedTransaction, error) {
	tx := &UnsignedTransaction{}
	if err := cbor.Unmarshal(data, tx); err != nil {
		return nil, fmt.Errorf("decode unsigned transaction: %w", err)
	}
	if !bytes.Equal(tx.Payload, SigningPayload(tx.Call, tx.Extra, tx.Additional)) {
		return nil, fmt.Errorf("%w: pinned payload does not match its call", ceremony.ErrMessageMismatch)
	}
	return tx, nil
}

// SigningPayload is call || extra || additional, replaced by its blake2b-256
// hash when longer than 256 bytes.
func SigningPayload(call, extra, additional []byte) ceremony.SignedMessage {
	payload := make([]byte, 0, len(call)+len(extra)+len(additional))
	payload = append(payload, call...)
	payload = append(payload, extra...)
	payload = append(payload, additional...)
	if len(payload) > 256 {
		h := blake2b.Sum256(payload)
		return h[:]
	}
	return payload
}

// BuildExtrinsic assembles a signed v4 extrinsic, length prefixed:
// 0x84 || address || signature || extra || call.
func BuildExtrinsic(meta *Metadata, tx *UnsignedTransaction, sig ceremony.GroupSignature) ([]byte, error) {
	if len(sig) != 64 {
		return nil, fmt.Errorf("%w: signature is %d bytes", ceremony.ErrInvalidSignature, len(sig))
	}
	if len(tx.Account) != 32 {
		return nil, fmt.Errorf("%w: account key is %d bytes", ErrEncode, len(tx.Account))
	}
	address, err := addressPrefix(meta)
	if err != nil {
		return nil, err
	}
	sigPrefix, err := signaturePrefix(meta)
	if err != nil {
		return nil, err
	}

	var body bytes.Buffer
	body.WriteByte(0x80 | 4)
	body.Write(address)
	body.Write(tx.Account)
	body.Write(sigPrefix)
	body.Write(sig)
	body.Write(tx.Extra)
	body.Write(tx.Call)

	out := EncodeCompact(uint64(body.Len()))
	return append(out, body.Bytes()...), nil
}

// addressPrefix returns the bytes preceding the account id: the Id variant
// index for MultiAddress, nothing for a plain AccountId.
func addressPrefix(meta *Metadata) ([]byte, error) {
	t, err := meta.extrinsicParam("Address")
	if err != nil {
		return []byte{0x00}, nil
	}
	if t.Kind == KindVariant {
		v, ok := t.Variant("Id")
		if !ok {
			return nil, fmt.Errorf("%w: address type %s has no Id variant", ErrEncode, t.PathString())
		}
		return []byte{v.Index}, nil
	}
	return nil, nil
}

// signaturePrefix returns the Ed25519 variant index of MultiSignature, or
// nothing when the runtime takes a bare signature.
func signaturePrefix(meta *Metadata) ([]byte, error) {
	t, err := meta.extrinsicParam("Signature")
	if err != nil {
		return []byte{0x00}, nil
	}
	if t.Kind == KindVariant {
		v, ok := t.Variant("Ed25519")
		if !ok {
			return nil, fmt.Errorf("%w: signature type %s has no Ed25519 variant", ErrEncode, t.PathString())
		}
		return []byte{v.Index}, nil
	}
	return nil, nil
}
