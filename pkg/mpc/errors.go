package mpc

import (
	"context"
	"io/fs"

	"github.com/luxfi/substrate-mpc/pkg/artifact"
	"github.com/luxfi/substrate-mpc/pkg/callvalue"
	"github.com/luxfi/substrate-mpc/pkg/ceremony"
	"github.com/luxfi/substrate-mpc/pkg/chain"
	"github.com/luxfi/substrate-mpc/pkg/common/errors"
	"github.com/luxfi/substrate-mpc/pkg/keystore"
	"github.com/luxfi/substrate-mpc/pkg/protocol"
)

var (
	ErrNoGateway      = errors.New("no chain gateway configured")
	ErrAccountMissing = errors.New("threshold account descriptor missing")
	ErrNotPinned      = errors.New("no pinned unsigned transaction in this session")
)

var kinds = []struct {
	kind     errors.Kind
	sentinel []error
}{
	{errors.KindArgumentParse, []error{
		callvalue.ErrParse, chain.ErrEncode, chain.ErrUnknownCall, chain.ErrInvalidAddress,
	}},
	{errors.KindDecode, []error{
		artifact.ErrCorrupt, protocol.ErrMalformed,
	}},
	{errors.KindCrypto, []error{
		ceremony.ErrInconsistentContribution, ceremony.ErrMismatchedGroup, ceremony.ErrInvalidSignature,
		protocol.ErrInvalidPartialSignature, protocol.ErrDuplicateSigner,
	}},
	{errors.KindPrecondition, []error{
		ceremony.ErrInvalidID, ceremony.ErrInvalidThreshold, ceremony.ErrInvalidSecretKey,
		ceremony.ErrSelfCommitmentMissing, ceremony.ErrInsufficientSigners, ceremony.ErrMessageMismatch,
		ceremony.ErrNoncesConsumed, ceremony.ErrIntentMismatch, ErrNoGateway, ErrNotPinned,
	}},
	{errors.KindNetwork, []error{
		chain.ErrNode, chain.ErrStaleNonce, chain.ErrUnsupportedExtension,
		context.DeadlineExceeded, context.Canceled,
	}},
	{errors.KindInputIO, []error{
		artifact.ErrNotFound, keystore.ErrNotFound, keystore.ErrBadPassphrase, ErrAccountMissing,
		fs.ErrNotExist, fs.ErrPermission,
	}},
}

// kindOf classifies err by the first sentinel it wraps.
func kindOf(err error) errors.Kind {
	for _, k := range kinds {
		for _, s := range k.sentinel {
			if errors.Is(err, s) {
				return k.kind
			}
		}
	}
	return errors.KindUnknown
}

func classify(op string, err error) error {
	return errors.Wrap(kindOf(err), op, err)
}
