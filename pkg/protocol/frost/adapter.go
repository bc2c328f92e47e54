// Package frost implements the threshold protocol used for Substrate
// threshold accounts: a SimplPedPoP style distributed key generation followed
// by FROST signing, both over edwards25519. Aggregated signatures are plain
// Ed25519 signatures under the group key, so the chain verifies them as
// MultiSignature::Ed25519.
//
// DKG secret shares travel inside the round 1 contribution, encrypted to each
// recipient's age X25519 key, which is what lets the key generation finish in
// two rounds over a dumb artifact store.
package frost

import (
	"crypto/ed25519"
	"fmt"

	"github.com/luxfi/substrate-mpc/pkg/ceremony"
	"github.com/luxfi/substrate-mpc/pkg/protocol"
)

const Name = "FROST-Ed25519"

var (
	ErrMalformed               = protocol.ErrMalformed
	ErrInvalidPartialSignature = protocol.ErrInvalidPartialSignature
	ErrDuplicateSigner         = protocol.ErrDuplicateSigner
)

// FROSTProtocol implements protocol.Protocol.
type FROSTProtocol struct{}

var _ protocol.Protocol = (*FROSTProtocol)(nil)

func NewFROSTProtocol() *FROSTProtocol {
	return &FROSTProtocol{}
}

// Name returns the protocol name
func (p *FROSTProtocol) Name() string {
	return Name
}

func (p *FROSTProtocol) Verify(key ceremony.ThresholdPublicKey, msg ceremony.SignedMessage, sig ceremony.GroupSignature) error {
	if len(key) != ed25519.PublicKeySize || len(sig) != ed25519.SignatureSize {
		return fmt.Errorf("%w: key %d bytes, signature %d bytes", ceremony.ErrInvalidSignature, len(key), len(sig))
	}
	if !ed25519.Verify(ed25519.PublicKey(key), msg, sig) {
		return ceremony.ErrInvalidSignature
	}
	return nil
}

func (p *FROSTProtocol) Threshold(spp ceremony.SPPOutput) (int, error) {
	out, err := unmarshalSPP(spp)
	if err != nil {
		return 0, err
	}
	return int(out.Threshold), nil
}
