// Package protocol defines what the ceremony orchestrators need from a
// threshold Schnorr implementation. The math stays behind this interface.
package protocol

import (
	"errors"

	"github.com/luxfi/substrate-mpc/pkg/ceremony"
)

// Failures an implementation reports beyond the ceremony preconditions.
var (
	// ErrMalformed reports an artifact whose bytes do not decode as the
	// expected type.
	ErrMalformed = errors.New("malformed artifact")
	// ErrInvalidPartialSignature reports a signing package that fails
	// verification against the signer's verifying share.
	ErrInvalidPartialSignature = errors.New("invalid partial signature")
	// ErrDuplicateSigner reports two different commitments from the same
	// signer.
	ErrDuplicateSigner = errors.New("duplicate signer in commitment set")
)

// Protocol is a two round DKG plus two round signing scheme whose
// aggregated signatures verify as ordinary signatures under the group key.
type Protocol interface {
	// Name returns the protocol name (e.g. "FROST-Ed25519").
	Name() string

	// NewIdentity creates a participant's long-term identity.
	NewIdentity() (ceremony.SecretKey, ceremony.ParticipantKey, error)

	// Identity derives the public identity of secret.
	Identity(secret ceremony.SecretKey) (ceremony.ParticipantKey, error)

	// Contribute builds this participant's DKG round 1 message for all
	// recipients, self included.
	Contribute(secret ceremony.SecretKey, threshold int, recipients []ceremony.ParticipantKey) (ceremony.Contribution, error)

	// Finalize validates the full contribution set and derives the account,
	// this participant's signing share and the public SPP output.
	Finalize(secret ceremony.SecretKey, contributions ceremony.ContributionSet) (*ceremony.KeygenOutput, error)

	// Commit draws fresh signing nonces for one signing session.
	Commit(share ceremony.SigningShare) (*ceremony.SigningNonces, ceremony.SigningCommitment, error)

	// Sign consumes nonces and produces a partial signature over msg.
	Sign(
		share ceremony.SigningShare,
		spp ceremony.SPPOutput,
		commitments ceremony.CommitmentSet,
		nonces *ceremony.SigningNonces,
		context []byte,
		msg ceremony.SignedMessage,
	) (ceremony.SigningPackage, error)

	// Aggregate combines partial signatures into the group signature.
	Aggregate(packages ceremony.PackageSet) (ceremony.GroupSignature, error)

	// PackageContext returns the signing context a package was produced under.
	PackageContext(pkg ceremony.SigningPackage) ([]byte, error)

	// Verify checks a group signature against the group key.
	Verify(key ceremony.ThresholdPublicKey, msg ceremony.SignedMessage, sig ceremony.GroupSignature) error

	// Threshold reads t from an SPP output.
	Threshold(spp ceremony.SPPOutput) (int, error)
}
