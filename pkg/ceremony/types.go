// Package ceremony holds the artifact types shared by the key generation and
// signing ceremonies. Every artifact is an opaque byte payload produced by the
// threshold protocol; each gets its own named type so a signing share can
// never be handed to something expecting the public SPP output.
package ceremony

import (
	"bytes"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
)

var (
	ErrInvalidID                = errors.New("invalid ceremony id")
	ErrInvalidThreshold         = errors.New("threshold out of range")
	ErrInvalidSecretKey         = errors.New("invalid secret key")
	ErrInconsistentContribution = errors.New("inconsistent contribution")
	ErrMismatchedGroup          = errors.New("commitments belong to different groups")
	ErrSelfCommitmentMissing    = errors.New("own commitment missing from commitment set")
	ErrInsufficientSigners      = errors.New("insufficient signers")
	ErrMessageMismatch          = errors.New("signing packages disagree on signed content")
	ErrNoncesConsumed           = errors.New("signing nonces already consumed")
	ErrIntentMismatch           = errors.New("call intent differs from pinned transaction")
	ErrInvalidSignature         = errors.New("group signature does not verify")
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)

// ID addresses one ceremony (a DKG run) or one signing session. IDs never
// contain '.', which joins the two halves of a signing scope.
type ID string

func (id ID) Validate() error {
	if !idPattern.MatchString(string(id)) {
		return fmt.Errorf("%w: %q", ErrInvalidID, string(id))
	}
	return nil
}

// Scope returns the id the artifacts of a signing session are stored under,
// <ceremony>.<session>, or the ceremony itself when sessionID is empty.
func Scope(ceremonyID, sessionID ID) (ID, error) {
	if err := ceremonyID.Validate(); err != nil {
		return "", err
	}
	if sessionID == "" {
		return ceremonyID, nil
	}
	if err := sessionID.Validate(); err != nil {
		return "", err
	}
	return ceremonyID + "." + sessionID, nil
}

// ValidateScope accepts a ceremony id or a signing scope built by Scope.
func (id ID) ValidateScope() error {
	c, sess, ok := strings.Cut(string(id), ".")
	if !ok {
		return id.Validate()
	}
	_, err := Scope(ID(c), ID(sess))
	if err != nil || sess == "" {
		return fmt.Errorf("%w: scope %q", ErrInvalidID, string(id))
	}
	return nil
}

func (id ID) String() string { return string(id) }

// ParticipantKey is the public identity of a participant. Contributions are
// encrypted to it.
type ParticipantKey string

// SecretKey is a participant's long-term identity secret.
type SecretKey string

// Contribution is one participant's DKG round 1 output addressed to all
// recipients.
type Contribution []byte

// ContributionSet holds the contributions of all n participants, ordered by
// participant index.
type ContributionSet []Contribution

// ThresholdPublicKey is the group verification key of a threshold account.
type ThresholdPublicKey []byte

func (k ThresholdPublicKey) Hex() string { return "0x" + hex.EncodeToString(k) }

func (k ThresholdPublicKey) Equal(o ThresholdPublicKey) bool { return bytes.Equal(k, o) }

// SigningShare is a participant's private key fragment. It never leaves the
// participant's keystore.
type SigningShare []byte

// SPPOutput is the public DKG transcript needed to verify and combine partial
// signatures.
type SPPOutput []byte

// SigningCommitment is the public half of a signer's round 1 output.
type SigningCommitment []byte

// CommitmentSet holds the commitments of the participating signers.
type CommitmentSet []SigningCommitment

// Contains reports whether c is byte-for-byte present in the set.
func (s CommitmentSet) Contains(c SigningCommitment) bool {
	for _, x := range s {
		if subtle.ConstantTimeCompare(x, c) == 1 {
			return true
		}
	}
	return false
}

// SigningPackage is one signer's partial signature.
type SigningPackage []byte

// PackageSet holds the signing packages of the participating signers.
type PackageSet []SigningPackage

// GroupSignature is the aggregated signature.
type GroupSignature []byte

// SignedMessage is the exact byte string every signer of a session signs.
type SignedMessage []byte

// KeygenOutput is what DKG round 2 hands back. The three artifacts are stored
// in different places and must stay apart.
type KeygenOutput struct {
	Account ThresholdAccount
	Share   SigningShare
	SPP     SPPOutput
}

// SigningNonces is the secret half of a signer's round 1 output. The value
// can be taken exactly once; reuse across two messages leaks the share.
type SigningNonces struct {
	mu    sync.Mutex
	data  []byte
	taken bool
}

func NewSigningNonces(data []byte) *SigningNonces {
	return &SigningNonces{data: append([]byte(nil), data...)}
}

// Take returns the nonce bytes and invalidates the value. Every later call
// fails with ErrNoncesConsumed. The caller owns the returned slice and should
// zero it once done.
func (n *SigningNonces) Take() ([]byte, error) {
	if n == nil {
		return nil, ErrNoncesConsumed
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.taken {
		return nil, ErrNoncesConsumed
	}
	n.taken = true
	out := n.data
	n.data = nil
	return out, nil
}

// Consumed reports whether Take has already been called.
func (n *SigningNonces) Consumed() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.taken
}

// Zero overwrites b in place.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
