package frost

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"slices"

	"filippo.io/age"
	"filippo.io/edwards25519"
	"github.com/fxamacker/cbor/v2"
	"github.com/samber/lo"

	"github.com/luxfi/substrate-mpc/pkg/ceremony"
)

// GenerateIdentity creates a fresh participant identity.
func GenerateIdentity() (ceremony.SecretKey, ceremony.ParticipantKey, error) {
	id, err := age.GenerateX25519Identity()
	if err != nil {
		return "", "", err
	}
	return ceremony.SecretKey(id.String()), ceremony.ParticipantKey(id.Recipient().String()), nil
}

// PublicKeyOf derives the participant key for a secret key.
func PublicKeyOf(secret ceremony.SecretKey) (ceremony.ParticipantKey, error) {
	id, err := parseSecret(secret)
	if err != nil {
		return "", err
	}
	return ceremony.ParticipantKey(id.Recipient().String()), nil
}

func (p *FROSTProtocol) NewIdentity() (ceremony.SecretKey, ceremony.ParticipantKey, error) {
	return GenerateIdentity()
}

func (p *FROSTProtocol) Identity(secret ceremony.SecretKey) (ceremony.ParticipantKey, error) {
	return PublicKeyOf(secret)
}

func parseSecret(secret ceremony.SecretKey) (*age.X25519Identity, error) {
	id, err := age.ParseX25519Identity(string(secret))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ceremony.ErrInvalidSecretKey, err)
	}
	return id, nil
}

// ParseParticipantKey checks that k is a well formed participant key.
func ParseParticipantKey(k ceremony.ParticipantKey) error {
	if _, err := age.ParseX25519Recipient(string(k)); err != nil {
		return fmt.Errorf("participant key %q: %w", k, err)
	}
	return nil
}

func (p *FROSTProtocol) Contribute(secret ceremony.SecretKey, threshold int, recipients []ceremony.ParticipantKey) (ceremony.Contribution, error) {
	id, err := parseSecret(secret)
	if err != nil {
		return nil, err
	}
	n := len(recipients)
	if threshold < 1 || threshold > n || n > math.MaxUint16 {
		return nil, fmt.Errorf("%w: t=%d n=%d", ceremony.ErrInvalidThreshold, threshold, n)
	}
	self := ceremony.ParticipantKey(id.Recipient().String())
	if !lo.Contains(recipients, self) {
		return nil, fmt.Errorf("%w: own key %s is not among the recipients", ceremony.ErrInvalidSecretKey, self)
	}
	ageRecipients := make([]age.Recipient, n)
	seen := make(map[ceremony.ParticipantKey]struct{}, n)
	for i, r := range recipients {
		if _, dup := seen[r]; dup {
			return nil, fmt.Errorf("%w: duplicate recipient %s", ceremony.ErrInconsistentContribution, r)
		}
		seen[r] = struct{}{}
		ar, err := age.ParseX25519Recipient(string(r))
		if err != nil {
			return nil, fmt.Errorf("recipient %d: %w", i+1, err)
		}
		ageRecipients[i] = ar
	}

	coeffs := make([]*edwards25519.Scalar, threshold)
	defer func() {
		for _, c := range coeffs {
			zeroScalar(c)
		}
	}()
	commitments := make([][]byte, threshold)
	for k := range coeffs {
		if coeffs[k], err = randomScalar(); err != nil {
			return nil, err
		}
		commitments[k] = edwards25519.NewIdentityPoint().ScalarBaseMult(coeffs[k]).Bytes()
	}

	// Proof of knowledge of a_0 binds the contribution to its sender and
	// the ceremony parameters.
	k, err := randomScalar()
	if err != nil {
		return nil, err
	}
	defer zeroScalar(k)
	proofR := edwards25519.NewIdentityPoint().ScalarBaseMult(k).Bytes()
	c := pokChallenge(string(self), uint16(threshold), recipients, commitments[0], proofR)
	proofZ := edwards25519.NewScalar().MultiplyAdd(coeffs[0], c, k)

	shares := make([][]byte, n)
	for j := range recipients {
		s := evalPolynomial(coeffs, identifier(uint16(j+1)))
		plain := s.Bytes()
		shares[j], err = encryptShare(ageRecipients[j], plain)
		ceremony.Zero(plain)
		zeroScalar(s)
		if err != nil {
			return nil, fmt.Errorf("encrypt share for recipient %d: %w", j+1, err)
		}
	}

	return cbor.Marshal(&contributionMarshal{
		Version:     wireVersion,
		Sender:      string(self),
		Threshold:   uint16(threshold),
		Recipients:  keysToStrings(recipients),
		Commitments: commitments,
		ProofR:      proofR,
		ProofZ:      proofZ.Bytes(),
		Shares:      shares,
	})
}

func (p *FROSTProtocol) Finalize(secret ceremony.SecretKey, contributions ceremony.ContributionSet) (*ceremony.KeygenOutput, error) {
	id, err := parseSecret(secret)
	if err != nil {
		return nil, err
	}
	if len(contributions) == 0 {
		return nil, fmt.Errorf("%w: no contributions", ceremony.ErrInconsistentContribution)
	}
	decoded := make([]*contributionMarshal, len(contributions))
	for i, raw := range contributions {
		if decoded[i], err = unmarshalContribution(raw); err != nil {
			return nil, err
		}
	}

	ref := decoded[0]
	n := len(ref.Recipients)
	t := int(ref.Threshold)
	if t < 1 || t > n {
		return nil, fmt.Errorf("%w: t=%d n=%d", ceremony.ErrInconsistentContribution, t, n)
	}
	if len(decoded) != n {
		return nil, fmt.Errorf("%w: got %d contributions for %d participants", ceremony.ErrInconsistentContribution, len(decoded), n)
	}
	recipients := make([]ceremony.ParticipantKey, n)
	seen := make(map[string]struct{}, n)
	for i, r := range ref.Recipients {
		if _, dup := seen[r]; dup {
			return nil, fmt.Errorf("%w: duplicate participant %s", ceremony.ErrInconsistentContribution, r)
		}
		seen[r] = struct{}{}
		recipients[i] = ceremony.ParticipantKey(r)
	}
	self := lo.IndexOf(recipients, ceremony.ParticipantKey(id.Recipient().String()))
	if self < 0 {
		return nil, fmt.Errorf("%w: own key is not a participant of this ceremony", ceremony.ErrInvalidSecretKey)
	}
	selfID := identifier(uint16(self + 1))

	// Aggregate coefficient commitments, sum over senders of C_{p,k}.
	groupCommitments := make([]*edwards25519.Point, t)
	for k := range groupCommitments {
		groupCommitments[k] = edwards25519.NewIdentityPoint()
	}
	secretShare := edwards25519.NewScalar()
	for i, c := range decoded {
		if int(c.Threshold) != t || !slices.Equal(c.Recipients, ref.Recipients) {
			return nil, fmt.Errorf("%w: contribution %d disagrees on threshold or participants", ceremony.ErrInconsistentContribution, i+1)
		}
		if c.Sender != ref.Recipients[i] {
			return nil, fmt.Errorf("%w: contribution %d is from %s, expected %s", ceremony.ErrInconsistentContribution, i+1, c.Sender, ref.Recipients[i])
		}
		if len(c.Commitments) != t || len(c.Shares) != n {
			return nil, fmt.Errorf("%w: contribution %d has wrong sizes", ceremony.ErrInconsistentContribution, i+1)
		}
		points := make([]*edwards25519.Point, t)
		for k, b := range c.Commitments {
			if points[k], err = decodePoint(b); err != nil {
				return nil, fmt.Errorf("%w: contribution %d: %v", ceremony.ErrInconsistentContribution, i+1, err)
			}
		}
		if err := verifyPoK(c, recipients, points[0]); err != nil {
			return nil, fmt.Errorf("%w: contribution %d: %v", ceremony.ErrInconsistentContribution, i+1, err)
		}
		share, err := decryptShare(id, c.Shares[self])
		if err != nil {
			return nil, fmt.Errorf("%w: contribution %d: %v", ceremony.ErrInconsistentContribution, i+1, err)
		}
		expected := evalCommitment(points, selfID)
		if edwards25519.NewIdentityPoint().ScalarBaseMult(share).Equal(expected) != 1 {
			zeroScalar(share)
			return nil, fmt.Errorf("%w: share from participant %d fails verification", ceremony.ErrInconsistentContribution, i+1)
		}
		secretShare.Add(secretShare, share)
		zeroScalar(share)
		for k := range points {
			groupCommitments[k].Add(groupCommitments[k], points[k])
		}
	}

	groupKey := groupCommitments[0]
	if groupKey.Equal(edwards25519.NewIdentityPoint()) == 1 {
		return nil, fmt.Errorf("%w: group key is the identity", ceremony.ErrInconsistentContribution)
	}
	verifying := make([][]byte, n)
	for j := range verifying {
		verifying[j] = evalCommitment(groupCommitments, identifier(uint16(j+1))).Bytes()
	}
	groupKeyBytes := groupKey.Bytes()

	spp, err := cbor.Marshal(&sppMarshal{
		Version:         wireVersion,
		Threshold:       uint16(t),
		Participants:    ref.Recipients,
		GroupKey:        groupKeyBytes,
		VerifyingShares: verifying,
	})
	if err != nil {
		return nil, err
	}
	secretBytes := secretShare.Bytes()
	zeroScalar(secretShare)
	share, err := cbor.Marshal(&shareMarshal{
		Version:  wireVersion,
		Index:    uint16(self + 1),
		Secret:   secretBytes,
		GroupKey: groupKeyBytes,
	})
	ceremony.Zero(secretBytes)
	if err != nil {
		return nil, err
	}

	return &ceremony.KeygenOutput{
		Account: ceremony.ThresholdAccount{
			PublicKey:    ceremony.ThresholdPublicKey(groupKeyBytes),
			Threshold:    t,
			Participants: recipients,
		},
		Share: share,
		SPP:   spp,
	}, nil
}

func pokChallenge(sender string, threshold uint16, recipients []ceremony.ParticipantKey, c0, r []byte) *edwards25519.Scalar {
	var t [2]byte
	binary.LittleEndian.PutUint16(t[:], threshold)
	parts := [][]byte{[]byte(sender), t[:]}
	for _, rc := range recipients {
		parts = append(parts, []byte(rc))
	}
	parts = append(parts, c0, r)
	return hashToScalar("dkg-pok", parts...)
}

// verifyPoK checks z*G == R + c*C_0.
func verifyPoK(c *contributionMarshal, recipients []ceremony.ParticipantKey, c0 *edwards25519.Point) error {
	r, err := decodePoint(c.ProofR)
	if err != nil {
		return err
	}
	z, err := decodeScalar(c.ProofZ)
	if err != nil {
		return err
	}
	ch := pokChallenge(c.Sender, c.Threshold, recipients, c.Commitments[0], c.ProofR)
	lhs := edwards25519.NewIdentityPoint().ScalarBaseMult(z)
	rhs := edwards25519.NewIdentityPoint().ScalarMult(ch, c0)
	rhs.Add(rhs, r)
	if lhs.Equal(rhs) != 1 {
		return fmt.Errorf("proof of knowledge does not verify")
	}
	return nil
}

func encryptShare(r age.Recipient, plain []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, r)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(plain); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decryptShare(id *age.X25519Identity, ct []byte) (*edwards25519.Scalar, error) {
	r, err := age.Decrypt(bytes.NewReader(ct), id)
	if err != nil {
		return nil, fmt.Errorf("decrypt share: %w", err)
	}
	plain, err := io.ReadAll(io.LimitReader(r, 64))
	if err != nil {
		return nil, fmt.Errorf("decrypt share: %w", err)
	}
	defer ceremony.Zero(plain)
	return decodeScalar(plain)
}

func keysToStrings(keys []ceremony.ParticipantKey) []string {
	return lo.Map(keys, func(k ceremony.ParticipantKey, _ int) string { return string(k) })
}
