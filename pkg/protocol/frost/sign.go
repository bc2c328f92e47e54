package frost

import (
	"bytes"
	"crypto/ed25519"
	"encoding/binary"
	"fmt"
	"sort"

	"filippo.io/edwards25519"
	"github.com/fxamacker/cbor/v2"
	"github.com/samber/lo"

	"github.com/luxfi/substrate-mpc/pkg/ceremony"
)

func (p *FROSTProtocol) Commit(share ceremony.SigningShare) (*ceremony.SigningNonces, ceremony.SigningCommitment, error) {
	sh, err := unmarshalShare(share)
	if err != nil {
		return nil, nil, err
	}
	defer ceremony.Zero(sh.Secret)

	hiding, err := hedgedScalar("nonce", sh.Secret)
	if err != nil {
		return nil, nil, err
	}
	defer zeroScalar(hiding)
	binding, err := hedgedScalar("nonce", sh.Secret)
	if err != nil {
		return nil, nil, err
	}
	defer zeroScalar(binding)

	d := edwards25519.NewIdentityPoint().ScalarBaseMult(hiding).Bytes()
	e := edwards25519.NewIdentityPoint().ScalarBaseMult(binding).Bytes()

	raw, err := cbor.Marshal(&noncesMarshal{
		Version:  wireVersion,
		Index:    sh.Index,
		GroupKey: sh.GroupKey,
		Hiding:   hiding.Bytes(),
		Binding:  binding.Bytes(),
		D:        d,
		E:        e,
	})
	if err != nil {
		return nil, nil, err
	}
	nonces := ceremony.NewSigningNonces(raw)
	ceremony.Zero(raw)

	commitment, err := cbor.Marshal(&commitmentMarshal{
		Version:  wireVersion,
		Index:    sh.Index,
		GroupKey: sh.GroupKey,
		D:        d,
		E:        e,
	})
	if err != nil {
		return nil, nil, err
	}
	return nonces, commitment, nil
}

func (p *FROSTProtocol) Sign(
	share ceremony.SigningShare,
	spp ceremony.SPPOutput,
	commitments ceremony.CommitmentSet,
	nonces *ceremony.SigningNonces,
	context []byte,
	msg ceremony.SignedMessage,
) (ceremony.SigningPackage, error) {
	// Nonces are spent whether or not signing succeeds.
	raw, err := nonces.Take()
	if err != nil {
		return nil, err
	}
	defer ceremony.Zero(raw)
	n, err := unmarshalNonces(raw)
	if err != nil {
		return nil, err
	}
	defer func() {
		ceremony.Zero(n.Hiding)
		ceremony.Zero(n.Binding)
	}()

	sh, err := unmarshalShare(share)
	if err != nil {
		return nil, err
	}
	defer ceremony.Zero(sh.Secret)
	out, err := unmarshalSPP(spp)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(sh.GroupKey, out.GroupKey) || !bytes.Equal(n.GroupKey, out.GroupKey) || n.Index != sh.Index {
		return nil, fmt.Errorf("%w: share, nonces and spp output belong to different keys", ceremony.ErrMismatchedGroup)
	}

	set, err := newSignerSet(commitments, out)
	if err != nil {
		return nil, err
	}
	if len(set.indices) < int(out.Threshold) {
		return nil, fmt.Errorf("%w: %d commitments, threshold %d", ceremony.ErrInsufficientSigners, len(set.indices), out.Threshold)
	}
	own, ok := set.byIndex[sh.Index]
	if !ok || !bytes.Equal(own.D, n.D) || !bytes.Equal(own.E, n.E) {
		return nil, fmt.Errorf("%w: signer %d", ceremony.ErrSelfCommitmentMissing, sh.Index)
	}

	hiding, err := decodeScalar(n.Hiding)
	if err != nil {
		return nil, err
	}
	defer zeroScalar(hiding)
	binding, err := decodeScalar(n.Binding)
	if err != nil {
		return nil, err
	}
	defer zeroScalar(binding)
	secret, err := decodeScalar(sh.Secret)
	if err != nil {
		return nil, err
	}
	defer zeroScalar(secret)

	rho := set.bindingFactors(context, msg)
	r, err := set.groupCommitment(rho)
	if err != nil {
		return nil, err
	}
	c := challenge(r.Bytes(), out.GroupKey, msg)
	lambda, err := lagrange(set.indices, sh.Index)
	if err != nil {
		return nil, err
	}

	// z_i = d_i + e_i*rho_i + lambda_i*s_i*c
	z := edwards25519.NewScalar().Multiply(lambda, secret)
	z.Multiply(z, c)
	z.MultiplyAdd(binding, rho[sh.Index], z)
	z.Add(z, hiding)

	return cbor.Marshal(&packageMarshal{
		Version:     wireVersion,
		Index:       sh.Index,
		Z:           z.Bytes(),
		Context:     context,
		Message:     msg,
		Commitments: set.encoded,
		SPP:         spp,
	})
}

func (p *FROSTProtocol) Aggregate(packages ceremony.PackageSet) (ceremony.GroupSignature, error) {
	packages = lo.UniqBy(packages, func(p ceremony.SigningPackage) string { return string(p) })
	if len(packages) == 0 {
		return nil, fmt.Errorf("%w: no signing packages", ceremony.ErrInsufficientSigners)
	}
	decoded := make([]*packageMarshal, len(packages))
	for i, raw := range packages {
		var err error
		if decoded[i], err = unmarshalPackage(raw); err != nil {
			return nil, err
		}
	}

	ref := decoded[0]
	byIndex := make(map[uint16]*packageMarshal, len(decoded))
	for _, pkg := range decoded {
		if !bytes.Equal(pkg.Message, ref.Message) || !bytes.Equal(pkg.Context, ref.Context) ||
			!bytes.Equal(pkg.SPP, ref.SPP) || !equalBlobs(pkg.Commitments, ref.Commitments) {
			return nil, fmt.Errorf("%w: signer %d", ceremony.ErrMessageMismatch, pkg.Index)
		}
		if _, dup := byIndex[pkg.Index]; dup {
			return nil, fmt.Errorf("%w: conflicting packages from signer %d", ceremony.ErrMessageMismatch, pkg.Index)
		}
		byIndex[pkg.Index] = pkg
	}

	out, err := unmarshalSPP(ref.SPP)
	if err != nil {
		return nil, err
	}
	if len(byIndex) < int(out.Threshold) {
		return nil, fmt.Errorf("%w: %d packages, threshold %d", ceremony.ErrInsufficientSigners, len(byIndex), out.Threshold)
	}
	set, err := newSignerSet(lo.Map(ref.Commitments, func(b []byte, _ int) ceremony.SigningCommitment { return b }), out)
	if err != nil {
		return nil, err
	}
	for idx := range byIndex {
		if _, ok := set.byIndex[idx]; !ok {
			return nil, fmt.Errorf("%w: package from uncommitted signer %d", ceremony.ErrMessageMismatch, idx)
		}
	}
	for _, idx := range set.indices {
		if _, ok := byIndex[idx]; !ok {
			return nil, fmt.Errorf("%w: missing package from committed signer %d", ceremony.ErrInsufficientSigners, idx)
		}
	}

	rho := set.bindingFactors(ref.Context, ref.Message)
	r, err := set.groupCommitment(rho)
	if err != nil {
		return nil, err
	}
	c := challenge(r.Bytes(), out.GroupKey, ref.Message)

	z := edwards25519.NewScalar()
	for _, idx := range set.indices {
		zi, err := decodeScalar(byIndex[idx].Z)
		if err != nil {
			return nil, err
		}
		if err := set.verifyPartial(idx, zi, rho[idx], c, out); err != nil {
			return nil, err
		}
		z.Add(z, zi)
	}

	sig := append(r.Bytes(), z.Bytes()...)
	if !ed25519.Verify(ed25519.PublicKey(out.GroupKey), ref.Message, sig) {
		return nil, ceremony.ErrInvalidSignature
	}
	return sig, nil
}

func (p *FROSTProtocol) PackageContext(pkg ceremony.SigningPackage) ([]byte, error) {
	m, err := unmarshalPackage(pkg)
	if err != nil {
		return nil, err
	}
	return m.Context, nil
}

// signerSet is a decoded, validated commitment set sorted by signer index.
type signerSet struct {
	groupKey []byte
	indices  []uint16
	byIndex  map[uint16]*commitmentMarshal
	encoded  [][]byte
	hiding   map[uint16]*edwards25519.Point
	binding  map[uint16]*edwards25519.Point
}

func newSignerSet(commitments ceremony.CommitmentSet, out *sppMarshal) (*signerSet, error) {
	commitments = lo.UniqBy(commitments, func(c ceremony.SigningCommitment) string { return string(c) })
	set := &signerSet{
		groupKey: out.GroupKey,
		byIndex:  make(map[uint16]*commitmentMarshal, len(commitments)),
		hiding:   make(map[uint16]*edwards25519.Point, len(commitments)),
		binding:  make(map[uint16]*edwards25519.Point, len(commitments)),
	}
	raw := make(map[uint16][]byte, len(commitments))
	for _, b := range commitments {
		cm, err := unmarshalCommitment(b)
		if err != nil {
			return nil, err
		}
		if !bytes.Equal(cm.GroupKey, out.GroupKey) {
			return nil, fmt.Errorf("%w: commitment from signer %d", ceremony.ErrMismatchedGroup, cm.Index)
		}
		if cm.Index < 1 || int(cm.Index) > len(out.Participants) {
			return nil, fmt.Errorf("%w: signer index %d outside 1..%d", ceremony.ErrMismatchedGroup, cm.Index, len(out.Participants))
		}
		if _, dup := set.byIndex[cm.Index]; dup {
			return nil, fmt.Errorf("%w: signer %d", ErrDuplicateSigner, cm.Index)
		}
		d, err := decodePoint(cm.D)
		if err != nil {
			return nil, err
		}
		e, err := decodePoint(cm.E)
		if err != nil {
			return nil, err
		}
		set.byIndex[cm.Index] = cm
		set.hiding[cm.Index] = d
		set.binding[cm.Index] = e
		set.indices = append(set.indices, cm.Index)
		raw[cm.Index] = b
	}
	sort.Slice(set.indices, func(i, j int) bool { return set.indices[i] < set.indices[j] })
	for _, idx := range set.indices {
		set.encoded = append(set.encoded, raw[idx])
	}
	return set, nil
}

// bindingFactors derives rho_i for every signer. Each factor binds the
// message, the context and the full commitment list.
func (s *signerSet) bindingFactors(context, msg []byte) map[uint16]*edwards25519.Scalar {
	msgHash := digest("msg", msg)
	listHash := digest("commitments", s.encoded...)
	out := make(map[uint16]*edwards25519.Scalar, len(s.indices))
	var id [2]byte
	for _, idx := range s.indices {
		binary.LittleEndian.PutUint16(id[:], idx)
		out[idx] = hashToScalar("rho", context, s.groupKey, msgHash, listHash, id[:])
	}
	return out
}

// groupCommitment computes R = sum(D_i + rho_i*E_i).
func (s *signerSet) groupCommitment(rho map[uint16]*edwards25519.Scalar) (*edwards25519.Point, error) {
	r := edwards25519.NewIdentityPoint()
	for _, idx := range s.indices {
		term := edwards25519.NewIdentityPoint().ScalarMult(rho[idx], s.binding[idx])
		term.Add(term, s.hiding[idx])
		r.Add(r, term)
	}
	if r.Equal(edwards25519.NewIdentityPoint()) == 1 {
		return nil, fmt.Errorf("%w: group commitment is the identity", ErrMalformed)
	}
	return r, nil
}

// verifyPartial checks z_i*G == D_i + rho_i*E_i + c*lambda_i*Y_i.
func (s *signerSet) verifyPartial(idx uint16, z, rho, c *edwards25519.Scalar, out *sppMarshal) error {
	y, err := decodePoint(out.VerifyingShares[idx-1])
	if err != nil {
		return err
	}
	lambda, err := lagrange(s.indices, idx)
	if err != nil {
		return err
	}
	lhs := edwards25519.NewIdentityPoint().ScalarBaseMult(z)
	rhs := edwards25519.NewIdentityPoint().ScalarMult(edwards25519.NewScalar().Multiply(c, lambda), y)
	rhs.Add(rhs, edwards25519.NewIdentityPoint().ScalarMult(rho, s.binding[idx]))
	rhs.Add(rhs, s.hiding[idx])
	if lhs.Equal(rhs) != 1 {
		return fmt.Errorf("%w: signer %d", ErrInvalidPartialSignature, idx)
	}
	return nil
}

func equalBlobs(a, b [][]byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !bytes.Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}
