package frost

import (
	"crypto/rand"
	"crypto/sha512"
	"encoding/binary"
	"fmt"
	"io"

	"filippo.io/edwards25519"
)

const domain = "substrate-mpc/frost-ed25519/v1/"

// randomScalar draws a uniformly random scalar.
func randomScalar() (*edwards25519.Scalar, error) {
	var buf [64]byte
	if _, err := io.ReadFull(rand.Reader, buf[:]); err != nil {
		return nil, err
	}
	return edwards25519.NewScalar().SetUniformBytes(buf[:])
}

// hedgedScalar mixes fresh randomness with a secret so a weak RNG alone does
// not reveal the nonce.
func hedgedScalar(tag string, secret []byte) (*edwards25519.Scalar, error) {
	var seed [32]byte
	if _, err := io.ReadFull(rand.Reader, seed[:]); err != nil {
		return nil, err
	}
	return hashToScalar(tag, seed[:], secret), nil
}

// digest hashes length-prefixed parts under a domain separated tag.
func digest(tag string, parts ...[]byte) []byte {
	h := sha512.New()
	h.Write([]byte(domain + tag))
	var l [8]byte
	for _, p := range parts {
		binary.LittleEndian.PutUint64(l[:], uint64(len(p)))
		h.Write(l[:])
		h.Write(p)
	}
	return h.Sum(nil)
}

func hashToScalar(tag string, parts ...[]byte) *edwards25519.Scalar {
	s, err := edwards25519.NewScalar().SetUniformBytes(digest(tag, parts...))
	if err != nil {
		panic(err) // sha512 output is always 64 bytes
	}
	return s
}

// challenge is the Ed25519 challenge SHA-512(R || A || M) mod l.
func challenge(r, groupKey, msg []byte) *edwards25519.Scalar {
	h := sha512.New()
	h.Write(r)
	h.Write(groupKey)
	h.Write(msg)
	s, err := edwards25519.NewScalar().SetUniformBytes(h.Sum(nil))
	if err != nil {
		panic(err)
	}
	return s
}

// identifier maps a 1-based participant index to its scalar.
func identifier(index uint16) *edwards25519.Scalar {
	var b [32]byte
	binary.LittleEndian.PutUint16(b[:], index)
	s, err := edwards25519.NewScalar().SetCanonicalBytes(b[:])
	if err != nil {
		panic(err)
	}
	return s
}

// evalPolynomial evaluates sum(coeffs[k] * x^k).
func evalPolynomial(coeffs []*edwards25519.Scalar, x *edwards25519.Scalar) *edwards25519.Scalar {
	acc := edwards25519.NewScalar().Set(coeffs[len(coeffs)-1])
	for k := len(coeffs) - 2; k >= 0; k-- {
		acc.MultiplyAdd(acc, x, coeffs[k])
	}
	return acc
}

// evalCommitment evaluates sum(commitments[k] * x^k) in the group.
func evalCommitment(commitments []*edwards25519.Point, x *edwards25519.Scalar) *edwards25519.Point {
	acc := edwards25519.NewIdentityPoint().Set(commitments[len(commitments)-1])
	for k := len(commitments) - 2; k >= 0; k-- {
		acc.ScalarMult(x, acc)
		acc.Add(acc, commitments[k])
	}
	return acc
}

// lagrange returns the coefficient of signer self for interpolation at zero
// over the given signer set.
func lagrange(signers []uint16, self uint16) (*edwards25519.Scalar, error) {
	num := identifier(1)
	den := identifier(1)
	xi := identifier(self)
	for _, j := range signers {
		if j == self {
			continue
		}
		xj := identifier(j)
		num.Multiply(num, xj)
		diff := edwards25519.NewScalar().Subtract(xj, xi)
		den.Multiply(den, diff)
	}
	if den.Equal(edwards25519.NewScalar()) == 1 {
		return nil, fmt.Errorf("duplicate signer %d", self)
	}
	return num.Multiply(num, edwards25519.NewScalar().Invert(den)), nil
}

func decodePoint(b []byte) (*edwards25519.Point, error) {
	p, err := edwards25519.NewIdentityPoint().SetBytes(b)
	if err != nil {
		return nil, fmt.Errorf("%w: point: %v", ErrMalformed, err)
	}
	return p, nil
}

func decodeScalar(b []byte) (*edwards25519.Scalar, error) {
	s, err := edwards25519.NewScalar().SetCanonicalBytes(b)
	if err != nil {
		return nil, fmt.Errorf("%w: scalar: %v", ErrMalformed, err)
	}
	return s, nil
}

func zeroScalar(s *edwards25519.Scalar) {
	if s != nil {
		s.Set(edwards25519.NewScalar())
	}
}
