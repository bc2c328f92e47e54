package frost

import (
	"crypto/ed25519"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/substrate-mpc/pkg/ceremony"
)

type participant struct {
	secret ceremony.SecretKey
	public ceremony.ParticipantKey
	out    *ceremony.KeygenOutput
}

func newParticipants(t *testing.T, n int) ([]*participant, []ceremony.ParticipantKey) {
	t.Helper()
	ps := make([]*participant, n)
	keys := make([]ceremony.ParticipantKey, n)
	for i := range ps {
		sk, pk, err := GenerateIdentity()
		require.NoError(t, err)
		ps[i] = &participant{secret: sk, public: pk}
		keys[i] = pk
	}
	return ps, keys
}

func runDKG(t *testing.T, threshold, n int) []*participant {
	t.Helper()
	p := NewFROSTProtocol()
	ps, keys := newParticipants(t, n)
	contributions := make(ceremony.ContributionSet, n)
	for i, pt := range ps {
		c, err := p.Contribute(pt.secret, threshold, keys)
		require.NoError(t, err)
		contributions[i] = c
	}
	for _, pt := range ps {
		out, err := p.Finalize(pt.secret, contributions)
		require.NoError(t, err)
		pt.out = out
	}
	return ps
}

func signWith(t *testing.T, signers []*participant, msg []byte) (ceremony.PackageSet, error) {
	t.Helper()
	p := NewFROSTProtocol()
	nonces := make([]*ceremony.SigningNonces, len(signers))
	var commitments ceremony.CommitmentSet
	for i, s := range signers {
		n, c, err := p.Commit(s.out.Share)
		require.NoError(t, err)
		nonces[i] = n
		commitments = append(commitments, c)
	}
	var packages ceremony.PackageSet
	for i, s := range signers {
		pkg, err := p.Sign(s.out.Share, s.out.SPP, commitments, nonces[i], []byte("substrate"), msg)
		if err != nil {
			return nil, err
		}
		packages = append(packages, pkg)
	}
	return packages, nil
}

func TestDKG_AllParticipantsAgree(t *testing.T) {
	ps := runDKG(t, 2, 3)

	first := ps[0].out
	require.NoError(t, first.Account.Validate())
	assert.Equal(t, 2, first.Account.Threshold)
	assert.Len(t, first.Account.Participants, 3)
	for _, pt := range ps[1:] {
		assert.True(t, first.Account.PublicKey.Equal(pt.out.Account.PublicKey))
		assert.Equal(t, first.SPP, pt.out.SPP)
		assert.NotEqual(t, first.Share, pt.out.Share)
	}

	threshold, err := NewFROSTProtocol().Threshold(first.SPP)
	require.NoError(t, err)
	assert.Equal(t, 2, threshold)
}

func TestSign_ThresholdSubsetsProduceValidSignatures(t *testing.T) {
	ps := runDKG(t, 2, 3)
	msg := []byte("transfer 42 to bob")
	p := NewFROSTProtocol()

	tests := []struct {
		name    string
		signers []*participant
	}{
		{"first two", ps[:2]},
		{"last two", ps[1:]},
		{"all three", ps},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			packages, err := signWith(t, tt.signers, msg)
			require.NoError(t, err)
			sig, err := p.Aggregate(packages)
			require.NoError(t, err)
			assert.True(t, ed25519.Verify(ed25519.PublicKey(ps[0].out.Account.PublicKey), msg, sig))
			assert.NoError(t, p.Verify(ps[0].out.Account.PublicKey, msg, sig))
			assert.ErrorIs(t, p.Verify(ps[0].out.Account.PublicKey, []byte("other"), sig), ceremony.ErrInvalidSignature)
		})
	}
}

func TestSign_SingleParticipant(t *testing.T) {
	ps := runDKG(t, 1, 1)
	packages, err := signWith(t, ps, []byte("solo"))
	require.NoError(t, err)
	sig, err := NewFROSTProtocol().Aggregate(packages)
	require.NoError(t, err)
	assert.True(t, ed25519.Verify(ed25519.PublicKey(ps[0].out.Account.PublicKey), []byte("solo"), sig))
}

func TestPackageContext(t *testing.T) {
	ps := runDKG(t, 2, 2)
	packages, err := signWith(t, ps, []byte("msg"))
	require.NoError(t, err)
	p := NewFROSTProtocol()
	for _, pkg := range packages {
		got, err := p.PackageContext(pkg)
		require.NoError(t, err)
		assert.Equal(t, []byte("substrate"), got)
	}
	_, err = p.PackageContext(ceremony.SigningPackage("junk"))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestContribute_InvalidInputs(t *testing.T) {
	p := NewFROSTProtocol()
	ps, keys := newParticipants(t, 3)

	_, err := p.Contribute(ps[0].secret, 0, keys)
	assert.ErrorIs(t, err, ceremony.ErrInvalidThreshold)
	_, err = p.Contribute(ps[0].secret, 4, keys)
	assert.ErrorIs(t, err, ceremony.ErrInvalidThreshold)
	_, err = p.Contribute("not-a-key", 2, keys)
	assert.ErrorIs(t, err, ceremony.ErrInvalidSecretKey)

	outsider, _, err := GenerateIdentity()
	require.NoError(t, err)
	_, err = p.Contribute(outsider, 2, keys)
	assert.ErrorIs(t, err, ceremony.ErrInvalidSecretKey)

	_, err = p.Contribute(ps[0].secret, 2, append(keys, keys[1]))
	assert.ErrorIs(t, err, ceremony.ErrInconsistentContribution)
}

func TestFinalize_InconsistentContributions(t *testing.T) {
	p := NewFROSTProtocol()
	ps, keys := newParticipants(t, 3)
	contribute := func(i, threshold int) ceremony.Contribution {
		c, err := p.Contribute(ps[i].secret, threshold, keys)
		require.NoError(t, err)
		return c
	}
	good := ceremony.ContributionSet{contribute(0, 2), contribute(1, 2), contribute(2, 2)}

	t.Run("threshold disagreement", func(t *testing.T) {
		set := ceremony.ContributionSet{good[0], good[1], contribute(2, 3)}
		_, err := p.Finalize(ps[0].secret, set)
		assert.ErrorIs(t, err, ceremony.ErrInconsistentContribution)
	})
	t.Run("missing contribution", func(t *testing.T) {
		_, err := p.Finalize(ps[0].secret, good[:2])
		assert.ErrorIs(t, err, ceremony.ErrInconsistentContribution)
	})
	t.Run("out of order", func(t *testing.T) {
		set := ceremony.ContributionSet{good[1], good[0], good[2]}
		_, err := p.Finalize(ps[0].secret, set)
		assert.ErrorIs(t, err, ceremony.ErrInconsistentContribution)
	})
	t.Run("tampered commitment", func(t *testing.T) {
		var m contributionMarshal
		require.NoError(t, cbor.Unmarshal(good[1], &m))
		m.Commitments[1] = m.Commitments[0]
		tampered, err := cbor.Marshal(&m)
		require.NoError(t, err)
		_, err = p.Finalize(ps[0].secret, ceremony.ContributionSet{good[0], tampered, good[2]})
		assert.ErrorIs(t, err, ceremony.ErrInconsistentContribution)
	})
	t.Run("not a participant", func(t *testing.T) {
		outsider, _, err := GenerateIdentity()
		require.NoError(t, err)
		_, err = p.Finalize(outsider, good)
		assert.ErrorIs(t, err, ceremony.ErrInvalidSecretKey)
	})
	t.Run("garbage", func(t *testing.T) {
		_, err := p.Finalize(ps[0].secret, ceremony.ContributionSet{[]byte{0x01}})
		assert.ErrorIs(t, err, ErrMalformed)
	})
}

func TestSign_Preconditions(t *testing.T) {
	p := NewFROSTProtocol()
	ps := runDKG(t, 2, 3)
	other := runDKG(t, 2, 3)
	msg := []byte("payload")

	t.Run("insufficient signers", func(t *testing.T) {
		n, c, err := p.Commit(ps[0].out.Share)
		require.NoError(t, err)
		_, err = p.Sign(ps[0].out.Share, ps[0].out.SPP, ceremony.CommitmentSet{c}, n, nil, msg)
		assert.ErrorIs(t, err, ceremony.ErrInsufficientSigners)
	})
	t.Run("self commitment missing", func(t *testing.T) {
		n0, _, err := p.Commit(ps[0].out.Share)
		require.NoError(t, err)
		_, c1, err := p.Commit(ps[1].out.Share)
		require.NoError(t, err)
		_, c2, err := p.Commit(ps[2].out.Share)
		require.NoError(t, err)
		_, err = p.Sign(ps[0].out.Share, ps[0].out.SPP, ceremony.CommitmentSet{c1, c2}, n0, nil, msg)
		assert.ErrorIs(t, err, ceremony.ErrSelfCommitmentMissing)
	})
	t.Run("mismatched group", func(t *testing.T) {
		n0, c0, err := p.Commit(ps[0].out.Share)
		require.NoError(t, err)
		_, foreign, err := p.Commit(other[1].out.Share)
		require.NoError(t, err)
		_, err = p.Sign(ps[0].out.Share, ps[0].out.SPP, ceremony.CommitmentSet{c0, foreign}, n0, nil, msg)
		assert.ErrorIs(t, err, ceremony.ErrMismatchedGroup)
	})
	t.Run("duplicate signer", func(t *testing.T) {
		n0, c0, err := p.Commit(ps[0].out.Share)
		require.NoError(t, err)
		_, again, err := p.Commit(ps[0].out.Share)
		require.NoError(t, err)
		_, err = p.Sign(ps[0].out.Share, ps[0].out.SPP, ceremony.CommitmentSet{c0, again}, n0, nil, msg)
		assert.ErrorIs(t, err, ErrDuplicateSigner)
	})
	t.Run("nonces are single use", func(t *testing.T) {
		n0, c0, err := p.Commit(ps[0].out.Share)
		require.NoError(t, err)
		_, c1, err := p.Commit(ps[1].out.Share)
		require.NoError(t, err)
		set := ceremony.CommitmentSet{c0, c1}
		_, err = p.Sign(ps[0].out.Share, ps[0].out.SPP, set, n0, nil, msg)
		require.NoError(t, err)
		assert.True(t, n0.Consumed())
		_, err = p.Sign(ps[0].out.Share, ps[0].out.SPP, set, n0, nil, []byte("second message"))
		assert.ErrorIs(t, err, ceremony.ErrNoncesConsumed)
	})
}

func TestAggregate_Failures(t *testing.T) {
	p := NewFROSTProtocol()
	ps := runDKG(t, 2, 3)

	t.Run("message mismatch", func(t *testing.T) {
		n0, c0, err := p.Commit(ps[0].out.Share)
		require.NoError(t, err)
		n1, c1, err := p.Commit(ps[1].out.Share)
		require.NoError(t, err)
		set := ceremony.CommitmentSet{c0, c1}
		a, err := p.Sign(ps[0].out.Share, ps[0].out.SPP, set, n0, nil, []byte("one"))
		require.NoError(t, err)
		b, err := p.Sign(ps[1].out.Share, ps[1].out.SPP, set, n1, nil, []byte("two"))
		require.NoError(t, err)
		_, err = p.Aggregate(ceremony.PackageSet{a, b})
		assert.ErrorIs(t, err, ceremony.ErrMessageMismatch)
	})
	t.Run("insufficient packages", func(t *testing.T) {
		packages, err := signWith(t, ps[:2], []byte("short"))
		require.NoError(t, err)
		_, err = p.Aggregate(packages[:1])
		assert.ErrorIs(t, err, ceremony.ErrInsufficientSigners)
		_, err = p.Aggregate(nil)
		assert.ErrorIs(t, err, ceremony.ErrInsufficientSigners)
	})
	t.Run("missing committed signer", func(t *testing.T) {
		packages, err := signWith(t, ps, []byte("three committed"))
		require.NoError(t, err)
		_, err = p.Aggregate(packages[:2])
		assert.ErrorIs(t, err, ceremony.ErrInsufficientSigners)
	})
	t.Run("duplicate packages are tolerated", func(t *testing.T) {
		packages, err := signWith(t, ps[:2], []byte("dup"))
		require.NoError(t, err)
		sig, err := p.Aggregate(append(packages, packages[0]))
		require.NoError(t, err)
		assert.Len(t, sig, ed25519.SignatureSize)
	})
	t.Run("forged partial", func(t *testing.T) {
		packages, err := signWith(t, ps[:2], []byte("forged"))
		require.NoError(t, err)
		var m packageMarshal
		require.NoError(t, cbor.Unmarshal(packages[1], &m))
		m.Z = identifier(7).Bytes()
		forged, err := cbor.Marshal(&m)
		require.NoError(t, err)
		_, err = p.Aggregate(ceremony.PackageSet{packages[0], forged})
		assert.ErrorIs(t, err, ErrInvalidPartialSignature)
	})
}
