package ceremony

import (
	"crypto/ed25519"
	"crypto/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDValidate(t *testing.T) {
	assert.NoError(t, ID("dkg-2024_01a").Validate())
	assert.NoError(t, ID("1f0e2c64-8a7b-4c1d-9e3f-5a6b7c8d9e0f").Validate())
	for _, bad := range []string{"", "..", "../etc", "a/b", "dao.x", ".hidden", "-flag", "_x", strings.Repeat("a", 65)} {
		assert.ErrorIs(t, ID(bad).Validate(), ErrInvalidID, bad)
	}
}

func TestScope(t *testing.T) {
	scope, err := Scope("dao", "x1")
	require.NoError(t, err)
	assert.Equal(t, ID("dao.x1"), scope)
	require.NoError(t, scope.ValidateScope())

	same, err := Scope("dao", "")
	require.NoError(t, err)
	assert.Equal(t, ID("dao"), same)

	// dotted halves would let two ceremonies share one scope
	_, err = Scope("dao", "x.1")
	assert.ErrorIs(t, err, ErrInvalidID)
	_, err = Scope("dao.x", "1")
	assert.ErrorIs(t, err, ErrInvalidID)

	long, err := Scope(ID(strings.Repeat("c", 64)), ID(strings.Repeat("s", 64)))
	require.NoError(t, err)
	assert.NoError(t, long.ValidateScope())

	for _, bad := range []string{"a.b.c", "a.", ".a", "a..b"} {
		assert.ErrorIs(t, ID(bad).ValidateScope(), ErrInvalidID, bad)
	}
}

func TestSigningNoncesTakeOnce(t *testing.T) {
	n := NewSigningNonces([]byte{1, 2, 3})
	assert.False(t, n.Consumed())

	got, err := n.Take()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got)
	assert.True(t, n.Consumed())

	_, err = n.Take()
	assert.ErrorIs(t, err, ErrNoncesConsumed)

	var missing *SigningNonces
	_, err = missing.Take()
	assert.ErrorIs(t, err, ErrNoncesConsumed)
}

func TestCommitmentSetContains(t *testing.T) {
	set := CommitmentSet{{1, 2}, {3, 4}}
	assert.True(t, set.Contains(SigningCommitment{3, 4}))
	assert.False(t, set.Contains(SigningCommitment{3}))
}

func TestAccountDescriptor(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	acct := ThresholdAccount{
		PublicKey:    ThresholdPublicKey(pub),
		Threshold:    2,
		Participants: []ParticipantKey{"a", "b", "c"},
	}
	data, err := acct.MarshalDescriptor("5Gx")
	require.NoError(t, err)

	back, err := UnmarshalDescriptor(data)
	require.NoError(t, err)
	assert.Equal(t, acct, back)

	acct.Threshold = 4
	assert.ErrorIs(t, acct.Validate(), ErrInvalidThreshold)
}

func TestCallIntent(t *testing.T) {
	c := NewCallIntent("Balances", "transfer_keep_alive", []string{"(1,", "2)"})
	assert.Equal(t, "(1, 2)", c.Args)
	assert.True(t, c.Same(CallIntent{Pallet: "Balances", Call: "transfer_keep_alive", Args: " (1, 2) "}))
	assert.Error(t, CallIntent{Pallet: "System"}.Validate())
}
