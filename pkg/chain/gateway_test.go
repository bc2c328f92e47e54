package chain

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/substrate-mpc/pkg/ceremony"
)

type fakeNode struct {
	mu        sync.Mutex
	meta      *Metadata
	nonce     uint64
	genesis   Hash
	submitted [][]byte
	queried   []string
	metaCalls int
}

func newFakeNode() *fakeNode {
	n := &fakeNode{meta: testMetadata(), nonce: 7}
	n.genesis[0] = 0x91
	return n
}

func (n *fakeNode) Metadata(context.Context) (*Metadata, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.metaCalls++
	return n.meta, nil
}

func (n *fakeNode) RuntimeVersion(context.Context) (RuntimeVersion, error) {
	return RuntimeVersion{SpecVersion: 1002000, TransactionVersion: 26}, nil
}

func (n *fakeNode) GenesisHash(context.Context) (Hash, error) { return n.genesis, nil }

func (n *fakeNode) AccountNextIndex(_ context.Context, address string) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.queried = append(n.queried, address)
	return n.nonce, nil
}

func (n *fakeNode) SubmitExtrinsic(_ context.Context, ext []byte) (Hash, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.submitted = append(n.submitted, ext)
	n.nonce++
	return Hash{0x01}, nil
}

func (n *fakeNode) Close() {}

func transferIntent() ceremony.CallIntent {
	return ceremony.NewCallIntent("Balances", "transfer_keep_alive", []string{"(" + aliceSS58 + ",", "1_000_000_000_000)"})
}

func TestSubstrate_PrepareAndSubmit(t *testing.T) {
	ctx := context.Background()
	node := newFakeNode()
	gw := NewSubstrate(node, 42)

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	account := ceremony.ThresholdPublicKey(pub)

	intent := transferIntent()
	tx, err := gw.Prepare(ctx, account, intent, mustParse(t, intent.Args))
	require.NoError(t, err)

	assert.Equal(t, uint64(7), tx.Nonce)
	assert.Equal(t, "0503"+"00"+aliceHex+"070010a5d4e8", hex.EncodeToString(tx.Call))
	assert.Equal(t, []byte{0x00, 0x1c, 0x00}, tx.Extra)
	assert.Equal(t, SigningPayload(tx.Call, tx.Extra, tx.Additional), tx.Payload)
	assert.Equal(t, uint32(1002000), tx.SpecVersion)
	assert.Equal(t, node.genesis, tx.GenesisHash)

	addr, err := gw.Address(account)
	require.NoError(t, err)
	assert.Equal(t, []string{addr}, node.queried)

	sig := ed25519.Sign(priv, tx.Payload)
	hash, err := gw.Submit(ctx, tx, sig)
	require.NoError(t, err)
	assert.Equal(t, Hash{0x01}, hash)

	require.Len(t, node.submitted, 1)
	ext := node.submitted[0]
	var body []byte
	body = append(body, 0x84, 0x00)
	body = append(body, pub...)
	body = append(body, 0x00)
	body = append(body, sig...)
	body = append(body, tx.Extra...)
	body = append(body, tx.Call...)
	assert.Equal(t, append(EncodeCompact(uint64(len(body))), body...), ext)

	// metadata is fetched once per gateway
	assert.Equal(t, 1, node.metaCalls)
}

func TestSubstrate_SubmitStaleNonce(t *testing.T) {
	ctx := context.Background()
	node := newFakeNode()
	gw := NewSubstrate(node, 42)

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	intent := transferIntent()
	tx, err := gw.Prepare(ctx, ceremony.ThresholdPublicKey(pub), intent, mustParse(t, intent.Args))
	require.NoError(t, err)

	node.mu.Lock()
	node.nonce++
	node.mu.Unlock()

	_, err = gw.Submit(ctx, tx, ed25519.Sign(priv, tx.Payload))
	assert.ErrorIs(t, err, ErrStaleNonce)
	assert.Empty(t, node.submitted)
}

func TestSubstrate_SubmitBadSignatureLength(t *testing.T) {
	ctx := context.Background()
	node := newFakeNode()
	gw := NewSubstrate(node, 42)

	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	intent := transferIntent()
	tx, err := gw.Prepare(ctx, ceremony.ThresholdPublicKey(pub), intent, mustParse(t, intent.Args))
	require.NoError(t, err)

	_, err = gw.Submit(ctx, tx, make([]byte, 63))
	assert.ErrorIs(t, err, ceremony.ErrInvalidSignature)
}

func TestSubstrate_PrepareRejects(t *testing.T) {
	ctx := context.Background()
	gw := NewSubstrate(newFakeNode(), 42)
	pub := make([]byte, 32)

	_, err := gw.Prepare(ctx, pub, ceremony.CallIntent{Call: "remark"}, mustParse(t))
	assert.Error(t, err)

	_, err = gw.Prepare(ctx, pub, ceremony.NewCallIntent("Nope", "nope", nil), mustParse(t))
	assert.ErrorIs(t, err, ErrUnknownCall)

	_, err = gw.Prepare(ctx, make([]byte, 5), ceremony.NewCallIntent("System", "remark", nil), mustParse(t, `"x"`))
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestUnsignedTransaction_RoundTrip(t *testing.T) {
	ctx := context.Background()
	gw := NewSubstrate(newFakeNode(), 42)
	pub := make([]byte, 32)
	pub[0] = 1

	intent := ceremony.NewCallIntent("System", "remark", []string{`"hi"`})
	tx, err := gw.Prepare(ctx, pub, intent, mustParse(t, intent.Args))
	require.NoError(t, err)

	data, err := tx.Marshal()
	require.NoError(t, err)
	got, err := UnmarshalUnsignedTransaction(data)
	require.NoError(t, err)
	assert.Equal(t, tx, got)

	tx.Call = append(tx.Call, 0x00)
	data, err = tx.Marshal()
	require.NoError(t, err)
	_, err = UnmarshalUnsignedTransaction(data)
	assert.ErrorIs(t, err, ceremony.ErrMessageMismatch)
}

func TestSigningPayload_HashesLongPayloads(t *testing.T) {
	short := SigningPayload(make([]byte, 100), []byte{1}, []byte{2})
	assert.Len(t, short, 102)

	long := SigningPayload(make([]byte, 300), nil, nil)
	assert.Len(t, long, 32)
}
