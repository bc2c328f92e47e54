package artifact

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/substrate-mpc/pkg/ceremony"
)

func testBackends(t *testing.T) map[string]Backend {
	t.Helper()
	file, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)
	bdg, err := NewBadgerBackend(BadgerConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = bdg.Close() })
	return map[string]Backend{
		"memory": NewMemoryBackend(),
		"file":   file,
		"badger": bdg,
	}
}

func TestStore_RoundTripPreservesBytes(t *testing.T) {
	ctx := context.Background()
	binary := []byte{0x00, 0xff, 0x10, '"', '\\', 0x7f}

	for name, backend := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			s := New(backend)
			require.NoError(t, s.Put(ctx, "ceremony-1", "threshold_public_key", binary))
			got, err := s.Get(ctx, "ceremony-1", "threshold_public_key")
			require.NoError(t, err)
			assert.Equal(t, binary, got)

			list := [][]byte{{0x01}, binary, {}}
			require.NoError(t, s.PutList(ctx, "ceremony-1", "contributions", list))
			gotList, err := s.GetList(ctx, "ceremony-1", "contributions")
			require.NoError(t, err)
			assert.Equal(t, list, gotList)

			require.NoError(t, s.Delete(ctx, "ceremony-1", "contributions"))
			_, err = s.GetList(ctx, "ceremony-1", "contributions")
			assert.ErrorIs(t, err, ErrNotFound)
			assert.NoError(t, s.Delete(ctx, "ceremony-1", "contributions"))
		})
	}
}

func TestStore_ShapeMismatchIsCorrupt(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryBackend())

	require.NoError(t, s.PutList(ctx, "c", "signing_packages", [][]byte{{1}, {2}}))
	_, err := s.Get(ctx, "c", "signing_packages")
	assert.ErrorIs(t, err, ErrCorrupt)

	require.NoError(t, s.Put(ctx, "c", "signature", []byte{1, 2, 3}))
	_, err = s.GetList(ctx, "c", "signature")
	assert.ErrorIs(t, err, ErrCorrupt)

	require.NoError(t, s.Backend().Put(ctx, "c/spp_output", []byte("not json")))
	_, err = s.Get(ctx, "c", "spp_output")
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestStore_EncodingIsBase64JSON(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	backend, err := NewFileBackend(dir)
	require.NoError(t, err)
	s := New(backend)

	require.NoError(t, s.Put(ctx, "c", "signature", []byte("hi")))
	require.NoError(t, s.PutList(ctx, "c", "recipients", [][]byte{[]byte("a"), []byte("b")}))

	single, err := os.ReadFile(filepath.Join(dir, "c", "signature.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `"aGk="`, string(single))

	list, err := os.ReadFile(filepath.Join(dir, "c", "recipients.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `["YQ==","Yg=="]`, string(list))
}

func TestStore_CollectBarrier(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryBackend())

	_, err := s.Collect(ctx, "c", "signing_commitments", 2)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.PutList(ctx, "c", "signing_commitments", [][]byte{{1}}))
	_, err = s.Collect(ctx, "c", "signing_commitments", 2)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, Append(ctx, s, "c", "signing_commitments", []byte{2}))
	require.NoError(t, Append(ctx, s, "c", "signing_commitments", []byte{2}))
	got, err := s.Collect(ctx, "c", "signing_commitments", 2)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{{1}, {2}}, got)
}

func TestStore_RejectsUnsafeAddresses(t *testing.T) {
	ctx := context.Background()
	backend, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)
	s := New(backend)

	assert.ErrorIs(t, s.Put(ctx, "..", "signature", []byte{1}), ceremony.ErrInvalidID)
	assert.ErrorIs(t, s.Put(ctx, "a/b", "signature", []byte{1}), ceremony.ErrInvalidID)
	assert.Error(t, s.Put(ctx, "c", "../escape", []byte{1}))
}

func TestMerge(t *testing.T) {
	ctx := context.Background()
	alice, bob, dst := New(NewMemoryBackend()), New(NewMemoryBackend()), New(NewMemoryBackend())

	require.NoError(t, alice.PutList(ctx, "c", "contributions", [][]byte{[]byte("alice")}))
	require.NoError(t, bob.PutList(ctx, "c", "contributions", [][]byte{[]byte("bob")}))

	merged, err := Merge(ctx, dst, "c", "contributions", alice, bob, alice)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("alice"), []byte("bob")}, merged)

	got, err := dst.GetList(ctx, "c", "contributions")
	require.NoError(t, err)
	assert.Equal(t, merged, got)

	_, err = Merge(ctx, dst, "c", "signing_packages", alice)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCopyAndRelay(t *testing.T) {
	ctx := context.Background()
	preparer, signer, other, dst := New(NewMemoryBackend()), New(NewMemoryBackend()), New(NewMemoryBackend()), New(NewMemoryBackend())
	scope := ceremony.ID("c.s1")

	require.NoError(t, preparer.Put(ctx, scope, "unsigned_transaction", []byte("tx")))

	// Merge cannot read a single artifact as a collection.
	_, err := Merge(ctx, dst, scope, "unsigned_transaction", preparer)
	assert.ErrorIs(t, err, ErrCorrupt)

	n, err := Relay(ctx, signer, scope, "unsigned_transaction", signer, preparer)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	got, err := signer.Get(ctx, scope, "unsigned_transaction")
	require.NoError(t, err)
	assert.Equal(t, []byte("tx"), got)

	require.NoError(t, preparer.PutList(ctx, scope, "signing_commitments", [][]byte{[]byte("a")}))
	require.NoError(t, signer.PutList(ctx, scope, "signing_commitments", [][]byte{[]byte("b")}))
	n, err = Relay(ctx, dst, scope, "signing_commitments", preparer, signer)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, other.Put(ctx, scope, "unsigned_transaction", []byte("rebuilt")))
	_, err = Copy(ctx, dst, scope, "unsigned_transaction", preparer, other)
	assert.ErrorIs(t, err, ErrCorrupt)

	_, err = Relay(ctx, dst, scope, "signature", preparer, signer)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCollectWait(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryBackend())

	start := time.Now()
	_, err := s.CollectWait(ctx, "c", "signing_packages", 1, 50*time.Millisecond, 10*time.Millisecond)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Less(t, time.Since(start), 5*time.Second)

	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = s.PutList(ctx, "c", "signing_packages", [][]byte{{9}})
	}()
	got, err := s.CollectWait(ctx, "c", "signing_packages", 1, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{{9}}, got)

	require.NoError(t, s.Put(ctx, "c", "signature", []byte{1}))
	_, err = s.CollectWait(ctx, "c", "signature", 1, time.Second, 10*time.Millisecond)
	assert.ErrorIs(t, err, ErrCorrupt, "only missing artifacts are retried")
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Config{Backend: BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryBackend{}, s.Backend())

	s, err = Open(ctx, Config{Path: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FileBackend{}, s.Backend())

	s, err = Open(ctx, Config{Backend: BackendBadger, Path: t.TempDir(), Options: map[string]any{"encryption_key": "0123456789abcdef"}})
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "c", "signature", []byte{1}))
	require.NoError(t, s.Close())

	_, err = Open(ctx, Config{Backend: BackendBadger, Options: map[string]any{"bogus": 1}})
	assert.Error(t, err)

	_, err = Open(ctx, Config{Backend: "carrier-pigeon"})
	assert.Error(t, err)
}
