package main

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/substrate-mpc/pkg/artifact"
	"github.com/luxfi/substrate-mpc/pkg/ceremony"
	"github.com/luxfi/substrate-mpc/pkg/common/errors"
)

const testCeremony = "treasury"

type party struct {
	files    string
	keystore string
}

func run(t *testing.T, p party, args ...string) error {
	t.Helper()
	argv := append([]string{"thresholdctl",
		"--files-path", p.files,
		"--keystore", p.keystore,
		"--ceremony", testCeremony,
	}, args...)
	return newApp().Run(context.Background(), argv)
}

func setupParties(t *testing.T, n int) []party {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("THRESHOLDCTL_PASSPHRASE", "correct horse battery staple")
	t.Setenv("THRESHOLDCTL_KEYSTORE_WORK_FACTOR", "10")
	root := t.TempDir()
	parties := make([]party, n)
	for i := range parties {
		parties[i] = party{
			files:    filepath.Join(root, fmt.Sprintf("p%d", i), "artifacts"),
			keystore: filepath.Join(root, fmt.Sprintf("p%d", i), "keystore"),
		}
	}
	return parties
}

// collectAll merges key from every party's store into each party's store.
func collectAll(t *testing.T, parties []party, key string) {
	t.Helper()
	var from []string
	for _, p := range parties {
		from = append(from, "--from", p.files)
	}
	for _, p := range parties {
		require.NoError(t, run(t, p, append([]string{"collect", "--key", key}, from...)...))
	}
}

func TestKeygenThroughCLI(t *testing.T) {
	parties := setupParties(t, 2)

	for _, p := range parties {
		require.NoError(t, run(t, p, "identity"))
	}
	collectAll(t, parties, ceremony.KeyRecipients)
	for _, p := range parties {
		require.NoError(t, run(t, p, "dkg-round1", "--threshold", "2"))
	}
	collectAll(t, parties, ceremony.KeyContributions)
	for _, p := range parties {
		require.NoError(t, run(t, p, "dkg-round2"))
		require.NoError(t, run(t, p, "account"))
	}

	ctx := context.Background()
	var keys [][]byte
	for _, p := range parties {
		store, err := artifact.Open(ctx, artifact.Config{Backend: artifact.BackendFile, Path: p.files})
		require.NoError(t, err)
		raw, err := store.Get(ctx, testCeremony, ceremony.KeyThresholdAccount)
		require.NoError(t, err)
		acct, err := ceremony.UnmarshalDescriptor(raw)
		require.NoError(t, err)
		assert.Equal(t, 2, acct.Threshold)
		keys = append(keys, acct.PublicKey)
		require.NoError(t, store.Close())
	}
	assert.Equal(t, keys[0], keys[1])
}

func TestRoundBeforeBarrierFails(t *testing.T) {
	parties := setupParties(t, 2)
	for _, p := range parties {
		require.NoError(t, run(t, p, "identity"))
	}
	collectAll(t, parties, ceremony.KeyRecipients)
	require.NoError(t, run(t, parties[0], "dkg-round1", "--threshold", "2"))

	// the other participant's contribution never arrived
	err := run(t, parties[0], "dkg-round2")
	assert.ErrorIs(t, err, artifact.ErrNotFound)
	assert.Equal(t, errors.KindInputIO, errors.KindOf(err))
}

func TestAccountMissing(t *testing.T) {
	parties := setupParties(t, 1)
	err := run(t, parties[0], "account")
	assert.Equal(t, errors.KindInputIO, errors.KindOf(err))
}

func TestFlagErrors(t *testing.T) {
	parties := setupParties(t, 1)

	err := newApp().Run(context.Background(), []string{"thresholdctl", "--files-path", parties[0].files, "account"})
	assert.Equal(t, errors.KindArgumentParse, errors.KindOf(err))

	err = run(t, parties[0], "sign-aggregate", "--pallet", "System", "--call", "remark")
	assert.Equal(t, errors.KindArgumentParse, errors.KindOf(err))

	err = newApp().Run(context.Background(), []string{"thresholdctl", "--ceremony", "../x", "account"})
	assert.ErrorIs(t, err, ceremony.ErrInvalidID)
}

func TestCollectCopiesPinnedTransaction(t *testing.T) {
	parties := setupParties(t, 2)
	ctx := context.Background()
	scope, err := ceremony.Scope(testCeremony, "s1")
	require.NoError(t, err)

	preparer, err := artifact.Open(ctx, artifact.Config{Backend: artifact.BackendFile, Path: parties[0].files})
	require.NoError(t, err)
	require.NoError(t, preparer.Put(ctx, scope, ceremony.KeyUnsignedTx, []byte("pinned")))
	require.NoError(t, preparer.Close())

	require.NoError(t, run(t, parties[1], "--session", "s1", "collect", "--key", ceremony.KeyUnsignedTx, "--from", parties[0].files))

	signer, err := artifact.Open(ctx, artifact.Config{Backend: artifact.BackendFile, Path: parties[1].files})
	require.NoError(t, err)
	defer signer.Close()
	got, err := signer.Get(ctx, scope, ceremony.KeyUnsignedTx)
	require.NoError(t, err)
	assert.Equal(t, []byte("pinned"), got)
}
