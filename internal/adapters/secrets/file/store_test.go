package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/bnema/ppl-accounts-cli/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRejectsInvalidKeys(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	testCases := []struct {
		name    string
		key     string
		wantErr string
	}{
		{name: "empty", key: "", wantErr: "storage key is empty"},
		{name: "whitespace", key: "   ", wantErr: "storage key is empty"},
		{name: "absolute", key: "/absolute/path", wantErr: "invalid storage key"},
		{name: "traversal", key: "../escape", wantErr: "invalid storage key"},
		{name: "deep traversal", key: "../../cache", wantErr: "invalid storage key"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := store.Set(context.Background(), tc.key, "value")
			require.Error(t, err)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestStoreSetGetRoundTripAndPermissions(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := NewStore(root)
	key := "ppl/accounts/cache"
	want := `{"version":1,"accounts":[]}`

	require.NoError(t, store.Set(context.Background(), key, want))

	got, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	info, err := os.Stat(filepath.Join(root, key))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(valueFileMod), info.Mode().Perm())
}

func TestStoreSetReplacesWithoutLeavingTempFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := NewStore(root)
	key := "ppl/accounts/cache"

	require.NoError(t, store.Set(context.Background(), key, "first"))
	require.NoError(t, store.Set(context.Background(), key, "second"))

	got, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, "second", got)

	entries, err := os.ReadDir(filepath.Join(root, "ppl", "accounts"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "cache", entries[0].Name())
}

func TestStoreGetMissingKeyReportsNotFound(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())

	_, err := store.Get(context.Background(), "ppl/accounts/cache")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)
}

func TestStoreHonoursCancelledContext(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Get(ctx, "ppl/accounts/cache")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, store.Set(ctx, "ppl/accounts/cache", "x"), context.Canceled)
}

func TestStoreDeleteIsIdempotentWhenValueMissing(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	key := "ppl/accounts/cache"

	require.NoError(t, store.Set(context.Background(), key, "value"))
	require.NoError(t, store.Delete(context.Background(), key))
	require.NoError(t, store.Delete(context.Background(), key))

	_, err := store.Get(context.Background(), key)
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)
}
