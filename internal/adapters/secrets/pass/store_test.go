package pass

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/bnema/ppl-accounts-cli/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cacheKey = "ppl/accounts/cache"

func TestStoreSetUsesPassInsert(t *testing.T) {
	t.Parallel()

	called := false
	store := &Store{
		run: func(ctx context.Context, input string, args ...string) (string, string, error) {
			called = true
			assert.Equal(t, context.Background(), ctx)
			assert.Equal(t, []string{"insert", "--multiline", "--force", cacheKey}, args)
			assert.Equal(t, "{\"version\":1}\n", input)
			return "", "", nil
		},
	}

	err := store.Set(context.Background(), cacheKey, `{"version":1}`)
	require.NoError(t, err)
	assert.True(t, called)
}

func TestStoreGetUsesPassShowAndTrimsTrailingNewline(t *testing.T) {
	t.Parallel()

	store := &Store{
		run: func(ctx context.Context, input string, args ...string) (string, string, error) {
			assert.Equal(t, []string{"show", cacheKey}, args)
			assert.Empty(t, input)
			return "{\"version\":1}\r\n", "", nil
		},
	}

	value, err := store.Get(context.Background(), cacheKey)
	require.NoError(t, err)
	assert.Equal(t, `{"version":1}`, value)
}

func TestStoreGetMapsMissingEntryToNotFound(t *testing.T) {
	t.Parallel()

	store := &Store{
		run: func(ctx context.Context, input string, args ...string) (string, string, error) {
			return "", "Error: ppl/accounts/cache is not in the password store.", errors.New("exit status 1")
		},
	}

	_, err := store.Get(context.Background(), cacheKey)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)
}

func TestStoreGetReturnsClearError(t *testing.T) {
	t.Parallel()

	store := &Store{
		run: func(ctx context.Context, input string, args ...string) (string, string, error) {
			return "", "gpg: decryption failed: No secret key", errors.New("exit status 2")
		},
	}

	_, err := store.Get(context.Background(), cacheKey)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrKeyNotFound)
	assert.ErrorContains(t, err, "pass get")
	assert.ErrorContains(t, err, cacheKey)
	assert.ErrorContains(t, err, "No secret key")
}

func TestStoreDeleteUsesPassRemoveAndIgnoresMissing(t *testing.T) {
	t.Parallel()

	calls := 0
	store := &Store{
		run: func(ctx context.Context, input string, args ...string) (string, string, error) {
			calls++
			assert.Equal(t, []string{"rm", "--force", cacheKey}, args)
			assert.Empty(t, input)
			if calls == 2 {
				return "", "Error: ppl/accounts/cache is not in the password store.", errors.New("exit status 1")
			}
			return "", "", nil
		},
	}

	require.NoError(t, store.Delete(context.Background(), cacheKey))
	require.NoError(t, store.Delete(context.Background(), cacheKey))
	assert.Equal(t, 2, calls)
}

func TestStoreSkipsCommandWhenContextDone(t *testing.T) {
	t.Parallel()

	store := &Store{
		run: func(ctx context.Context, input string, args ...string) (string, string, error) {
			t.Fatal("pass must not run with a cancelled context")
			return "", "", nil
		},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, store.Set(ctx, cacheKey, "x"), context.Canceled)
	_, err := store.Get(ctx, cacheKey)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStoreAtExportsPasswordStoreDir(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake pass script needs a POSIX shell")
	}

	bin := t.TempDir()
	script := "#!/bin/sh\nprintf '%s' \"$PASSWORD_STORE_DIR\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(bin, "pass"), []byte(script), 0o755))
	t.Setenv("PATH", bin)

	storeDir := filepath.Join(t.TempDir(), "ppl-store")
	got, err := NewStoreAt("  "+storeDir+" ").Get(context.Background(), cacheKey)
	require.NoError(t, err)
	assert.Equal(t, storeDir, got)
}

func TestStoreReportsMissingPassBinary(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	err := NewStoreAt("").Set(context.Background(), cacheKey, "{}")
	assert.ErrorIs(t, err, ErrUnavailable)
}
