package toml

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	filestore "github.com/bnema/ppl-accounts-cli/internal/adapters/secrets/file"
	"github.com/bnema/ppl-accounts-cli/internal/domain"
	portmocks "github.com/bnema/ppl-accounts-cli/internal/ports/mocks"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) (*Repository, string, *filestore.Store) {
	t.Helper()

	dir := t.TempDir()
	sessionPath := filepath.Join(dir, "session.toml")
	config := viper.New()
	config.Set("session.path", sessionPath)

	secrets := filestore.NewStore(filepath.Join(dir, "secrets"))
	repo, err := NewRepository(config, secrets)
	require.NoError(t, err)

	return repo, sessionPath, secrets
}

func testSession() domain.AuthSession {
	return domain.AuthSession{
		User: domain.User{ID: "user-a", Email: "a@x.com"},
		Tokens: domain.Tokens{
			AccessToken:  "access-a",
			RefreshToken: "refresh-a",
			ExpiresAt:    time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC),
		},
	}
}

func TestRepositoryRoundTrip(t *testing.T) {
	t.Parallel()

	repo, _, _ := newTestRepository(t)
	want := testSession()

	require.NoError(t, repo.Save(context.Background(), want))

	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRepositoryLoadWithoutFileReportsNoSession(t *testing.T) {
	t.Parallel()

	repo, _, _ := newTestRepository(t)

	_, err := repo.Load(context.Background())
	require.ErrorIs(t, err, domain.ErrNoSession)
}

func TestRepositoryKeepsTokensOutOfMetadataFile(t *testing.T) {
	t.Parallel()

	repo, sessionPath, secrets := newTestRepository(t)
	require.NoError(t, repo.Save(context.Background(), testSession()))

	data, err := os.ReadFile(sessionPath)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "version = 1")
	assert.Contains(t, content, "user_id = 'user-a'")
	assert.Contains(t, content, "secret_ref = 'ppl/session/user-a'")
	assert.NotContains(t, content, "access-a")
	assert.NotContains(t, content, "refresh-a")

	raw, err := secrets.Get(context.Background(), "ppl/session/user-a")
	require.NoError(t, err)
	assert.JSONEq(t, `{"access_token":"access-a","refresh_token":"refresh-a"}`, raw)

	info, err := os.Stat(sessionPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(sessionFileMode), info.Mode().Perm())
}

func TestRepositorySaveForAnotherUserDropsStaleTokens(t *testing.T) {
	t.Parallel()

	repo, _, secrets := newTestRepository(t)
	require.NoError(t, repo.Save(context.Background(), testSession()))

	other := domain.AuthSession{
		User:   domain.User{ID: "user-b", Email: "b@x.com"},
		Tokens: domain.Tokens{AccessToken: "access-b", RefreshToken: "refresh-b"},
	}
	require.NoError(t, repo.Save(context.Background(), other))

	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, other, got)

	_, err = secrets.Get(context.Background(), "ppl/session/user-a")
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)
}

func TestRepositoryClearRemovesBothHalves(t *testing.T) {
	t.Parallel()

	repo, sessionPath, secrets := newTestRepository(t)
	require.NoError(t, repo.Save(context.Background(), testSession()))

	require.NoError(t, repo.Clear(context.Background()))
	require.NoError(t, repo.Clear(context.Background()))

	_, err := os.Stat(sessionPath)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	_, err = secrets.Get(context.Background(), "ppl/session/user-a")
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)

	_, err = repo.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoSession)
}

func TestRepositoryLoadWithMissingTokensReportsNoSession(t *testing.T) {
	t.Parallel()

	repo, _, secrets := newTestRepository(t)
	require.NoError(t, repo.Save(context.Background(), testSession()))
	require.NoError(t, secrets.Delete(context.Background(), "ppl/session/user-a"))

	_, err := repo.Load(context.Background())
	require.ErrorIs(t, err, domain.ErrNoSession)
}

func TestRepositoryMalformedTOMLReturnsErrorButCanBeOverwritten(t *testing.T) {
	t.Parallel()

	repo, sessionPath, _ := newTestRepository(t)
	require.NoError(t, os.WriteFile(sessionPath, []byte("session = ["), 0o600))

	_, err := repo.Load(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "decode session file")

	require.NoError(t, repo.Save(context.Background(), testSession()))
	_, err = repo.Load(context.Background())
	require.NoError(t, err)
}

func TestRepositoryFutureSchemaVersionReturnsError(t *testing.T) {
	t.Parallel()

	repo, sessionPath, _ := newTestRepository(t)
	require.NoError(t, os.WriteFile(sessionPath, []byte(strings.Join([]string{
		"version = 999",
		"",
	}, "\n")), 0o600))

	_, err := repo.Load(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "unsupported session schema version")
}

func TestRepositorySaveRestoresPreviousTokensWhenFileWriteFails(t *testing.T) {
	t.Parallel()

	repo, _, secrets := newTestRepository(t)
	require.NoError(t, repo.Save(context.Background(), testSession()))

	writeErr := errors.New("disk full")
	repo.write = func(fileSchema) error { return writeErr }

	rotated := testSession()
	rotated.Tokens.AccessToken = "access-a2"
	rotated.Tokens.RefreshToken = "refresh-a2"

	err := repo.Save(context.Background(), rotated)
	require.ErrorIs(t, err, writeErr)

	raw, err := secrets.Get(context.Background(), "ppl/session/user-a")
	require.NoError(t, err)
	assert.JSONEq(t, `{"access_token":"access-a","refresh_token":"refresh-a"}`, raw)
}

func TestRepositorySaveReportsRollbackFailure(t *testing.T) {
	t.Parallel()

	secrets := portmocks.NewMockKeyValueStore(t)
	config := viper.New()
	config.Set("session.path", filepath.Join(t.TempDir(), "session.toml"))
	repo, err := NewRepository(config, secrets)
	require.NoError(t, err)

	writeErr := errors.New("disk full")
	rollbackErr := errors.New("rollback failed")
	repo.write = func(fileSchema) error { return writeErr }

	secrets.EXPECT().Get(mock.Anything, "ppl/session/user-a").Return("", domain.ErrKeyNotFound).Once()
	secrets.EXPECT().Set(mock.Anything, "ppl/session/user-a", mock.AnythingOfType("string")).Return(nil).Once()
	secrets.EXPECT().Delete(mock.Anything, "ppl/session/user-a").Return(rollbackErr).Once()

	err = repo.Save(context.Background(), testSession())
	require.Error(t, err)
	assert.ErrorIs(t, err, writeErr)
	assert.ErrorIs(t, err, rollbackErr)
}

func TestRepositorySaveCanceledContextReturnsContextError(t *testing.T) {
	t.Parallel()

	repo, _, _ := newTestRepository(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := repo.Save(ctx, testSession())
	require.ErrorIs(t, err, context.Canceled)
}

func TestRepositoryDefaultPathUsesHome(t *testing.T) {
	homeDir := t.TempDir()
	t.Setenv("HOME", homeDir)

	repo, err := NewRepository(viper.New(), filestore.NewStore(t.TempDir()))
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), testSession()))
	assert.FileExists(t, filepath.Join(homeDir, ".ppl", "session.toml"))
}
