package application

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	filestore "github.com/bnema/ppl-accounts-cli/internal/adapters/secrets/file"
	"github.com/bnema/ppl-accounts-cli/internal/domain"
	"github.com/bnema/ppl-accounts-cli/internal/ports/mocks"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStoreLoadMissingKeyIsEmpty(t *testing.T) {
	t.Parallel()

	store := NewSessionStore(filestore.NewStore(t.TempDir()), "")
	require.NoError(t, store.Load(context.Background()))
	assert.Zero(t, store.Len())
}

func TestSessionStoreRoundTrip(t *testing.T) {
	t.Parallel()

	kv := filestore.NewStore(t.TempDir())
	store := NewSessionStore(kv, "")
	accounts := []domain.Account{
		{
			User:       domain.User{ID: "user-a", Email: "a@x.com"},
			Profile:    &domain.Profile{DisplayName: "Alex", AvatarURL: "https://cdn.example/a.png", HeightCM: 181, WeightKG: 82.5, Goal: "strength"},
			Tokens:     domain.Tokens{AccessToken: "access-a", RefreshToken: "refresh-a", ExpiresAt: time.Unix(1893456000, 0).UTC()},
			AddedAt:    fixedNow.Add(-time.Hour),
			LastUsedAt: fixedNow,
		},
		{
			User:   domain.User{ID: "user-b", Email: "b@x.com"},
			Tokens: domain.Tokens{AccessToken: "access-b", RefreshToken: "refresh-b"},
		},
	}
	for _, account := range accounts {
		assert.True(t, store.Upsert(account))
	}
	require.NoError(t, store.Save(context.Background()))

	reloaded := NewSessionStore(kv, "")
	require.NoError(t, reloaded.Load(context.Background()))

	byID := cmpopts.SortSlices(func(a, b domain.Account) bool { return a.User.ID < b.User.ID })
	if diff := cmp.Diff(accounts, reloaded.List(), byID); diff != "" {
		t.Fatalf("reloaded accounts mismatch (-want +got):\n%s", diff)
	}
}

func TestSessionStoreUpsertReplacesByUserID(t *testing.T) {
	t.Parallel()

	store := NewSessionStore(filestore.NewStore(t.TempDir()), "")
	first := accountA()
	first.AddedAt = fixedNow.Add(-24 * time.Hour)
	assert.True(t, store.Upsert(first))

	second := accountA()
	second.Tokens = domain.Tokens{AccessToken: "access-a2", RefreshToken: "refresh-a2"}
	second.AddedAt = fixedNow
	assert.False(t, store.Upsert(second))

	require.Equal(t, 1, store.Len())
	got, ok := store.Get("user-a")
	require.True(t, ok)
	assert.Equal(t, second.Tokens, got.Tokens)
	assert.Equal(t, first.AddedAt, got.AddedAt)
}

func TestSessionStoreReturnsCopies(t *testing.T) {
	t.Parallel()

	store := NewSessionStore(filestore.NewStore(t.TempDir()), "")
	store.Upsert(accountA())

	got, _ := store.Get("user-a")
	got.Profile.DisplayName = "mutated"

	again, _ := store.Get("user-a")
	assert.Equal(t, "Alex", again.Profile.DisplayName)
}

func TestSessionStoreLoadAcceptsLegacyArray(t *testing.T) {
	t.Parallel()

	kv := filestore.NewStore(t.TempDir())
	legacy := `[{"user":{"id":"user-a","email":"a@x.com"},"access_token":"access-a","refresh_token":"refresh-a"},
{"user":{"id":"user-a","email":"a@x.com"},"access_token":"access-a2","refresh_token":"refresh-a2"}]`
	require.NoError(t, kv.Set(context.Background(), DefaultAccountsCacheKey, legacy))

	store := NewSessionStore(kv, "")
	require.NoError(t, store.Load(context.Background()))

	require.Equal(t, 1, store.Len(), "duplicate ids collapse on load")
	got, _ := store.Get("user-a")
	assert.Equal(t, "access-a2", got.Tokens.AccessToken)
}

func TestSessionStoreLoadErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		wantErr string
	}{
		{name: "malformed json", raw: "{", wantErr: "decode accounts"},
		{name: "future version", raw: `{"version":2,"accounts":[]}`, wantErr: "unsupported accounts blob version 2"},
		{name: "missing user id", raw: `{"version":1,"accounts":[{"user":{"email":"a@x.com"}}]}`, wantErr: "entry without user id"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			kv := filestore.NewStore(t.TempDir())
			require.NoError(t, kv.Set(context.Background(), DefaultAccountsCacheKey, tt.raw))

			store := NewSessionStore(kv, "")
			store.Upsert(accountB())
			err := store.Load(context.Background())
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.wantErr)
			assert.Zero(t, store.Len())
		})
	}
}

func TestSessionStoreLoadPropagatesReadError(t *testing.T) {
	t.Parallel()

	kv := mocks.NewMockKeyValueStore(t)
	readErr := errors.New("pass: gpg agent locked")
	kv.EXPECT().Get(mockAnyContext(), "custom/key").Return("", readErr).Once()

	store := NewSessionStore(kv, "custom/key")
	err := store.Load(context.Background())
	require.ErrorIs(t, err, readErr)
}

// scriptedBackend is a deterministic identity backend used to drive long
// random operation sequences against the manager.
type scriptedBackend struct {
	users    map[string]domain.User
	secrets  map[string]string
	rotation int
	current  *domain.AuthSession
	rng      *rand.Rand
}

func newScriptedBackend(seed int64) *scriptedBackend {
	return &scriptedBackend{
		users:   map[string]domain.User{},
		secrets: map[string]string{},
		rng:     rand.New(rand.NewSource(seed)),
	}
}

func (b *scriptedBackend) issue(user domain.User) domain.AuthSession {
	b.rotation++
	session := domain.AuthSession{
		User: user,
		Tokens: domain.Tokens{
			AccessToken:  fmt.Sprintf("access-%s-%d", user.ID, b.rotation),
			RefreshToken: fmt.Sprintf("refresh-%s-%d", user.ID, b.rotation),
		},
	}
	b.current = &session
	return session
}

func (b *scriptedBackend) CurrentSession(context.Context) (domain.AuthSession, error) {
	if b.current == nil {
		return domain.AuthSession{}, domain.ErrNoSession
	}
	return *b.current, nil
}

func (b *scriptedBackend) SignIn(_ context.Context, email, secret string) (domain.AuthSession, error) {
	user, ok := b.users[email]
	if !ok || b.secrets[email] != secret {
		return domain.AuthSession{}, domain.ErrInvalidCredentials
	}
	return b.issue(user), nil
}

func (b *scriptedBackend) SignUp(_ context.Context, email, secret string) (domain.AuthSession, error) {
	if _, ok := b.users[email]; ok {
		return domain.AuthSession{}, domain.ErrUserAlreadyExists
	}
	user := domain.User{ID: domain.UserID("id-" + email), Email: email}
	b.users[email] = user
	b.secrets[email] = secret
	return b.issue(user), nil
}

func (b *scriptedBackend) SetSession(_ context.Context, tokens domain.Tokens) (domain.AuthSession, error) {
	if b.rng.Intn(5) == 0 {
		return domain.AuthSession{}, domain.ErrSessionExpired
	}
	for _, user := range b.users {
		if len(tokens.AccessToken) > len("access-")+len(user.ID) && tokens.AccessToken[len("access-"):len("access-")+len(user.ID)] == string(user.ID) {
			return b.issue(user), nil
		}
	}
	return domain.AuthSession{}, domain.ErrSessionExpired
}

func (b *scriptedBackend) SignOut(context.Context) error {
	b.current = nil
	return nil
}

func (b *scriptedBackend) ForgetSession(context.Context) error {
	b.current = nil
	return nil
}

func TestRandomOperationSequencesNeverDuplicateAccounts(t *testing.T) {
	t.Parallel()

	emails := []string{"a@x.com", "b@x.com", "c@x.com", "d@x.com"}

	for seed := int64(1); seed <= 20; seed++ {
		backend := newScriptedBackend(seed)
		kv := filestore.NewStore(t.TempDir())
		store := NewSessionStore(kv, "")
		manager := NewSessionManager(store, backend, nil, SessionManagerOptions{Clock: clockwork.NewFakeClockAt(fixedNow), EvictOnAuthFailure: seed%2 == 0})
		require.NoError(t, manager.Initialize(context.Background()))

		rng := rand.New(rand.NewSource(seed))
		for step := 0; step < 60; step++ {
			email := emails[rng.Intn(len(emails))]
			switch rng.Intn(4) {
			case 0:
				_ = manager.AddAccount(context.Background(), AddAccountCommand{Email: email, Secret: "pw", Mode: domain.AuthModeRegister})
			case 1:
				_ = manager.AddAccount(context.Background(), AddAccountCommand{Email: email, Secret: "pw"})
			case 2:
				_ = manager.SwitchTo(context.Background(), domain.UserID("id-"+email))
			case 3:
				wasActive := manager.activeID()
				before, hadActive := manager.Active()
				_ = manager.RemoveAccount(context.Background(), domain.UserID("id-"+email))
				if wasActive == domain.UserID("id-"+email) {
					assert.Equal(t, domain.SessionStateUnauthenticated, manager.State())
				} else if hadActive {
					after, _ := manager.Active()
					assert.Equal(t, before.User.ID, after.User.ID)
				}
			}

			seen := map[domain.UserID]struct{}{}
			for _, account := range manager.Accounts() {
				_, dup := seen[account.User.ID]
				require.False(t, dup, "seed %d step %d: duplicate %s", seed, step, account.User.ID)
				seen[account.User.ID] = struct{}{}
			}
		}

		reloaded := NewSessionStore(kv, "")
		require.NoError(t, reloaded.Load(context.Background()))
		assert.ElementsMatch(t, tokenPairs(manager.Accounts()), tokenPairs(reloaded.List()), "seed %d", seed)
	}
}

func tokenPairs(accounts []domain.Account) []string {
	pairs := make([]string, 0, len(accounts))
	for _, account := range accounts {
		pairs = append(pairs, fmt.Sprintf("%s=%s/%s", account.User.ID, account.Tokens.AccessToken, account.Tokens.RefreshToken))
	}
	return pairs
}
