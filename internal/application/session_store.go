package application

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bnema/ppl-accounts-cli/internal/domain"
	"github.com/bnema/ppl-accounts-cli/internal/ports"
)

const DefaultAccountsCacheKey = "ppl/accounts/cache"

// SessionStore owns the cached account set. Load and Save are its only
// contact with durable storage; everything else works on the in-memory copy.
type SessionStore struct {
	kv  ports.KeyValueStore
	key string

	mu       sync.RWMutex
	accounts []domain.Account
}

func NewSessionStore(kv ports.KeyValueStore, key string) *SessionStore {
	if key == "" {
		key = DefaultAccountsCacheKey
	}

	return &SessionStore{kv: kv, key: key}
}

// Load replaces the in-memory set with the persisted one. On error the set is
// left empty.
func (s *SessionStore) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.accounts = nil

	raw, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, domain.ErrKeyNotFound) {
			return nil
		}
		return fmt.Errorf("read cached accounts: %w", err)
	}

	accounts, err := decodeAccounts(raw)
	if err != nil {
		return err
	}

	for _, account := range accounts {
		s.upsertLocked(account)
	}

	return nil
}

func (s *SessionStore) Save(ctx context.Context) error {
	s.mu.RLock()
	encoded, err := encodeAccounts(s.accounts)
	s.mu.RUnlock()
	if err != nil {
		return err
	}

	if err := s.kv.Set(ctx, s.key, encoded); err != nil {
		return fmt.Errorf("write cached accounts: %w", err)
	}

	return nil
}

func (s *SessionStore) Get(id domain.UserID) (domain.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexLocked(id)
	if i < 0 {
		return domain.Account{}, false
	}

	return cloneAccount(s.accounts[i]), true
}

// Upsert inserts account or replaces the entry with the same user id. The
// original AddedAt survives a replace.
func (s *SessionStore) Upsert(account domain.Account) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.upsertLocked(cloneAccount(account))
}

func (s *SessionStore) Remove(id domain.UserID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return false
	}

	s.accounts = append(s.accounts[:i], s.accounts[i+1:]...)
	return true
}

func (s *SessionStore) List() []domain.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()

	accounts := make([]domain.Account, 0, len(s.accounts))
	for _, account := range s.accounts {
		accounts = append(accounts, cloneAccount(account))
	}

	return accounts
}

func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.accounts)
}

func (s *SessionStore) upsertLocked(account domain.Account) bool {
	i := s.indexLocked(account.User.ID)
	if i < 0 {
		s.accounts = append(s.accounts, account)
		return true
	}

	if existing := s.accounts[i].AddedAt; !existing.IsZero() {
		account.AddedAt = existing
	}
	s.accounts[i] = account
	return false
}

func (s *SessionStore) indexLocked(id domain.UserID) int {
	for i := range s.accounts {
		if s.accounts[i].User.ID == id {
			return i
		}
	}

	return -1
}

func cloneAccount(account domain.Account) domain.Account {
	if account.Profile != nil {
		profile := *account.Profile
		account.Profile = &profile
	}

	return account
}
