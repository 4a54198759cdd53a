package chain

import (
	"context"
	"errors"
	"fmt"

	filestore "github.com/bnema/ppl-accounts-cli/internal/adapters/secrets/file"
	passstore "github.com/bnema/ppl-accounts-cli/internal/adapters/secrets/pass"
	"github.com/bnema/ppl-accounts-cli/internal/domain"
	"github.com/bnema/ppl-accounts-cli/internal/ports"
)

// Store writes to primary and falls back to the second store when primary is
// unusable. Reads consult the fallback too, since an earlier write may only
// have landed there.
type Store struct {
	primary  ports.KeyValueStore
	fallback ports.KeyValueStore
}

var _ ports.KeyValueStore = (*Store)(nil)

var (
	errNilPrimaryStore  = errors.New("primary store is nil")
	errNilFallbackStore = errors.New("fallback store is nil")
)

func NewStore(primary ports.KeyValueStore, fallback ports.KeyValueStore) *Store {
	store, err := NewStoreChecked(primary, fallback)
	if err != nil {
		panic(err)
	}

	return store
}

func NewStoreChecked(primary ports.KeyValueStore, fallback ports.KeyValueStore) (*Store, error) {
	if primary == nil {
		return nil, errNilPrimaryStore
	}
	if fallback == nil {
		return nil, errNilFallbackStore
	}

	return &Store{primary: primary, fallback: fallback}, nil
}

// NewPassFirstWithFileFallback prefers pass (optionally rooted at passDir)
// and falls back to plain files under fileRoot.
func NewPassFirstWithFileFallback(passDir string, fileRoot string) (*Store, error) {
	return NewStoreChecked(passstore.NewStoreAt(passDir), filestore.NewStore(fileRoot))
}

func (s *Store) Set(ctx context.Context, key string, value string) error {
	err := s.primary.Set(ctx, key, value)
	if err == nil {
		return nil
	}
	if shouldSkipFallback(err) {
		return err
	}

	fallbackErr := s.fallback.Set(ctx, key, value)
	if fallbackErr == nil {
		return nil
	}

	return fmt.Errorf("primary backend set failed: %w; fallback backend set failed: %w", err, fallbackErr)
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	value, err := s.primary.Get(ctx, key)
	if err == nil {
		return value, nil
	}
	if shouldSkipFallback(err) {
		return "", err
	}

	fallbackValue, fallbackErr := s.fallback.Get(ctx, key)
	if fallbackErr == nil {
		return fallbackValue, nil
	}

	primaryMissing := errors.Is(err, domain.ErrKeyNotFound)
	fallbackMissing := errors.Is(fallbackErr, domain.ErrKeyNotFound)
	switch {
	case primaryMissing && fallbackMissing:
		return "", fmt.Errorf("get %q: %w", key, domain.ErrKeyNotFound)
	case fallbackMissing:
		// The value may still live in an unreachable primary.
		return "", fmt.Errorf("primary backend get failed: %w", err)
	}

	return "", fmt.Errorf("primary backend get failed: %w; fallback backend get failed: %w", err, fallbackErr)
}

// Delete removes key from both stores.
func (s *Store) Delete(ctx context.Context, key string) error {
	err := s.primary.Delete(ctx, key)
	if shouldSkipFallback(err) {
		return err
	}

	fallbackErr := s.fallback.Delete(ctx, key)
	switch {
	case err == nil && fallbackErr == nil:
		return nil
	case err == nil:
		return fmt.Errorf("fallback backend delete failed: %w", fallbackErr)
	case fallbackErr == nil:
		if errors.Is(err, passstore.ErrUnavailable) {
			return nil
		}
		return fmt.Errorf("primary backend delete failed: %w", err)
	}

	return fmt.Errorf("primary backend delete failed: %w; fallback backend delete failed: %w", err, fallbackErr)
}

func shouldSkipFallback(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
