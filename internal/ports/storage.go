package ports

import (
	"context"

	"github.com/bnema/ppl-accounts-cli/internal/domain"
)

type KeyValueStore interface {
	// Get returns domain.ErrKeyNotFound when key is absent.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}

type SessionRepository interface {
	// Load returns domain.ErrNoSession when nothing is persisted.
	Load(ctx context.Context) (domain.AuthSession, error)
	Save(ctx context.Context, session domain.AuthSession) error
	Clear(ctx context.Context) error
}
