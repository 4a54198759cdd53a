package ports

import (
	"context"

	"github.com/bnema/ppl-accounts-cli/internal/domain"
)

// AuthService is the identity backend. Implementations keep their own notion
// of the current session, the way a browser client keeps it in local storage.
type AuthService interface {
	// CurrentSession returns domain.ErrNoSession when nobody is signed in.
	CurrentSession(ctx context.Context) (domain.AuthSession, error)
	SignIn(ctx context.Context, email, secret string) (domain.AuthSession, error)
	SignUp(ctx context.Context, email, secret string) (domain.AuthSession, error)
	// SetSession re-establishes a session from a cached token pair. The returned
	// tokens differ from the input when the backend rotated them.
	SetSession(ctx context.Context, tokens domain.Tokens) (domain.AuthSession, error)
	// SignOut forgets the current session and revokes it on the backend.
	SignOut(ctx context.Context) error
	// ForgetSession drops the locally remembered session and leaves its tokens
	// valid, so a cached copy can resume it later.
	ForgetSession(ctx context.Context) error
}

type ProfileRepository interface {
	// GetProfile returns nil, nil when the user has no profile row.
	GetProfile(ctx context.Context, id domain.UserID) (*domain.Profile, error)
}
