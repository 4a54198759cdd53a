package gotrue

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bnema/ppl-accounts-cli/internal/domain"
	"github.com/bnema/ppl-accounts-cli/internal/ports"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const defaultRefreshSkew = 60 * time.Second

type AuthOptions struct {
	Clock ports.Clock
	// RefreshSkew is how close to expiry an access token may get before it is
	// refreshed instead of reused.
	RefreshSkew time.Duration
	Logger      *zap.Logger
}

// Auth is the identity backend over GoTrue. Its current session lives in a
// SessionRepository, the way the browser client keeps it in local storage.
type Auth struct {
	client   *Client
	sessions ports.SessionRepository
	clock    ports.Clock
	skew     time.Duration
	logger   *zap.Logger
}

var _ ports.AuthService = (*Auth)(nil)

type sessionResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
	ExpiresAt    int64        `json:"expires_at"`
	User         userResponse `json:"user"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// signupResponse is a session when the project auto-confirms, and a bare user
// when an email confirmation is pending.
type signupResponse struct {
	sessionResponse
	ID    string `json:"id"`
	Email string `json:"email"`
}

type passwordCredentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func NewAuth(client *Client, sessions ports.SessionRepository, opts AuthOptions) *Auth {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	skew := opts.RefreshSkew
	if skew <= 0 {
		skew = defaultRefreshSkew
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Auth{client: client, sessions: sessions, clock: clock, skew: skew, logger: logger}
}

func (a *Auth) CurrentSession(ctx context.Context) (domain.AuthSession, error) {
	session, err := a.sessions.Load(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNoSession) {
			return domain.AuthSession{}, err
		}
		return domain.AuthSession{}, fmt.Errorf("load current session: %w", err)
	}

	if !session.Tokens.ExpiringSoon(a.clock.Now(), a.skew) {
		return session, nil
	}

	refreshed, err := a.refresh(ctx, session.Tokens.RefreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrSessionExpired) {
			if clearErr := a.sessions.Clear(ctx); clearErr != nil {
				a.logger.Warn("clear expired session failed", zap.Error(clearErr))
			}
			return domain.AuthSession{}, fmt.Errorf("%w: %w", domain.ErrNoSession, err)
		}
		return domain.AuthSession{}, err
	}
	if refreshed.User.Email == "" {
		refreshed.User.Email = session.User.Email
	}

	a.remember(ctx, refreshed)
	return refreshed, nil
}

func (a *Auth) SignIn(ctx context.Context, email, secret string) (domain.AuthSession, error) {
	var payload sessionResponse
	err := a.client.do(ctx, request{
		method: http.MethodPost,
		path:   authPathPrefix + "token",
		query:  url.Values{"grant_type": {"password"}},
		body:   passwordCredentials{Email: email, Password: secret},
	}, &payload)
	if err != nil {
		return domain.AuthSession{}, fmt.Errorf("sign in: %w", mapPasswordGrantError(err))
	}

	session, err := a.toSession(payload)
	if err != nil {
		return domain.AuthSession{}, fmt.Errorf("sign in: %w", err)
	}

	a.remember(ctx, session)
	return session, nil
}

func (a *Auth) SignUp(ctx context.Context, email, secret string) (domain.AuthSession, error) {
	var payload signupResponse
	err := a.client.do(ctx, request{
		method: http.MethodPost,
		path:   authPathPrefix + "signup",
		body:   passwordCredentials{Email: email, Password: secret},
	}, &payload)
	if err != nil {
		return domain.AuthSession{}, fmt.Errorf("sign up: %w", mapSignupError(err))
	}

	if payload.AccessToken == "" {
		return domain.AuthSession{}, fmt.Errorf("sign up %s: %w", email, domain.ErrConfirmationRequired)
	}

	session, err := a.toSession(payload.sessionResponse)
	if err != nil {
		return domain.AuthSession{}, fmt.Errorf("sign up: %w", err)
	}

	a.remember(ctx, session)
	return session, nil
}

// SetSession reuses the access token while it is still valid and refreshes it
// otherwise.
func (a *Auth) SetSession(ctx context.Context, tokens domain.Tokens) (domain.AuthSession, error) {
	if tokens.IsZero() {
		return domain.AuthSession{}, fmt.Errorf("set session: %w: empty token pair", domain.ErrSessionExpired)
	}

	expiresAt := tokens.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = expiryOf(tokens.AccessToken)
	}

	if tokens.AccessToken != "" && expiresAt.After(a.clock.Now().Add(a.skew)) {
		user, err := a.getUser(ctx, tokens.AccessToken)
		switch {
		case err == nil:
			session := domain.AuthSession{
				User: user,
				Tokens: domain.Tokens{
					AccessToken:  tokens.AccessToken,
					RefreshToken: tokens.RefreshToken,
					ExpiresAt:    expiresAt,
				},
			}
			a.remember(ctx, session)
			return session, nil
		case !errors.Is(err, domain.ErrSessionExpired):
			return domain.AuthSession{}, fmt.Errorf("set session: %w", err)
		}
		a.logger.Debug("cached access token rejected, refreshing")
	}

	session, err := a.refresh(ctx, tokens.RefreshToken)
	if err != nil {
		return domain.AuthSession{}, fmt.Errorf("set session: %w", err)
	}

	a.remember(ctx, session)
	return session, nil
}

// ForgetSession clears the local session only. The backend still honours its
// tokens.
func (a *Auth) ForgetSession(ctx context.Context) error {
	if err := a.sessions.Clear(ctx); err != nil {
		return fmt.Errorf("clear local session: %w", err)
	}

	return nil
}

// SignOut forgets the local session first, then revokes it remotely on a best
// effort basis.
func (a *Auth) SignOut(ctx context.Context) error {
	session, loadErr := a.sessions.Load(ctx)
	if err := a.ForgetSession(ctx); err != nil {
		return err
	}
	if loadErr != nil || session.Tokens.AccessToken == "" {
		return nil
	}

	err := a.client.do(ctx, request{
		method: http.MethodPost,
		path:   authPathPrefix + "logout",
		query:  url.Values{"scope": {"local"}},
		bearer: session.Tokens.AccessToken,
	}, nil)
	if err != nil {
		a.logger.Debug("remote sign out failed", zap.String("user_id", string(session.User.ID)), zap.Error(err))
	}

	return nil
}

func (a *Auth) refresh(ctx context.Context, refreshToken string) (domain.AuthSession, error) {
	if refreshToken == "" {
		return domain.AuthSession{}, fmt.Errorf("refresh session: %w: no refresh token", domain.ErrSessionExpired)
	}

	var payload sessionResponse
	err := a.client.do(ctx, request{
		method: http.MethodPost,
		path:   authPathPrefix + "token",
		query:  url.Values{"grant_type": {"refresh_token"}},
		body:   refreshRequest{RefreshToken: refreshToken},
	}, &payload)
	if err != nil {
		return domain.AuthSession{}, fmt.Errorf("refresh session: %w", mapTokenRejection(err))
	}

	session, err := a.toSession(payload)
	if err != nil {
		return domain.AuthSession{}, fmt.Errorf("refresh session: %w", err)
	}

	return session, nil
}

func (a *Auth) getUser(ctx context.Context, accessToken string) (domain.User, error) {
	var payload userResponse
	err := a.client.do(ctx, request{
		method: http.MethodGet,
		path:   authPathPrefix + "user",
		bearer: accessToken,
	}, &payload)
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", mapTokenRejection(err))
	}
	if payload.ID == "" {
		return domain.User{}, errors.New("get user: response missing user id")
	}

	return domain.User{ID: domain.UserID(payload.ID), Email: payload.Email}, nil
}

func (a *Auth) toSession(payload sessionResponse) (domain.AuthSession, error) {
	if payload.AccessToken == "" {
		return domain.AuthSession{}, errors.New("token response missing access token")
	}

	user := domain.User{ID: domain.UserID(payload.User.ID), Email: payload.User.Email}
	if user.ID == "" {
		claims, err := peekClaims(payload.AccessToken)
		if err != nil || claims.Subject == "" {
			return domain.AuthSession{}, errors.New("token response missing user")
		}
		user = domain.User{ID: domain.UserID(claims.Subject), Email: claims.Email}
	}

	var expiresAt time.Time
	switch {
	case payload.ExpiresAt > 0:
		expiresAt = time.Unix(payload.ExpiresAt, 0).UTC()
	case payload.ExpiresIn > 0:
		expiresAt = a.clock.Now().Add(time.Duration(payload.ExpiresIn) * time.Second).UTC()
	default:
		expiresAt = expiryOf(payload.AccessToken)
	}

	return domain.AuthSession{
		User: user,
		Tokens: domain.Tokens{
			AccessToken:  payload.AccessToken,
			RefreshToken: payload.RefreshToken,
			ExpiresAt:    expiresAt,
		},
	}, nil
}

// remember persists session as the current one. A write failure only costs a
// sign-in on the next start, so it is logged.
func (a *Auth) remember(ctx context.Context, session domain.AuthSession) {
	if err := a.sessions.Save(ctx, session); err != nil {
		a.logger.Warn("persist current session failed", zap.String("user_id", string(session.User.ID)), zap.Error(err))
	}
}

func mapPasswordGrantError(err error) error {
	apiErr, ok := asAPIError(err)
	if !ok {
		return err
	}

	switch {
	case apiErr.Status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", domain.ErrRateLimited, apiErr)
	case apiErr.Code == "email_not_confirmed" || strings.Contains(strings.ToLower(apiErr.Message), "email not confirmed"):
		return fmt.Errorf("%w: %w", domain.ErrConfirmationRequired, apiErr)
	case apiErr.Status == http.StatusBadRequest, apiErr.Code == "invalid_credentials", apiErr.Code == "invalid_grant":
		return fmt.Errorf("%w: %w", domain.ErrInvalidCredentials, apiErr)
	}

	return apiErr
}

func mapSignupError(err error) error {
	apiErr, ok := asAPIError(err)
	if !ok {
		return err
	}

	switch {
	case apiErr.Status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", domain.ErrRateLimited, apiErr)
	case apiErr.Code == "user_already_exists", apiErr.Code == "email_exists",
		strings.Contains(strings.ToLower(apiErr.Message), "already registered"):
		return fmt.Errorf("%w: %w", domain.ErrUserAlreadyExists, apiErr)
	}

	return apiErr
}

func mapTokenRejection(err error) error {
	apiErr, ok := asAPIError(err)
	if !ok {
		return err
	}

	switch apiErr.Status {
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", domain.ErrRateLimited, apiErr)
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return fmt.Errorf("%w: %w", domain.ErrSessionExpired, apiErr)
	}

	return apiErr
}
