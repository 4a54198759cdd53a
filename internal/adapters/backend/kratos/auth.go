package kratos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bnema/ppl-accounts-cli/internal/domain"
	"github.com/bnema/ppl-accounts-cli/internal/ports"
	"github.com/jonboulle/clockwork"
	kratos "github.com/ory/kratos-client-go"
	"go.uber.org/zap"
)

const passwordMethod = "password"

type AuthOptions struct {
	Clock  ports.Clock
	Logger *zap.Logger
}

// Auth is the identity backend over Kratos native API flows. Kratos issues a
// single session token, so it fills both halves of the token pair and never
// rotates.
type Auth struct {
	gateway  *Gateway
	sessions ports.SessionRepository
	clock    ports.Clock
	logger   *zap.Logger
}

var _ ports.AuthService = (*Auth)(nil)

func NewAuth(gateway *Gateway, sessions ports.SessionRepository, opts AuthOptions) *Auth {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Auth{gateway: gateway, sessions: sessions, clock: clock, logger: logger}
}

func (a *Auth) CurrentSession(ctx context.Context) (domain.AuthSession, error) {
	session, err := a.sessions.Load(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNoSession) {
			return domain.AuthSession{}, err
		}
		return domain.AuthSession{}, fmt.Errorf("load current session: %w", err)
	}

	if session.Tokens.ExpiringSoon(a.clock.Now(), 0) {
		if clearErr := a.sessions.Clear(ctx); clearErr != nil {
			a.logger.Warn("clear expired session failed", zap.Error(clearErr))
		}
		return domain.AuthSession{}, fmt.Errorf("%w: session token expired", domain.ErrNoSession)
	}

	return session, nil
}

func (a *Auth) SignIn(ctx context.Context, email, secret string) (domain.AuthSession, error) {
	flow, resp, err := a.gateway.public.FrontendAPI.CreateNativeLoginFlow(ctx).Execute()
	if err != nil {
		return domain.AuthSession{}, fmt.Errorf("create login flow: %w", mapLoginError(err, resp))
	}

	body := kratos.NewUpdateLoginFlowWithPasswordMethod(email, passwordMethod, secret)
	result, resp, err := a.gateway.public.FrontendAPI.
		UpdateLoginFlow(ctx).
		Flow(flow.Id).
		UpdateLoginFlowBody(kratos.UpdateLoginFlowWithPasswordMethodAsUpdateLoginFlowBody(body)).
		Execute()
	if err != nil {
		return domain.AuthSession{}, fmt.Errorf("sign in: %w", mapLoginError(err, resp))
	}

	session, err := toAuthSession(&result.Session, result.SessionToken)
	if err != nil {
		return domain.AuthSession{}, fmt.Errorf("sign in: %w", err)
	}

	a.remember(ctx, session)
	return session, nil
}

func (a *Auth) SignUp(ctx context.Context, email, secret string) (domain.AuthSession, error) {
	flow, resp, err := a.gateway.public.FrontendAPI.CreateNativeRegistrationFlow(ctx).Execute()
	if err != nil {
		return domain.AuthSession{}, fmt.Errorf("create registration flow: %w", mapRegistrationError(err, resp))
	}

	traits := map[string]interface{}{"email": email}
	body := kratos.NewUpdateRegistrationFlowWithPasswordMethod(passwordMethod, secret, traits)
	result, resp, err := a.gateway.public.FrontendAPI.
		UpdateRegistrationFlow(ctx).
		Flow(flow.Id).
		UpdateRegistrationFlowBody(kratos.UpdateRegistrationFlowWithPasswordMethodAsUpdateRegistrationFlowBody(body)).
		Execute()
	if err != nil {
		return domain.AuthSession{}, fmt.Errorf("sign up: %w", mapRegistrationError(err, resp))
	}

	if result.Session == nil || result.SessionToken == nil {
		return domain.AuthSession{}, fmt.Errorf("sign up %s: %w", email, domain.ErrConfirmationRequired)
	}

	session, err := toAuthSession(result.Session, result.SessionToken)
	if err != nil {
		return domain.AuthSession{}, fmt.Errorf("sign up: %w", err)
	}

	a.remember(ctx, session)
	return session, nil
}

func (a *Auth) SetSession(ctx context.Context, tokens domain.Tokens) (domain.AuthSession, error) {
	token := tokens.AccessToken
	if token == "" {
		token = tokens.RefreshToken
	}
	if token == "" {
		return domain.AuthSession{}, fmt.Errorf("set session: %w: empty session token", domain.ErrSessionExpired)
	}

	current, resp, err := a.gateway.public.FrontendAPI.ToSession(ctx).XSessionToken(token).Execute()
	if err != nil {
		return domain.AuthSession{}, fmt.Errorf("set session: %w", mapSessionError(err, resp))
	}
	if current.Active != nil && !*current.Active {
		return domain.AuthSession{}, fmt.Errorf("set session: %w: session inactive", domain.ErrSessionExpired)
	}

	session, err := toAuthSession(current, &token)
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

	resp, err := a.gateway.public.FrontendAPI.
		PerformNativeLogout(ctx).
		PerformNativeLogoutBody(*kratos.NewPerformNativeLogoutBody(session.Tokens.AccessToken)).
		Execute()
	if err != nil {
		a.logger.Debug("remote sign out failed", zap.Int("status", statusOf(resp)), zap.Error(err))
	}

	return nil
}

func (a *Auth) remember(ctx context.Context, session domain.AuthSession) {
	if err := a.sessions.Save(ctx, session); err != nil {
		a.logger.Warn("persist current session failed", zap.String("user_id", string(session.User.ID)), zap.Error(err))
	}
}

func toAuthSession(session *kratos.Session, token *string) (domain.AuthSession, error) {
	if session == nil || session.Identity == nil {
		return domain.AuthSession{}, errors.New("session has no identity")
	}
	if token == nil || *token == "" {
		return domain.AuthSession{}, errors.New("session token missing")
	}

	var expiresAt time.Time
	if session.ExpiresAt != nil {
		expiresAt = session.ExpiresAt.UTC()
	}

	return domain.AuthSession{
		User: domain.User{
			ID:    domain.UserID(session.Identity.Id),
			Email: traitString(session.Identity.Traits, "email"),
		},
		Tokens: domain.Tokens{
			AccessToken:  *token,
			RefreshToken: *token,
			ExpiresAt:    expiresAt,
		},
	}, nil
}
