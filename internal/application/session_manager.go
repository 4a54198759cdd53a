package application

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bnema/ppl-accounts-cli/internal/domain"
	"github.com/bnema/ppl-accounts-cli/internal/ports"
	"github.com/go-playground/validator/v10"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

type SessionManagerOptions struct {
	// EvictOnAuthFailure drops a cached account whose tokens the backend
	// rejected during a switch. Network and other failures never evict.
	EvictOnAuthFailure bool
	Logger             *zap.Logger
	Clock              ports.Clock
}

// SessionManager tracks which identity is active and which others are cached,
// and mediates every transition between them. Mutating operations are
// serialized; an overlapping call fails with domain.ErrBusy.
type SessionManager struct {
	store    *SessionStore
	auth     ports.AuthService
	profiles ports.ProfileRepository
	clock    ports.Clock
	logger   *zap.Logger
	validate *validator.Validate

	evictOnAuthFailure bool

	inflight *semaphore.Weighted

	mu     sync.RWMutex
	state  domain.SessionState
	active *domain.ActiveSession
}

func NewSessionManager(store *SessionStore, auth ports.AuthService, profiles ports.ProfileRepository, opts SessionManagerOptions) *SessionManager {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SessionManager{
		store:              store,
		auth:               auth,
		profiles:           profiles,
		clock:              clock,
		logger:             logger,
		validate:           validator.New(validator.WithRequiredStructEnabled()),
		evictOnAuthFailure: opts.EvictOnAuthFailure,
		inflight:           semaphore.NewWeighted(1),
		state:              domain.SessionStateUninitialized,
	}
}

// Initialize loads the cached set and asks the backend for its current
// session. Neither failure blocks startup; only a cancelled ctx is returned.
func (m *SessionManager) Initialize(ctx context.Context) error {
	const op = "initialize session manager"

	release, err := m.acquire(op)
	if err != nil {
		return err
	}
	defer release()

	m.mu.Lock()
	m.state = domain.SessionStateInitializing
	m.mu.Unlock()

	var (
		current    *domain.AuthSession
		profile    *domain.Profile
		profileErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := m.store.Load(gctx); err != nil {
			m.logger.Warn("cached accounts unreadable, starting with an empty set", zap.Error(err))
		}
		return nil
	})
	g.Go(func() error {
		session, err := m.auth.CurrentSession(gctx)
		if err != nil {
			if errors.Is(err, domain.ErrNoSession) {
				m.logger.Debug("no current session")
			} else {
				m.logger.Warn("current session lookup failed", zap.Error(err))
			}
			return nil
		}
		current = &session
		profile, profileErr = m.lookupProfile(gctx, session.User.ID)
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		m.deactivate()
		return fmt.Errorf("%s: %w", op, err)
	}

	if current == nil {
		m.deactivate()
		return nil
	}

	active := domain.ActiveSession{User: current.User, Profile: profile, Tokens: current.Tokens}
	if cached, ok := m.store.Get(current.User.ID); ok {
		if profileErr != nil {
			active.Profile = cached.Profile
		}
		if !current.Tokens.IsZero() && !cached.Tokens.SamePair(current.Tokens) {
			cached.Tokens = current.Tokens
			m.store.Upsert(cached)
			m.persist(ctx, op)
		}
	}

	m.activate(active)
	return nil
}

func (m *SessionManager) State() domain.SessionState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.state
}

func (m *SessionManager) Active() (domain.ActiveSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.active == nil {
		return domain.ActiveSession{}, false
	}

	return *m.active, true
}

// Accounts returns a copy of the cached set.
func (m *SessionManager) Accounts() []domain.Account {
	return m.store.List()
}

// OtherAccounts returns every cached account except the active one, most
// recently used first.
func (m *SessionManager) OtherAccounts() []domain.Account {
	activeID := m.activeID()

	accounts := m.store.List()
	others := make([]domain.Account, 0, len(accounts))
	for _, account := range accounts {
		if account.User.ID == activeID {
			continue
		}
		others = append(others, account)
	}
	sortAccounts(others)

	return others
}

// Summaries lists the cached accounts with the active one flagged. An active
// identity that was never cached is included first.
func (m *SessionManager) Summaries() []AccountSummary {
	active, hasActive := m.Active()

	accounts := m.store.List()
	sortAccounts(accounts)

	summaries := make([]AccountSummary, 0, len(accounts)+1)
	activeCached := false
	for _, account := range accounts {
		isActive := hasActive && account.User.ID == active.User.ID
		activeCached = activeCached || isActive
		summaries = append(summaries, AccountSummary{Account: account, Active: isActive, Cached: true})
	}
	if hasActive && !activeCached {
		summaries = append([]AccountSummary{{Account: active.AsAccount(), Active: true}}, summaries...)
	}

	return summaries
}

func (m *SessionManager) SwitchTo(ctx context.Context, id domain.UserID) error {
	const op = "switch account"

	release, err := m.acquire(op)
	if err != nil {
		return err
	}
	defer release()

	account, ok := m.store.Get(id)
	if !ok {
		return fmt.Errorf("%s %s: %w", op, id, domain.ErrNotFound)
	}

	session, err := m.auth.SetSession(ctx, account.Tokens)
	if err != nil {
		classified := classifyAuthError(err)
		if m.evictOnAuthFailure && errors.Is(classified, domain.ErrAuthFailure) {
			m.evict(ctx, id)
		}
		return fmt.Errorf("%s %s: %w", op, id, classified)
	}
	if session.User.ID != "" && session.User.ID != id {
		// The backend now remembers a user nobody asked for; drop it so the
		// next start agrees with the unauthenticated state reported here.
		if err := m.auth.ForgetSession(ctx); err != nil {
			m.logger.Warn("forget mismatched session failed", zap.String("user_id", string(session.User.ID)), zap.Error(err))
		}
		m.deactivate()
		return fmt.Errorf("%s %s: %w: backend resumed user %s", op, id, domain.ErrUnknown, session.User.ID)
	}

	if !session.Tokens.IsZero() && !session.Tokens.SamePair(account.Tokens) {
		m.logger.Debug("tokens rotated during switch", zap.String("user_id", string(id)))
		account.Tokens = session.Tokens
	}
	if session.User.Email != "" {
		account.User.Email = session.User.Email
	}
	if profile, err := m.lookupProfile(ctx, id); err == nil {
		account.Profile = profile
	}
	account.LastUsedAt = m.clock.Now()

	m.store.Upsert(account)
	m.persist(ctx, op)
	m.activate(domain.ActiveSession{User: account.User, Profile: account.Profile, Tokens: account.Tokens})

	return nil
}

func (m *SessionManager) AddAccount(ctx context.Context, cmd AddAccountCommand) error {
	const op = "add account"

	cmd = cmd.normalized()
	if err := m.validate.StructCtx(ctx, cmd); err != nil {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrInvalidInput, err)
	}

	release, err := m.acquire(op)
	if err != nil {
		return err
	}
	defer release()

	m.snapshotActive(ctx)

	var session domain.AuthSession
	switch cmd.Mode {
	case domain.AuthModeRegister:
		session, err = m.auth.SignUp(ctx, cmd.Email, cmd.Secret)
	default:
		session, err = m.auth.SignIn(ctx, cmd.Email, cmd.Secret)
	}
	if err != nil {
		if cmd.Mode == domain.AuthModeSignIn && errors.Is(err, domain.ErrInvalidCredentials) {
			return fmt.Errorf("%s %s: %w: %w", op, cmd.Email, domain.ErrNeedsRegistration, err)
		}
		return fmt.Errorf("%s %s: %w", op, cmd.Email, classifyAuthError(err))
	}
	if session.User.ID == "" {
		return fmt.Errorf("%s %s: %w: backend returned no user", op, cmd.Email, domain.ErrUnknown)
	}

	now := m.clock.Now()
	account := domain.Account{
		User:       session.User,
		Tokens:     session.Tokens,
		AddedAt:    now,
		LastUsedAt: now,
	}
	if account.User.Email == "" {
		account.User.Email = cmd.Email
	}

	profile, profileErr := m.lookupProfile(ctx, session.User.ID)
	account.Profile = profile
	if profileErr != nil {
		if cached, ok := m.store.Get(session.User.ID); ok {
			account.Profile = cached.Profile
		}
	}

	m.store.Upsert(account)
	m.persist(ctx, op)
	m.activate(domain.ActiveSession{User: account.User, Profile: account.Profile, Tokens: account.Tokens})

	return nil
}

// RemoveAccount drops id from the cache and persists the change. Removing the
// active identity also signs out of the backend. An id that is neither cached
// nor active is domain.ErrNotFound.
func (m *SessionManager) RemoveAccount(ctx context.Context, id domain.UserID) error {
	const op = "remove account"

	release, err := m.acquire(op)
	if err != nil {
		return err
	}
	defer release()

	activeID := m.activeID()
	if !m.store.Remove(id) {
		if activeID != id {
			return fmt.Errorf("%s %s: %w", op, id, domain.ErrNotFound)
		}
		m.logger.Debug("removing active identity that is not cached", zap.String("user_id", string(id)))
	}
	persistErr := m.store.Save(ctx)

	if activeID == id {
		if err := m.auth.SignOut(ctx); err != nil {
			m.logger.Warn("sign out after removing active account failed", zap.String("user_id", string(id)), zap.Error(err))
		}
		m.deactivate()
	}

	if persistErr != nil {
		return fmt.Errorf("%s %s: %w: %w", op, id, domain.ErrUnknown, persistErr)
	}

	return nil
}

// SignOut ends the active session and keeps every cached account. A cached
// identity is only forgotten locally, since revoking it would also revoke the
// tokens its cache entry needs to switch back. Uncached identities are revoked.
func (m *SessionManager) SignOut(ctx context.Context) error {
	const op = "sign out"

	release, err := m.acquire(op)
	if err != nil {
		return err
	}
	defer release()

	revoke := false
	if active, ok := m.Active(); ok {
		_, cached := m.store.Get(active.User.ID)
		revoke = !cached
	}

	if revoke {
		err = m.auth.SignOut(ctx)
	} else {
		err = m.auth.ForgetSession(ctx)
	}
	m.deactivate()
	if err != nil {
		return fmt.Errorf("%s: %w", op, classifyAuthError(err))
	}

	return nil
}

func (m *SessionManager) acquire(op string) (func(), error) {
	if !m.inflight.TryAcquire(1) {
		return nil, fmt.Errorf("%s: %w", op, domain.ErrBusy)
	}

	return func() { m.inflight.Release(1) }, nil
}

// snapshotActive caches the active identity before it is switched away from,
// unless it is already cached.
func (m *SessionManager) snapshotActive(ctx context.Context) {
	active, ok := m.Active()
	if !ok || active.Tokens.IsZero() {
		return
	}
	if _, cached := m.store.Get(active.User.ID); cached {
		return
	}

	account := active.AsAccount()
	now := m.clock.Now()
	account.AddedAt = now
	account.LastUsedAt = now

	m.store.Upsert(account)
	m.logger.Info("cached previously active account", zap.String("user_id", string(active.User.ID)))
	m.persist(ctx, "snapshot active account")
}

func (m *SessionManager) evict(ctx context.Context, id domain.UserID) {
	if !m.store.Remove(id) {
		return
	}
	m.logger.Info("evicted account with rejected tokens", zap.String("user_id", string(id)))
	m.persist(ctx, "evict account")
}

// lookupProfile is best-effort; callers decide what a failure falls back to.
func (m *SessionManager) lookupProfile(ctx context.Context, id domain.UserID) (*domain.Profile, error) {
	if m.profiles == nil {
		return nil, nil
	}

	profile, err := m.profiles.GetProfile(ctx, id)
	if err != nil {
		m.logger.Warn("profile lookup failed", zap.String("user_id", string(id)), zap.Error(err))
		return nil, err
	}

	return profile, nil
}

// persist writes the cached set after a backend transition that already took
// effect, so a failure is logged rather than returned.
func (m *SessionManager) persist(ctx context.Context, op string) {
	if err := m.store.Save(ctx); err != nil {
		m.logger.Error("persist cached accounts failed", zap.String("op", op), zap.Error(err))
	}
}

func (m *SessionManager) activate(session domain.ActiveSession) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.active = &session
	m.state = domain.SessionStateAuthenticated
}

func (m *SessionManager) deactivate() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.active = nil
	m.state = domain.SessionStateUnauthenticated
}

func (m *SessionManager) activeID() domain.UserID {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.active == nil {
		return ""
	}

	return m.active.User.ID
}
