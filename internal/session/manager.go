package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/naveenspark/folio/internal/store"
	"github.com/naveenspark/folio/pkg/client"
	"github.com/naveenspark/folio/pkg/domain"
)

// API is the subset of the REST client the session needs.
type API interface {
	Login(ctx context.Context, req client.LoginRequest) (*domain.Credentials, error)
	Verify(ctx context.Context) (*client.VerifyResponse, error)
	Logout(ctx context.Context) error
}

// CredentialStore persists the session between runs.
type CredentialStore interface {
	Save(c domain.Credentials) error
	Load() (*domain.Credentials, error)
	Clear() error
}

// Binding is a live component that follows the session: it starts when an
// identity is authenticated and stops on logout.
type Binding interface {
	Start(ctx context.Context, id domain.Identity, token string) error
	Stop()
}

// Manager owns the session side effects and publishes State changes.
type Manager struct {
	api      API
	store    CredentialStore
	bindings []Binding
	log      *zap.Logger
	now      func() time.Time

	// op serializes Boot, Login and Logout.
	op sync.Mutex

	mu       sync.Mutex
	st       State
	watchers map[chan State]struct{}
}

// NewManager builds a Manager. bindings start in order and stop in order.
func NewManager(api API, cs CredentialStore, log *zap.Logger, bindings ...Binding) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		api:      api,
		store:    cs,
		bindings: bindings,
		log:      log.Named("session"),
		now:      time.Now,
		watchers: make(map[chan State]struct{}),
	}
}

// State returns the current session state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st
}

// Watch returns a channel carrying the latest state after every change and
// a function that unsubscribes. Slow readers only see the newest state.
func (m *Manager) Watch() (<-chan State, func()) {
	ch := make(chan State, 1)
	m.mu.Lock()
	m.watchers[ch] = struct{}{}
	ch <- m.st
	m.mu.Unlock()
	return ch, func() {
		m.mu.Lock()
		delete(m.watchers, ch)
		m.mu.Unlock()
	}
}

func (m *Manager) dispatch(e Event) State {
	m.mu.Lock()
	prev := m.st
	m.st = Transition(m.st, e)
	st := m.st
	if st != prev {
		for ch := range m.watchers {
			select {
			case <-ch:
			default:
			}
			ch <- st
		}
	}
	m.mu.Unlock()
	if st.Status != prev.Status {
		m.log.Debug("session transition", zap.Stringer("from", prev.Status), zap.Stringer("to", st.Status))
	}
	return st
}

// Boot restores a stored session. Only an explicit rejection by the server
// discards it; a network failure keeps the cached profile.
func (m *Manager) Boot(ctx context.Context) error {
	m.op.Lock()
	defer m.op.Unlock()

	m.dispatch(Event{Kind: Booted})
	creds, err := m.store.Load()
	if errors.Is(err, store.ErrNoCredentials) {
		m.dispatch(Event{Kind: VerifyFailed})
		return nil
	}
	if err != nil {
		m.dispatch(Event{Kind: VerifyFailed})
		return fmt.Errorf("session.Boot: %w", err)
	}
	if tokenExpired(creds.AccessToken, m.now()) {
		m.log.Info("stored token expired")
		m.clearStore()
		m.dispatch(Event{Kind: VerifyFailed})
		return nil
	}

	profile, userType := creds.Profile, creds.UserType
	v, err := m.api.Verify(ctx)
	switch {
	case err == nil && v.Valid:
		profile = v.Profile
		if v.UserType != "" {
			userType = v.UserType
		}
	case err == nil || client.IsUnauthorized(err):
		m.log.Info("stored session rejected")
		m.clearStore()
		m.dispatch(Event{Kind: VerifyFailed})
		return nil
	default:
		m.log.Warn("verify failed, using cached profile", zap.Error(err))
	}

	id, err := domain.ResolveIdentity(profile, userType)
	if err != nil {
		m.clearStore()
		m.dispatch(Event{Kind: VerifyFailed})
		return fmt.Errorf("session.Boot: %w", err)
	}
	m.dispatch(Event{Kind: Verified, Identity: id})
	m.startBindings(ctx, id, creds.AccessToken)
	return nil
}

// Login authenticates, persists the credentials and starts the bindings.
func (m *Manager) Login(ctx context.Context, email, password, userType string) error {
	m.op.Lock()
	defer m.op.Unlock()

	if st := m.State(); st.Status == Authenticated {
		return fmt.Errorf("session.Login: already logged in as %s", st.Identity.Email())
	}
	m.dispatch(Event{Kind: LoginStarted})

	creds, err := m.api.Login(ctx, client.LoginRequest{Email: email, Password: password, UserType: userType})
	if err != nil {
		m.dispatch(Event{Kind: LoginFailed, Err: loginMessage(err)})
		return fmt.Errorf("session.Login: %w", err)
	}
	id, err := domain.ResolveIdentity(creds.Profile, creds.UserType)
	if err != nil {
		m.dispatch(Event{Kind: LoginFailed, Err: err.Error()})
		return fmt.Errorf("session.Login: %w", err)
	}
	creds.UserType = id.UserType()
	if err := m.store.Save(*creds); err != nil {
		m.dispatch(Event{Kind: LoginFailed, Err: err.Error()})
		return fmt.Errorf("session.Login: %w", err)
	}

	m.dispatch(Event{Kind: LoginSucceeded, Identity: id})
	m.startBindings(ctx, id, creds.AccessToken)
	return nil
}

// Logout stops the live bindings, tells the server, clears the store and
// resets the state. It never fails.
func (m *Manager) Logout(ctx context.Context) {
	m.op.Lock()
	defer m.op.Unlock()
	m.logout(ctx, Event{Kind: LoggedOut}, true)
}

// Expire forces the logout path after the server rejected the token. It
// returns immediately; the teardown runs in the background.
func (m *Manager) Expire() {
	if m.State().Status != Authenticated {
		return
	}
	go func() {
		m.op.Lock()
		defer m.op.Unlock()
		if m.State().Status != Authenticated {
			return
		}
		m.log.Info("session expired")
		m.logout(context.Background(), Event{Kind: SessionExpired}, false)
	}()
}

func (m *Manager) logout(ctx context.Context, e Event, tellServer bool) {
	for _, b := range m.bindings {
		b.Stop()
	}
	if tellServer {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := m.api.Logout(ctx); err != nil {
			m.log.Debug("server logout failed", zap.Error(err))
		}
		cancel()
	}
	m.clearStore()
	m.dispatch(e)
}

func (m *Manager) startBindings(ctx context.Context, id domain.Identity, token string) {
	for _, b := range m.bindings {
		if err := b.Start(ctx, id, token); err != nil {
			m.log.Warn("live binding failed to start", zap.Error(err))
		}
	}
}

func (m *Manager) clearStore() {
	if err := m.store.Clear(); err != nil {
		m.log.Error("clear stored session", zap.Error(err))
	}
}

// tokenExpired reads the exp claim without verifying the signature; only
// the server can verify. Opaque tokens never count as expired.
func tokenExpired(tok string, now time.Time) bool {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tok, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return now.After(claims.ExpiresAt.Time)
}

func loginMessage(err error) string {
	var herr *client.HTTPError
	if errors.As(err, &herr) && herr.Message != "" {
		return herr.Message
	}
	return err.Error()
}
