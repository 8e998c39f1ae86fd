// Package session owns the authenticated session of one browser session:
// bootstrap from the token store, login, logout, registration and
// invalidation when the API rejects the token.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jobmatch/jobmatch-portal/internal/apiclient"
	"github.com/jobmatch/jobmatch-portal/internal/crypto"
	"github.com/jobmatch/jobmatch-portal/internal/model"
)

var (
	ErrClosed       = errors.New("session closed")
	ErrSuperseded   = errors.New("session changed while the request was in flight")
	ErrTokenExpired = errors.New("stored token has expired")
	ErrUnknownRole  = errors.New("unknown role")
)

const (
	msgLoginFailed    = "Login failed"
	msgRegisterFailed = "Registration failed"
	msgRegistered     = "Registration successful! Please login."
	msgLoggedOut      = "Logged out successfully"
	msgExpired        = "Session expired. Please log in again."
)

// TokenStore is where the session's token lives between page loads.
type TokenStore interface {
	Save(ctx context.Context, token string) error
	Read(ctx context.Context) (string, bool)
	Clear(ctx context.Context) error
	SaveProfile(ctx context.Context, email string, role model.Role) error
}

// AuthAPI is the remote authentication service. Me must authenticate with
// whatever token TokenStore currently holds.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (model.TokenResponse, error)
	Me(ctx context.Context) (model.UserSummary, error)
	Register(ctx context.Context, req model.RegisterRequest) (json.RawMessage, error)
}

type Options struct {
	Logger *slog.Logger
	// KeepTokenOnTransientError keeps the stored token when bootstrap could
	// not reach the API. The session still settles anonymous.
	KeepTokenOnTransientError bool
	Now                       func() time.Time
}

// Manager is the single owner of a session's state.
//
// gen is bumped by every operation that replaces the session (login
// step 2, login rollback, logout). Work started under an older generation
// discards its result instead of overwriting a newer session.
type Manager struct {
	store  TokenStore
	api    AuthAPI
	logger *slog.Logger
	keep   bool
	now    func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	flight  singleflight.Group
	settled atomic.Bool

	mu            sync.Mutex
	gen           uint64
	token         string
	user          *model.UserSummary
	authenticated bool
	loading       bool
	bootstrapped  bool
	closed        bool

	lmu       sync.RWMutex
	listeners []Listener
}

func NewManager(store TokenStore, api AuthAPI, opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		store:   store,
		api:     api,
		logger:  opts.Logger,
		keep:    opts.KeepTokenOnTransientError,
		now:     opts.Now,
		ctx:     ctx,
		cancel:  cancel,
		loading: true,
	}
}

// Subscribe registers l for all future events.
func (m *Manager) Subscribe(l Listener) {
	m.lmu.Lock()
	m.listeners = append(m.listeners, l)
	m.lmu.Unlock()
}

func (m *Manager) emit(ev Event) {
	m.lmu.RLock()
	ls := m.listeners
	m.lmu.RUnlock()

	for _, l := range ls {
		l(ev)
	}
}

// Snapshot returns the current session.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() Snapshot {
	s := Snapshot{
		State:           m.stateLocked(),
		IsAuthenticated: m.authenticated,
		Loading:         m.loading,
	}
	if m.user != nil {
		u := *m.user
		s.User = &u
	}
	return s
}

func (m *Manager) stateLocked() State {
	switch {
	case m.authenticated:
		return StateAuthenticated
	case m.loading:
		// only the initial bootstrap is Authenticating; a login stays
		// Anonymous until it succeeds
		return StateAuthenticating
	}
	return StateAnonymous
}

// settleLocked ends the initial loading phase. Safe to call repeatedly.
func (m *Manager) settleLocked() {
	m.loading = false
	m.settled.Store(true)
}

func (m *Manager) resetLocked() {
	m.token = ""
	m.user = nil
	m.authenticated = false
}

// Bootstrap validates the stored token once per manager and returns the
// settled session. Concurrent callers share one run. ctx only bounds how
// long this caller waits; the run itself lasts until it finishes or the
// manager is closed.
func (m *Manager) Bootstrap(ctx context.Context) Snapshot {
	if !m.settled.Load() {
		ch := m.flight.DoChan("bootstrap", func() (any, error) {
			m.bootstrap()
			return nil, nil
		})
		select {
		case <-ch:
		case <-ctx.Done():
		}
	}
	return m.Snapshot()
}

func (m *Manager) bootstrap() {
	m.mu.Lock()
	if m.closed || m.settled.Load() || m.bootstrapped {
		m.mu.Unlock()
		return
	}
	// A run discarded as stale is not repeated; whatever bumped gen settles.
	m.bootstrapped = true
	gen := m.gen
	m.mu.Unlock()

	token, ok := m.store.Read(m.ctx)
	if !ok {
		m.settleBootstrap(gen, "", nil, nil)
		return
	}

	if exp, ok := crypto.ExpiresAt(token); ok && !m.now().Before(exp) {
		m.settleBootstrap(gen, token, nil, ErrTokenExpired)
		return
	}

	user, err := m.api.Me(m.ctx)
	if err == nil && !user.Role.Valid() {
		err = fmt.Errorf("%w %q", ErrUnknownRole, user.Role)
	}
	if err != nil {
		m.settleBootstrap(gen, token, nil, err)
		return
	}
	m.settleBootstrap(gen, token, &user, nil)
}

func (m *Manager) settleBootstrap(gen uint64, token string, user *model.UserSummary, err error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	if gen != m.gen || m.settled.Load() {
		m.mu.Unlock()
		m.logger.Debug("discarding stale bootstrap result")
		return
	}

	ev := Event{Kind: EventBootstrapped}
	switch {
	case token == "":
	case err == nil:
		m.token = token
		m.user = user
		m.authenticated = true
	default:
		ev = Event{Kind: EventBootstrapFailed, Err: err}
		transient := apiclient.IsTransient(err)
		if !(m.keep && transient) {
			if cur, ok := m.store.Read(m.ctx); ok && cur == token {
				if cerr := m.store.Clear(m.ctx); cerr != nil {
					m.logger.Error("clearing rejected token", "error", cerr)
				}
			}
		}
		m.logger.Warn("stored session could not be validated, continuing anonymous",
			"error", err, "transient", transient, "token_kept", m.keep && transient)
	}
	m.settleLocked()
	ev.State = m.stateLocked()
	m.mu.Unlock()

	m.emit(ev)
}

// Login authenticates with email and password, stores the token and loads
// the user. If loading the user fails the stored token is removed again and
// the session is left anonymous.
func (m *Manager) Login(ctx context.Context, email, password string) (model.UserSummary, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return model.UserSummary{}, ErrClosed
	}
	m.mu.Unlock()

	tok, err := m.api.Login(ctx, email, password)
	if err != nil {
		return model.UserSummary{}, m.loginFailed(err)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return model.UserSummary{}, ErrClosed
	}
	if err := m.store.Save(ctx, tok.AccessToken); err != nil {
		m.mu.Unlock()
		return model.UserSummary{}, m.loginFailed(fmt.Errorf("saving token: %w", err))
	}
	m.gen++
	gen := m.gen
	m.mu.Unlock()

	user, err := m.api.Me(ctx)
	if err == nil && !user.Role.Valid() {
		err = fmt.Errorf("%w %q", ErrUnknownRole, user.Role)
	}

	m.mu.Lock()
	if m.closed || gen != m.gen {
		m.mu.Unlock()
		return model.UserSummary{}, ErrSuperseded
	}

	if err != nil {
		m.gen++
		if cerr := m.store.Clear(context.WithoutCancel(ctx)); cerr != nil {
			m.logger.Error("rolling back token after failed login", "error", cerr)
		}
		m.resetLocked()
		m.settleLocked()
		m.mu.Unlock()
		return model.UserSummary{}, m.loginFailed(err)
	}

	if perr := m.store.SaveProfile(ctx, user.Email, user.Role); perr != nil {
		m.logger.Warn("caching user profile", "error", perr)
	}
	m.token = tok.AccessToken
	m.user = &user
	m.authenticated = true
	m.settleLocked()
	m.mu.Unlock()

	m.logger.Info("user logged in", "user_id", user.ID, "role", user.Role)
	m.emit(Event{
		Kind:   EventLoggedIn,
		State:  StateAuthenticated,
		Notice: fmt.Sprintf("Welcome back, %s!", user.Email),
		Level:  LevelSuccess,
	})
	return user, nil
}

func (m *Manager) loginFailed(err error) error {
	f := &Failure{Message: apiclient.Message(err, msgLoginFailed), Err: err}
	m.logger.Info("login failed", "error", err)

	m.mu.Lock()
	state := m.stateLocked()
	m.mu.Unlock()

	m.emit(Event{
		Kind:   EventLoginFailed,
		State:  state,
		Notice: f.Message,
		Level:  LevelError,
		Err:    err,
	})
	return f
}

// Logout clears the stored token and leaves the session anonymous. The
// in-memory session is reset even when clearing the store fails.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.gen++
	err := m.store.Clear(context.WithoutCancel(ctx))
	m.resetLocked()
	m.settleLocked()
	m.mu.Unlock()

	if err != nil {
		m.logger.Error("clearing token on logout", "error", err)
	}
	m.emit(Event{Kind: EventLoggedOut, State: StateAnonymous, Notice: msgLoggedOut, Level: LevelSuccess, Err: err})
	return err
}

// Register creates an account. It does not log the user in.
func (m *Manager) Register(ctx context.Context, req model.RegisterRequest) (json.RawMessage, error) {
	ack, err := m.api.Register(ctx, req)
	if err != nil {
		f := &Failure{Message: apiclient.Message(err, msgRegisterFailed), Err: err}
		m.emit(Event{Kind: EventRegisterFailed, State: m.Snapshot().State, Notice: f.Message, Level: LevelError, Err: err})
		return nil, f
	}

	m.emit(Event{Kind: EventRegistered, State: m.Snapshot().State, Notice: msgRegistered, Level: LevelSuccess})
	return ack, nil
}

// HandleUnauthorized is called when the API answered 401 to a request that
// carried rejectedToken. It ends the session only if that token is the
// session's current one, so repeated and stale rejections are no-ops.
// It reports whether the session was ended.
func (m *Manager) HandleUnauthorized(ctx context.Context, rejectedToken string) bool {
	m.mu.Lock()
	if !m.authenticated || rejectedToken == "" || rejectedToken != m.token {
		m.mu.Unlock()
		return false
	}

	m.resetLocked()

	// A login may already have stored a newer token; leave that one alone.
	ctx = context.WithoutCancel(ctx)
	var err error
	if cur, ok := m.store.Read(ctx); !ok || cur == rejectedToken {
		err = m.store.Clear(ctx)
	}
	m.mu.Unlock()

	m.logger.Warn("session token rejected by api, session ended")
	if err != nil {
		m.logger.Error("clearing rejected token", "error", err)
	}
	m.emit(Event{Kind: EventInvalidated, State: StateUnauthorized, Notice: msgExpired, Level: LevelInfo, Err: err})
	return true
}

// Close cancels in-flight work. Results arriving afterwards are discarded.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.cancel()
}
