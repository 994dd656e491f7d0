package portal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

var errIncompleteLogin = goerrors.New("login response missing user or token", goerrors.CategoryExternal).
	WithTextCode("INCOMPLETE_LOGIN_RESPONSE").
	WithCode(goerrors.CodeInternal)

var (
	_ Signals        = &Manager{}
	_ SessionActions = &Manager{}
)

// Manager owns the in-memory session and keeps the Store in sync with
// it. It is the only writer of the session, the Store is read back
// only during Restore.
type Manager struct {
	transport Transport
	store     Store
	logger    Logger
	activity  ActivitySink
	now       func() time.Time

	restoreOnce sync.Once
	restoreErr  error

	mu        sync.RWMutex
	state     State
	user      *User
	observers map[uint64]func(Snapshot)
	nextID    uint64
}

// ManagerOption customizes the Manager
type ManagerOption func(*Manager)

// WithManagerLogger sets the logger
func WithManagerLogger(logger Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithActivitySink sets the ActivitySink used to publish session events
func WithActivitySink(sink ActivitySink) ManagerOption {
	return func(m *Manager) {
		m.activity = normalizeActivitySink(sink)
	}
}

// WithManagerClock injects a custom clock (useful for tests)
func WithManagerClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager returns a Manager in the restoring state. When the
// transport can report 401 purges the Manager subscribes to them.
func NewManager(transport Transport, store Store, opts ...ManagerOption) *Manager {
	m := &Manager{
		transport: transport,
		store:     store,
		logger:    defLogger(),
		activity:  noopActivitySink{},
		now:       time.Now,
		state:     StateRestoring,
		observers: make(map[uint64]func(Snapshot)),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	if notifier, ok := transport.(UnauthorizedNotifier); ok {
		notifier.OnUnauthorized(m.HandleUnauthorized)
	}

	return m
}

// Restore rebuilds the session from the store. Only the first call does
// any work, later calls return the first outcome.
func (m *Manager) Restore(ctx context.Context) error {
	m.restoreOnce.Do(func() {
		m.restoreErr = m.restore(ctx)
	})
	return m.restoreErr
}

func (m *Manager) restore(ctx context.Context) error {
	session, err := LoadSession(ctx, m.store)

	switch {
	case err == nil && session != nil:
		m.transition(ctx, StateAuthenticated, session.User, ActivityEventSessionRestored, nil)
		m.logger.Debug("session restored", "user_id", session.User.ID.String())
		return nil

	case err == nil:
		m.transition(ctx, StateUnauthenticated, nil, "", nil)
		return nil

	case errors.Is(err, ErrMalformedSession):
		m.logger.Debug("discarding malformed session", "error", err)
		if perr := PurgeSession(context.WithoutCancel(ctx), m.store); perr != nil {
			m.logger.Error("failed to purge malformed session", "error", perr)
		}
		m.transition(ctx, StateUnauthenticated, nil, ActivityEventSessionCorrupt, map[string]any{
			"reason": err.Error(),
		})
		return nil

	default:
		m.logger.Error("failed to read session store", "error", err)
		m.transition(ctx, StateUnauthenticated, nil, "", nil)
		return fmt.Errorf("restore session: %w", err)
	}
}

// Login authenticates against the backend and persists the session
func (m *Manager) Login(ctx context.Context, email, password string) Result {
	m.ensureRestored(ctx)

	res, err := m.transport.Login(ctx, LoginRequest{Email: email, Password: password})
	if err != nil {
		msg := RemoteMessage(err, MessageLoginFailed)
		m.logger.Debug("login failed", "email", email, "error", err)
		m.emit(ctx, ActivityEventLoginFailure, nil, email, "", "", map[string]any{"reason": msg})
		return failure(msg, err)
	}

	if res == nil || res.User == nil || res.Token == "" {
		m.logger.Error("login response incomplete", "email", email)
		m.emit(ctx, ActivityEventLoginFailure, nil, email, "", "", map[string]any{"reason": errIncompleteLogin.Message})
		return failure(MessageLoginFailed, errIncompleteLogin)
	}

	if res.Message != "" {
		m.logger.Debug("login accepted", "message", res.Message)
	}

	if err := SaveSession(ctx, m.store, &Session{User: res.User, Token: res.Token}); err != nil {
		m.logger.Error("failed to persist session", "error", err)
		if perr := PurgeSession(context.WithoutCancel(ctx), m.store); perr != nil {
			m.logger.Error("failed to purge session", "error", perr)
		}
		if m.IsAuthenticated() {
			m.transition(ctx, StateUnauthenticated, nil, "", nil)
		}
		return failure(MessageLoginFailed, err)
	}

	m.transition(ctx, StateAuthenticated, res.User, ActivityEventLoginSuccess, nil)
	return success()
}

// Register creates the account and then logs in with the same
// credentials, returning the login outcome.
func (m *Manager) Register(ctx context.Context, name, email, password string) Result {
	m.ensureRestored(ctx)

	err := m.transport.Register(ctx, RegisterRequest{
		Name:     name,
		Email:    email,
		Password: password,
	})
	if err != nil {
		msg := RemoteMessage(err, MessageRegistrationFailed)
		m.logger.Debug("register failed", "email", email, "error", err)
		m.emit(ctx, ActivityEventRegisterFailure, nil, email, "", "", map[string]any{"reason": msg})
		return failure(msg, err)
	}

	m.emit(ctx, ActivityEventRegisterSuccess, nil, email, "", "", nil)

	return m.Login(ctx, email, password)
}

// Logout calls the backend and then always clears the local session
func (m *Manager) Logout(ctx context.Context) {
	m.ensureRestored(ctx)

	if err := m.transport.Logout(ctx); err != nil {
		m.logger.Info("remote logout failed, clearing local session", "error", err)
	}

	if err := PurgeSession(context.WithoutCancel(ctx), m.store); err != nil {
		m.logger.Error("failed to purge session on logout", "error", err)
	}

	m.transition(ctx, StateUnauthenticated, nil, ActivityEventLogout, nil)
}

// HandleUnauthorized drops the in-memory session after the transport
// already cleared the store because of a 401.
func (m *Manager) HandleUnauthorized(ctx context.Context) {
	m.mu.RLock()
	state := m.state
	m.mu.RUnlock()

	if state != StateAuthenticated {
		return
	}

	m.logger.Info("session expired")
	m.transition(ctx, StateUnauthenticated, nil, ActivityEventSessionExpired, nil)
}

// IsAuthenticated reports whether a session is active
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateAuthenticated
}

// IsRestoring reports whether the stored session is still being restored
func (m *Manager) IsRestoring() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateRestoring
}

// User returns the current user, nil when no session is active
func (m *Manager) User() *User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user
}

// State returns the current lifecycle state
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Snapshot returns the state and user as one consistent value
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{State: m.state, User: m.user}
}

// Subscribe registers fn to be called after every state change. The
// returned function removes the subscription.
func (m *Manager) Subscribe(fn func(Snapshot)) func() {
	if fn == nil {
		return func() {}
	}

	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.observers[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.observers, id)
			m.mu.Unlock()
		})
	}
}

func (m *Manager) ensureRestored(ctx context.Context) {
	if err := m.Restore(ctx); err != nil {
		m.logger.Debug("restore finished with error", "error", err)
	}
}

// transition applies the new state and notifies observers outside the
// lock. Moving to the current state is a no-op, except for a new user
// replacing an authenticated one.
func (m *Manager) transition(ctx context.Context, to State, user *User, event ActivityEventType, meta map[string]any) {
	m.mu.Lock()
	from := m.state

	if from == to && to != StateAuthenticated {
		m.mu.Unlock()
		if event != "" {
			m.emit(ctx, event, user, "", from, to, meta)
		}
		return
	}

	if err := validateTransition(from, to); err != nil {
		m.mu.Unlock()
		m.logger.Error("rejected session transition", "error", err)
		return
	}

	m.state = to
	m.user = user
	snap := Snapshot{State: to, User: user}

	observers := make([]func(Snapshot), 0, len(m.observers))
	for _, fn := range m.observers {
		observers = append(observers, fn)
	}
	m.mu.Unlock()

	if event != "" {
		m.emit(ctx, event, user, "", from, to, meta)
	}

	for _, fn := range observers {
		fn(snap)
	}
}

func (m *Manager) emit(ctx context.Context, eventType ActivityEventType, user *User, email string, from, to State, meta map[string]any) {
	event := ActivityEvent{
		EventType:  eventType,
		Email:      email,
		FromState:  from,
		ToState:    to,
		Metadata:   meta,
		OccurredAt: m.now(),
	}

	if user != nil {
		event.UserID = user.ID.String()
		if event.Email == "" {
			event.Email = user.Email
		}
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if err := m.activity.Record(ctx, event); err != nil {
		m.logger.Warn("activity sink record error", "event", string(eventType), "error", err)
	}
}
