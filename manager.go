package carbonview

import (
	"context"
	"sync"
)

// Listener observes session snapshots. Listeners run outside the manager's
// lock and must not call back into state-changing methods synchronously.
type Listener func(Session)

// Manager is the single writer of the console's session state. It owns the
// idle -> loading -> authenticated | unauthenticated lifecycle, normalizes
// client errors into a display message, and fans snapshots out to listeners.
//
// Concurrent calls are resolved by generation stamping: every state-changing
// call bumps a counter, and completions carrying a stale generation are
// dropped. The newest request wins deterministically, not the last one to
// resolve.
type Manager struct {
	mu        sync.Mutex
	client    SessionAPI
	session   Session
	gen       uint64
	listeners map[int]Listener
	nextID    int
	logger    Logger
}

type ManagerOption func(*Manager)

func WithManagerLogger(logger Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager returns a session manager in the idle state. Call Start to
// restore any persisted session.
func NewManager(client SessionAPI, opts ...ManagerOption) *Manager {
	m := &Manager{
		client:    client,
		session:   Session{Status: StatusIdle},
		listeners: map[int]Listener{},
		logger:    defLogger{},
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Current returns a snapshot of the session.
func (m *Manager) Current() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// OnChange registers a listener and returns a function that removes it.
func (m *Manager) OnChange(fn Listener) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// Start restores the session from the token store: idle -> loading, then a
// Me call decides authenticated or unauthenticated. Safe to call once at
// boot; later calls re-check the current credential.
func (m *Manager) Start(ctx context.Context) Session {
	gen, ok := m.begin(StatusLoading)
	if !ok {
		return m.Current()
	}

	user, err := m.client.Me(ctx)
	if err != nil {
		// No credential, an expired one, or an unreachable platform all land
		// in unauthenticated; the guard sends the visitor to the login form.
		m.complete(gen, Session{Status: StatusUnauthenticated})
		if !IsUnauthenticated(err) {
			m.logger.Warn("session restore failed", "error", err)
		}
		return m.Current()
	}

	m.complete(gen, Session{Status: StatusAuthenticated, User: user})
	return m.Current()
}

// Login drives the session through loading into authenticated, or back to
// the prior terminal state with an inline error message on failure. The
// session is never left in loading.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	m.mu.Lock()
	prior := m.session.Status
	priorUser := m.session.User
	if !prior.Terminal() {
		// A login racing the initial restore settles to unauthenticated on
		// failure; there is no earlier terminal state to return to.
		prior = StatusUnauthenticated
		priorUser = nil
	}
	m.mu.Unlock()

	gen, ok := m.begin(StatusLoading)
	if !ok {
		return ErrInvalidTransition
	}

	user, err := m.client.Login(ctx, email, password)
	if err != nil {
		m.complete(gen, Session{Status: prior, User: priorUser, Error: UserMessage(err)})
		return err
	}

	m.complete(gen, Session{Status: StatusAuthenticated, User: user})
	return nil
}

// Logout drops the session to unauthenticated, clears the error, and clears
// the credential store. Idempotent, and it invalidates any in-flight login
// or restore so a slow response cannot resurrect the session.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	m.gen++
	m.setSessionLocked(Session{Status: StatusUnauthenticated})
	m.mu.Unlock()

	if err := m.client.Logout(ctx); err != nil {
		m.logger.Warn("logout cleanup failed", "error", err)
	}
}

// begin moves the session into the given transitional status and hands back
// the generation stamp the eventual completion must present.
func (m *Manager) begin(status Status) (uint64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, err := Transition(m.session.Status, status)
	if err != nil {
		m.logger.Error("rejected session transition", "from", m.session.Status, "to", status)
		return 0, false
	}

	m.gen++
	gen := m.gen
	m.setSessionLocked(Session{Status: next, User: m.session.User, Error: m.session.Error})
	return gen, true
}

// complete applies the outcome of a call started by begin, unless a newer
// call has superseded it.
func (m *Manager) complete(gen uint64, next Session) {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		m.logger.Debug("dropping stale session result", "status", next.Status)
		return
	}

	if next.Status != StatusAuthenticated {
		next.User = nil
	}
	m.setSessionLocked(next)
	m.mu.Unlock()
}

// setSessionLocked stores the snapshot and notifies listeners. Callers hold
// the lock; notification runs on a copied listener set outside it.
func (m *Manager) setSessionLocked(next Session) {
	m.session = next

	if len(m.listeners) == 0 {
		return
	}
	observers := make([]Listener, 0, len(m.listeners))
	for _, fn := range m.listeners {
		observers = append(observers, fn)
	}
	snapshot := next

	go func() {
		for _, fn := range observers {
			fn(snapshot)
		}
	}()
}
