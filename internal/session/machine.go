package session

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/watchlist/internal/models"
	"github.com/desertthunder/watchlist/internal/shared"
)

// DefaultRedirectDelay gives the user time to read the invalidation notice before the login screen appears.
const DefaultRedirectDelay = 1500 * time.Millisecond

// Invalidation reasons sent by the request gateway.
const (
	ReasonSessionExpired  = "session_expired"
	ReasonUnauthenticated = "unauthenticated"
)

// Transition reasons recorded for state changes the machine initiates.
const (
	ReasonStartup = "startup"
	ReasonLogin   = "login"
	ReasonRelogin = "relogin"
	ReasonLogout  = "logout"
)

const (
	MessageSessionExpired  = "Your session has expired. Please log in again."
	MessageUnauthenticated = "You need to be logged in to access this page."
	MessageLoggedOut       = "You have been logged out."
)

// State is the session status.
type State int

const (
	StateInitializing State = iota
	StateUnauthenticated
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Transition describes one state change.
type Transition struct {
	From   State
	To     State
	Reason string
}

// Listener is called after every transition, outside the machine's lock.
type Listener func(Transition)

// Machine is the session state machine. It is safe for concurrent use.
type Machine struct {
	mu        sync.Mutex
	state     State
	started   bool
	listeners []Listener
	pending   Task
	seq       atomic.Uint64
	fired     uint64

	store     models.CredentialStore
	notifier  Notifier
	navigator Navigator
	scheduler Scheduler
	delay     time.Duration
	logger    *log.Logger
}

// MachineOpts configures a [Machine]. Store is required.
type MachineOpts struct {
	Store         models.CredentialStore
	Notifier      Notifier
	Navigator     Navigator
	Scheduler     Scheduler
	RedirectDelay time.Duration
	Logger        *log.Logger
}

// NewMachine creates a machine in [StateInitializing]. Call [Machine.Start] before use.
func NewMachine(opts MachineOpts) *Machine {
	if opts.Notifier == nil {
		opts.Notifier = NotifierFunc(func(Notification) {})
	}
	if opts.Navigator == nil {
		opts.Navigator = NavigatorFunc(func(Route) {})
	}
	if opts.Scheduler == nil {
		opts.Scheduler = TimerScheduler{}
	}
	if opts.RedirectDelay <= 0 {
		opts.RedirectDelay = DefaultRedirectDelay
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}

	return &Machine{
		state:     StateInitializing,
		store:     opts.Store,
		notifier:  opts.Notifier,
		navigator: opts.Navigator,
		scheduler: opts.Scheduler,
		delay:     opts.RedirectDelay,
		logger:    opts.Logger,
	}
}

// OnTransition registers a listener.
func (m *Machine) OnTransition(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Authenticated reports whether a credential is held.
func (m *Machine) Authenticated() bool { return m.State() == StateAuthenticated }

// Start reads the store once and leaves [StateInitializing].
//
// A store read error is treated as no credential. Calling Start twice fails.
func (m *Machine) Start() error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return fmt.Errorf("%w: session already started", shared.ErrInvalidTransition)
	}
	m.started = true

	to := StateUnauthenticated
	cred, err := m.store.Get()
	switch {
	case err == nil && !cred.IsZero():
		to = StateAuthenticated
	case err != nil && !errors.Is(err, shared.ErrNoCredential):
		m.logger.Warn("failed to read credential store, starting unauthenticated", "error", err)
	}

	events := []Transition{m.moveLocked(to, ReasonStartup)}
	listeners := m.listenersLocked()
	m.mu.Unlock()

	m.emit(listeners, events)
	return nil
}

// Login stores cred and moves to [StateAuthenticated].
//
// When already authenticated the credential is replaced, recorded as a logout/login pair.
// Any pending redirect is cancelled.
func (m *Machine) Login(cred models.Credential) error {
	if cred.IsZero() {
		return fmt.Errorf("%w: empty credential", shared.ErrInvalidInput)
	}

	m.mu.Lock()
	if m.state == StateInitializing {
		m.mu.Unlock()
		return fmt.Errorf("%w: login before start", shared.ErrInvalidTransition)
	}

	if err := m.store.Set(cred); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("failed to store credential: %w", err)
	}
	m.cancelRedirectLocked()

	var events []Transition
	if m.state == StateAuthenticated {
		events = append(events, m.moveLocked(StateUnauthenticated, ReasonRelogin))
	}
	events = append(events, m.moveLocked(StateAuthenticated, ReasonLogin))
	listeners := m.listenersLocked()
	m.mu.Unlock()

	m.emit(listeners, events)
	return nil
}

// Logout clears the store, notifies the user and navigates to the login route immediately.
func (m *Machine) Logout() error {
	m.mu.Lock()
	if m.state != StateAuthenticated {
		state := m.state
		m.mu.Unlock()
		return fmt.Errorf("%w: %w: logout while %s", shared.ErrInvalidTransition, shared.ErrNotAuthenticated, state)
	}

	if err := m.store.Clear(); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("failed to clear credential: %w", err)
	}
	m.cancelRedirectLocked()

	events := []Transition{m.moveLocked(StateUnauthenticated, ReasonLogout)}
	listeners := m.listenersLocked()
	m.mu.Unlock()

	m.notifier.Notify(Notification{Level: LevelInfo, Message: MessageLoggedOut})
	m.navigator.Navigate(RouteLogin)
	m.emit(listeners, events)
	return nil
}

// Invalidate handles a session signal from the gateway.
//
// The store is cleared, the user is notified and a redirect to the login route is scheduled, even when
// the session is already unauthenticated. A store error is returned after the other effects have run.
func (m *Machine) Invalidate(reason string) error {
	m.mu.Lock()
	if m.state == StateInitializing {
		m.mu.Unlock()
		return fmt.Errorf("%w: invalidate before start", shared.ErrInvalidTransition)
	}

	clearErr := m.store.Clear()
	if clearErr != nil {
		m.logger.Error("failed to clear credential on invalidation", "error", clearErr)
	}

	var events []Transition
	if m.state == StateAuthenticated {
		events = append(events, m.moveLocked(StateUnauthenticated, reason))
	}
	m.cancelRedirectLocked()
	seq := m.seq.Load()
	listeners := m.listenersLocked()
	m.mu.Unlock()

	m.notifier.Notify(Notification{Level: LevelError, Message: invalidationMessage(reason)})
	m.emit(listeners, events)
	m.scheduleRedirect(seq)

	if clearErr != nil {
		return fmt.Errorf("failed to clear credential: %w", clearErr)
	}
	return nil
}

// Resolve is the route guard.
//
// It returns false while initializing, meaning nothing should render yet. A protected route resolves to
// the login route when unauthenticated. Public routes always resolve to themselves.
func (m *Machine) Resolve(route Route) (Route, bool) {
	switch state := m.State(); {
	case state == StateInitializing:
		return "", false
	case route.Protected() && state != StateAuthenticated:
		return RouteLogin, true
	default:
		return route, true
	}
}

// RedirectPending reports whether a delayed redirect is waiting to run.
func (m *Machine) RedirectPending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending != nil
}

// scheduleRedirect schedules outside the lock so a synchronous [Scheduler] cannot deadlock.
// seq ties the task to this invalidation; a later login or invalidation bumps it and the task becomes a no-op.
func (m *Machine) scheduleRedirect(seq uint64) {
	task := m.scheduler.Schedule(m.delay, func() {
		m.mu.Lock()
		current := m.seq.Load() == seq
		if current {
			m.pending = nil
			m.fired = seq
		}
		m.mu.Unlock()

		if current {
			m.navigator.Navigate(RouteLogin)
		}
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.seq.Load() != seq:
		task.Cancel()
	case m.fired != seq:
		m.pending = task
	}
}

func (m *Machine) cancelRedirectLocked() {
	m.seq.Add(1)
	if m.pending != nil {
		m.pending.Cancel()
		m.pending = nil
	}
}

func (m *Machine) moveLocked(to State, reason string) Transition {
	t := Transition{From: m.state, To: to, Reason: reason}
	m.state = to
	m.logger.Info("session transition", "from", t.From, "to", t.To, "reason", reason)
	return t
}

func (m *Machine) listenersLocked() []Listener {
	return append([]Listener(nil), m.listeners...)
}

func (m *Machine) emit(listeners []Listener, events []Transition) {
	for _, e := range events {
		for _, l := range listeners {
			l(e)
		}
	}
}

func invalidationMessage(reason string) string {
	if reason == ReasonUnauthenticated {
		return MessageUnauthenticated
	}
	return MessageSessionExpired
}
