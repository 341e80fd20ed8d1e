package session

import "sync"

// Route is a navigation target.
type Route string

const (
	RouteLogin    Route = "/login"
	RouteRegister Route = "/register"
	RouteHome     Route = "/"
)

// Protected reports whether the route requires an authenticated session.
func (r Route) Protected() bool { return r == RouteHome }

// Level is the severity of a [Notification].
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarn    Level = "warn"
	LevelError   Level = "error"
)

// Notification is a short user-visible message, rendered as a toast in the TUI and a line in the CLI.
type Notification struct {
	Level   Level
	Message string
}

// Notifier shows notifications to the user.
type Notifier interface {
	Notify(Notification)
}

// Navigator changes the current route.
type Navigator interface {
	Navigate(Route)
}

// NotifierFunc adapts a function to [Notifier].
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// NavigatorFunc adapts a function to [Navigator].
type NavigatorFunc func(Route)

func (f NavigatorFunc) Navigate(r Route) { f(r) }

// Inbox is a [Notifier] and [Navigator] that queues everything it receives.
//
// The TUI drains it after each command; tests inspect it directly.
type Inbox struct {
	mu            sync.Mutex
	notifications []Notification
	routes        []Route
}

func NewInbox() *Inbox { return &Inbox{} }

func (i *Inbox) Notify(n Notification) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.notifications = append(i.notifications, n)
}

func (i *Inbox) Navigate(r Route) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.routes = append(i.routes, r)
}

// Notifications returns a copy of the queued notifications.
func (i *Inbox) Notifications() []Notification {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]Notification(nil), i.notifications...)
}

// Routes returns a copy of the queued navigations.
func (i *Inbox) Routes() []Route {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]Route(nil), i.routes...)
}

// Drain empties the inbox and returns what it held.
func (i *Inbox) Drain() ([]Notification, []Route) {
	i.mu.Lock()
	defer i.mu.Unlock()
	n, r := i.notifications, i.routes
	i.notifications, i.routes = nil, nil
	return n, r
}
