// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// Views follow the client's three routes:
//  1. [LoginView] : /login, email and password
//  2. [RegisterView] : /register, name, email and password
//  3. [ListView] : / (protected), the movie list with genre and watched filters
//
// The list view opens [FormView] (create/edit), [ConfirmView] (delete) and [FilterView] (genre text).
//
// The (view) [Model] never mutates session or collection state directly. It calls [tasks.AuthFlow] and
// [tasks.Collection] from commands, and the resulting notifications and navigations arrive through a
// [session.Inbox] that is drained after every command and on a short poll, so delayed session redirects
// also reach the screen. Every navigation passes through the session's route guard.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
