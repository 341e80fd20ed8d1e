// Package session holds the client's authentication state.
//
// A [Machine] moves between three states:
//
//	Initializing ──Start──▶ Authenticated | Unauthenticated
//	Unauthenticated ──Login──▶ Authenticated
//	Authenticated ──Logout | Invalidate──▶ Unauthenticated
//
// The machine is the only writer of the credential store once started. It drives the UI through two
// injected collaborators, a [Notifier] for user-visible messages and a [Navigator] for route changes.
// [Machine.Resolve] is the route guard UIs consult before rendering.
//
// Invalidation from the request gateway schedules a delayed redirect to the login route through a
// [Scheduler]. The redirect is a cancellable [Task]; a new login cancels it. Tests use [ManualScheduler]
// so no wall-clock waiting is needed.
package session
