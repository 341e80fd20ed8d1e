// Package repositories implements local persistence for the watchlist client.
//
// The credential slot holds at most one bearer token and has three interchangeable backends:
//   - [CredentialRepository] : SQLite table with a single CHECK-constrained row
//   - [FileCredentialStore] : JSON file written with owner-only permissions
//   - [MemoryCredentialStore] : process memory, used by tests and one-shot commands
//
// [SessionEventRepository] keeps an audit trail of session transitions.
// [NewCredentialStore] selects a backend from [shared.SessionConfig].
package repositories
