// Package tasks holds the client-side workflows that sit between the UI layers and the API clients.
//
// # Collection
//
// [Collection] mirrors the server's movie list for the active [models.Filter]. Every mutation is applied
// locally only after the server confirms it, using the entity the server returned. Failures notify the user
// through a [session.Notifier] and leave the local list untouched, so there is nothing to roll back.
//
// Bulk operations build on the same collection:
//   - [Collection.Import] creates movies from CSV rows, sequentially and rate limited
//   - [Collection.Export] fetches the filtered list and writes it as CSV, Markdown, text or JSON
//
// # Auth
//
// [AuthFlow] runs login, registration and logout. Only a successful login touches the session.
//
// # Progress Reporting
//
// Long operations accept an optional channel of [ProgressUpdate]. Sends never block; a slow reader
// misses updates rather than stalling the operation.
package tasks
