// Package models defines the domain entities shared by the watchlist client.
//
// Remote entities come from the movie API:
//   - [Movie] : a movie owned by the logged-in user
//   - [MovieDraft] : a movie to be created, validated before any request is sent
//   - [MovieFields] : a partial update where nil fields are left untouched
//   - [Filter] : genre and watched criteria for listing
//
// Local entities are persisted by the repositories package:
//   - [Credential] : the opaque bearer token, held in a single-slot [CredentialStore]
//   - [SessionEvent] : an audit record of one session state transition
package models
