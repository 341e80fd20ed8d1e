// Package services talks to the remote movie API.
//
// # Gateway
//
// Every outbound call goes through [Gateway.Request]. Before the call the gateway reads the
// credential store and, when a credential is present, sets `Authorization: Bearer <credential>`
// with [oauth2.Token.SetAuthHeader]. Each request also carries an X-Request-ID.
//
// After the call, the pure [Classify] function maps the status, code and message to an [Outcome].
// An explicit effect step then notifies the [Invalidator] when the outcome is
// [OutcomeSessionExpired] or [OutcomeUnauthenticated]. The error is always propagated to the caller.
//
// # Errors
//
// Non-2xx responses surface as [*APIError], which unwraps to one of:
//   - [shared.ErrSessionExpired] : 401 with an invalid or expired token
//   - [shared.ErrUnauthenticated] : 401 with a missing or malformed token
//   - [shared.ErrAPIRequest] : any other non-2xx status, including 401 for bad login credentials
//
// Transport failures wrap [shared.ErrServiceUnavailable]. Nothing is retried.
//
// # Typed clients
//
// [MovieClient] and [AuthClient] build on any [Requester] and decode responses into [models] types.
package services
