// Package server implements an in-memory mock of the remote movie API.
//
// It backs the `watchlist serve` command and the end-to-end tests of the client stack.
//
// # Routes
//
//	POST   /auth/register  {name, email, password} -> 201 user | 400 | 409
//	POST   /auth/login     {email, password}       -> 200 {token} | 401
//	GET    /movies?genre=&watched=                  -> 200 [movie]
//	POST   /movies                                  -> 201 movie | 400
//	PATCH  /movies/{id}                             -> 200 movie | 400 | 404
//	DELETE /movies/{id}                             -> 204 | 404
//
// Movie routes require a bearer token: an HS256 JWT issued by
// [TokenIssuer]. Rejections carry the same message text the production API sends, plus a structured code
// (token_missing, token_invalid, token_expired) unless [Opts.LegacyErrors] is set.
//
// Passwords are hashed with bcrypt. Movie ids are sequential integers so clients see numeric JSON ids.
package server
