// Package api implements the HTTP client for the Oracle Boxing coaching API.
//
// # Request contract
//
// Every request made through [Client.Request] sends JSON, carries the bearer token from the [TokenStore] when one is present,
// and is attempted up to three times. Client errors (4xx) are returned immediately. Transport failures, per-attempt timeouts
// and other non-2xx statuses are retried after attempt × retry delay. Cancelling the caller's context stops the loop at once.
//
// Non-2xx responses become an [*Error] carrying the status and decoded body. Errors satisfy errors.Is(err, shared.ErrAPIRequest).
//
// # Base URL
//
// [ResolveBaseURL] picks the base URL from the host the client runs against:
//   - localhost or 127.0.0.1 : http://localhost:8000/api
//   - hosts containing "ngrok" : https://<host>/api
//   - anything else : the configured production URL
//
// # Wrappers
//
// The auth wrappers ([Client.Login], [Client.Register], [Client.DemoLogin], ...) never return errors.
// They return an [AuthResult] and persist any returned token. The remaining endpoints are typed methods over [Client.Request].
package api
