// Package auth owns the signed-in session of an oracle process.
//
// A [Manager] holds the current user, persists the session to durable storage and tells observers about changes.
// It keeps the session honest in two background loops:
//   - [Manager.StartSessionCheck] re-verifies the token on an interval
//   - [Manager.Reconcile] reacts to another process signing in or out through shared storage
//
// When a session is lost the [Redirector] decides where the user goes next. The router and UI implement it.
package auth
