// Package server provides HTTP routing, middleware, and an in-memory development API.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses gorilla/mux internally, so routes can be restricted by method and carry path
// variables ("/tasks/{id}") that handlers read with [Var]. Unmatched routes get a JSON {"message": ...} body like
// every other error.
//
// # Handler Interface
//
// Groups of endpoints implement the [Handler] interface, which returns a list of [Route] values. This keeps route
// definitions next to the handlers that serve them.
//
// # Development API
//
// [DevAPI] implements every endpoint of the coaching API against in-memory maps: accounts with bcrypt hashed
// passwords, bearer tokens with an expiry, demo accounts, training sessions, coach chat with canned replies, tasks,
// the technique library, progress entries and video uploads.
//
// "oracle dev serve" runs it on localhost:8000, which is the client's local base URL, and package tests mount it on
// httptest servers to exercise the client end to end.
package server
