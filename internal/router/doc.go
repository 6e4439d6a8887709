// Package router is the navigation state machine of the oracle client.
//
// # Routes
//
// The route table is a closed set of [Name] values fixed when the [Router] is built.
// Each [Route] carries a [View], an auth requirement and a window title.
// Placeholder routes render a generic "Coming Soon" view so an unfinished screen never breaks navigation.
//
// # Navigation
//
// A navigation is atomic: the target view is rendered first and the router only commits the new
// current route once it succeeds. Exactly one navigation may be in flight. A second call made
// while one is running is rejected with [shared.ErrNavigationInProgress] and changes nothing.
//
// Guards run before the navigation starts:
//   - a protected route while signed out goes to [Login]
//   - a guest-only route while signed in goes to the landing route
//   - an unknown route goes to the landing route
//
// # Location
//
// The router keeps its own bounded [History] for [Router.GoBack] and mirrors navigations into a
// [Location], the stand-in for browser history. Back, forward and hash changes on the location
// arrive as [LocationEvent] values through [Router.Listen] and navigate without pushing a new entry.
package router
