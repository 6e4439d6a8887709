// Package ui implements the interactive terminal client using bubbletea's Elm architecture.
//
// The [Model] hosts one [Screen] per implemented route (sign in, registration, dashboard, training chat and
// the task board) inside a frame drawn from the [Shell]. The [router.Router] decides what is on screen and
// reports it to the Shell, which wakes the bubbletea loop through [Shell.Changes]. Routes without a screen
// are drawn as "Coming Soon" placeholders.
//
// Screens render data from command goroutines and guard their state, so a slow API call never blocks the
// event loop. Task pushes stream [tasks.ProgressUpdate] values through a channel the same way.
//
// Global keys: ctrl+n/ctrl+p cycle the signed-in routes, esc goes back, ctrl+o signs out and ctrl+c quits.
// Each screen lists its own keys in the help line.
package ui
