// Package storage implements durable client storage for oracle.
//
// Values are JSON documents stored under string keys in a SQLite table shared by every oracle process of the same user.
// Two scopes are available:
//   - [Store] itself, the durable scope, survives restarts and is visible to other processes
//   - [Store.Session], the session scope, lives only as long as the process
//
// # Change notification
//
// Every durable write bumps a revision counter in the same transaction and touches a signal file.
// A [Watcher] observes the signal file with fsnotify (falling back to polling) and turns writes made by other processes into [ChangeEvent] values.
// Writes made through a Store never produce events on that same Store.
package storage
