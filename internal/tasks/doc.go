// Package tasks manages the local training task board and keeps it in step with the coaching API.
//
// # Board
//
// A [Board] holds the user's training tasks in durable storage under [storage.KeyTasks].
// When nothing has been stored yet it starts from [SampleTasks].
//
// The board supports:
//   - filtering by status, priority and category ([Filter])
//   - sorting by priority, due date, creation time or category ([SortKey])
//   - cycling a task through pending, in progress, completed and blocked
//   - selecting tasks and applying bulk status, priority or delete
//   - summary counts ([Stats]) and a kanban grouping by status
//
// # Sync
//
// [Syncer] pushes tasks to the API with a rate-limited worker pool and pulls remote tasks back.
//
// # Progress Reporting
//
// Sync operations report through a [ProgressUpdate] channel. Sends use select with default so a slow
// or absent reader never blocks the workers.
package tasks
