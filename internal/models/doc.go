// Package models defines the persistent entities recorded by the loopauth CLI.
//
//   - [Attempt] : one sign-in attempt, its loopback port, mode, and how it ended
//
// Entities implement the [Model] interface providing ID, timestamps and validation.
// The [Repository] interface defines standard CRUD operations for database access.
//
// The redirect core in internal/auth never persists anything; attempts are recorded by the commands that drive it.
package models
