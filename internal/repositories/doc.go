// Package repositories implements SQLite persistence for recorded sign-in attempts.
//
// Key Implementations:
//   - [AttemptRepository] : attempt history with outcome filtering and newest-first listing
//
// Sequence numbers provide stable, human-readable ordering (e.g., attempt #42) independent of UUIDs and start times.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
