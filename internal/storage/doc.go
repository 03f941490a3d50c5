// Package storage persists the scheduler's task set and execution history.
//
// Persistence is best-effort: a failed flush is logged and
// swallowed, it never blocks scheduling or execution, and execution is not
// exactly-once across restarts.
//
// Drivers:
//   - "file": dependency-free JSON snapshots (default)
//   - "sqlite": SQLite database file (build with -tags sqlite)
package storage
