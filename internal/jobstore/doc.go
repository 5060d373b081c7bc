// Package jobstore persists the single active archival job and its file
// records in SQLite.
//
// The store is the only authoritative state in the system: every engine
// transition is checkpointed here before the next network call, so an
// uncontrolled process restart loses at most one in-flight attempt. Safety
// relies on a single engine instance being active, not on row locking; the
// daemon's file lock enforces that.
package jobstore
