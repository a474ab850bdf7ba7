// Package history records pipeline runs in a SQLite database.
//
// Each run is inserted when it starts and updated once when it finishes, so an
// interrupted process leaves a row in StatusRunning. Run IDs are UUIDs that
// also appear in log lines as run_id. The schema is versioned; a database from
// a different version is rejected rather than migrated.
package history
