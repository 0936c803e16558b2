// Package history persists build records in a SQLite database so the CLI and
// tool server can report past builds per project.
//
// The schema is embedded and versioned. A database written by an
// incompatible schema version is rejected with ErrSchemaMismatch rather than
// migrated in place; the history is a convenience log, so deleting the file is
// always safe.
package history
