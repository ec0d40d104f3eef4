// Package metadata persists generation tasks, input dataset files and the
// records of finished map and video products in a SQLite database.
//
// The schema is embedded and versioned; opening a database created with a
// different schema version fails with ErrSchemaMismatch. Writes retry briefly
// when SQLite reports the database as busy.
package metadata
