// Package sqlite provides the SQLite implementation of the item store.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files;
// applied versions are recorded in schema_migrations.
//
// Embeddings are stored as little-endian float32 blobs. Similarity is computed
// in Go over the stored vectors; there is no approximate index.
//
// # Data Location
//
// By default, the database is stored at ~/.sercha-music/data/library.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
