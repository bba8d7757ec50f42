// Package domain defines the core business entities for Sercha Music.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - RawItem: A catalog entry as scanned from a music provider
//   - EnrichedItem: A RawItem with lyrics, background notes and an embedding
//   - ItemRecord: The persisted, flattened form of an EnrichedItem
//   - Query: A natural-language query plus search options
//   - TokenUsage: Language-model cost accounting
//   - SyncRun: The recorded outcome of one library sync
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
