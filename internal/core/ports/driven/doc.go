// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - ItemStore: Enriched item persistence and nearest-neighbor lookup
//   - TextCompletionClient: Language model completions
//   - Embedder: Text embeddings
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - LyricsProvider: Without it, items are enriched with empty lyrics and
//     instant lyric matching is disabled.
//   - WebSearcher: Without it, a failed background summary is left empty.
//   - PromptStore: Without it, built-in prompt templates are used.
//   - CatalogSource: Only needed to sync a library from a music provider.
//   - SyncRunStore: Without it, syncs are not recorded in the history.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
