// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The search core lives here: the reduction engine, the vector engine,
// the reasoning generator and the enrichment pipeline. Batch operations
// own a bounded errgroup for their lifetime and never leave goroutines
// running after they return.
package services
