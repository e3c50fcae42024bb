// Package domain defines the core business entities for Docqa.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: Normalised source text ready for chunking
//   - Chunk: A retrievable segment of a document
//   - IndexEntry: The unit stored in the vector index
//   - SearchResult: A ranked retrieval hit
//   - UsageRecord: Provider token/cost accounting
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
