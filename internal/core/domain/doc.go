// Package domain defines the core business entities for Attest.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Evidence: A registered file attached to an engagement
//   - UploadSession: The client-local state of one upload
//   - IngestionStatus: Server-observed indexing progress of a document
//   - SearchQuery / SearchResult: Transient search inputs and hits
//   - Citation: A durable projection of a search hit
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
