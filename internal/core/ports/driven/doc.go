// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - EvidenceAPI: Upload credentials, registration and evidence listing
//   - BlobUploader: Direct client-to-storage transfer
//   - IngestionStatusSource: Per-document indexing status
//   - LexicalSearch: Plain search backend
//   - KeyValueStore: Persistence for saved citations
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - GroundedSearch: RAG backend. Without it, grounded queries are served in plain mode.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
