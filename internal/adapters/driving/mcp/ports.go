package mcp

import (
	"github.com/custodia-labs/attest/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Search provides search capabilities.
	Search driving.SearchService

	// Citations manages the engagement's saved citations. Optional.
	Citations driving.CitationService

	// Ingestion reports document indexing status. Optional.
	Ingestion driving.IngestionTracker

	// Evidence lists registered evidence. Optional.
	Evidence driving.EvidenceService

	// EngagementID scopes every call made through the server.
	EngagementID string

	// TopK and ScoreThreshold are the defaults for search tools.
	TopK           int
	ScoreThreshold float64
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	if p.EngagementID == "" {
		return ErrMissingEngagement
	}
	return nil
}
