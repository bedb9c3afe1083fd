package driven

import (
	"context"

	"github.com/custodia-labs/attest/internal/core/domain"
)

// SearchRequest is the payload sent to a search backend.
type SearchRequest struct {
	Query          string
	EngagementID   string
	TopK           int
	ScoreThreshold float64
}

// LexicalSearch is the plain keyword search backend.
type LexicalSearch interface {
	Search(ctx context.Context, req SearchRequest) (domain.SearchResponse, error)
}

// GroundedSearch is the retrieval-augmented backend. Its results may carry
// a synthesised answer.
type GroundedSearch interface {
	Search(ctx context.Context, req SearchRequest) (domain.SearchResponse, error)

	// Health returns nil when the backend can serve grounded queries.
	Health(ctx context.Context) error
}
