package driven

import (
	"context"

	"github.com/custodia-labs/attest/internal/core/domain"
)

// IngestionStatusSource reads indexing state written by the ingestion backend.
type IngestionStatusSource interface {
	// GetIngestionStatus returns the document's status, or an error matching
	// domain.ErrNotFound when no status record exists yet.
	GetIngestionStatus(ctx context.Context, engagementID, documentID string) (domain.IngestionStatus, error)
}
