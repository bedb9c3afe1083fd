package driving

import (
	"context"

	"github.com/custodia-labs/attest/internal/core/domain"
)

// EvidenceService lists registered evidence.
type EvidenceService interface {
	List(ctx context.Context, engagementID string, page, pageSize int) (domain.EvidencePage, error)
}
