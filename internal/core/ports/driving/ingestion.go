package driving

import (
	"context"

	"github.com/custodia-labs/attest/internal/core/domain"
)

// IngestionTracker exposes read-only indexing status.
type IngestionTracker interface {
	// GetStatus returns one document's status. A missing record is pending.
	GetStatus(ctx context.Context, engagementID, documentID string) (domain.IngestionStatus, error)

	// GetStatuses returns the status of every evidence document in an engagement.
	GetStatuses(ctx context.Context, engagementID string) ([]domain.IngestionStatus, error)

	// WaitUntilIndexed polls GetStatus until a final state or the polling
	// budget runs out. Exhaustion yields a failed_to_confirm status and an
	// error matching domain.ErrStatusUnconfirmed.
	WaitUntilIndexed(ctx context.Context, engagementID, documentID string) (domain.IngestionStatus, error)
}
