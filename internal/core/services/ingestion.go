package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/attest/internal/core/domain"
	"github.com/custodia-labs/attest/internal/core/ports/driven"
	"github.com/custodia-labs/attest/internal/core/ports/driving"
	"github.com/custodia-labs/attest/internal/logger"
	"github.com/custodia-labs/attest/internal/poll"
)

// Ensure IngestionTracker implements the interface.
var _ driving.IngestionTracker = (*IngestionTracker)(nil)

// statusPageSize is the evidence page size used when collecting statuses.
const statusPageSize = 100

// IngestionTracker reads indexing progress. Indexing itself happens in an
// external backend; this is a read path only.
type IngestionTracker struct {
	source   driven.IngestionStatusSource
	evidence driven.EvidenceAPI
	policy   poll.Policy
}

// NewIngestionTracker creates a tracker. evidence may be nil, in which case
// GetStatuses is unavailable.
func NewIngestionTracker(
	source driven.IngestionStatusSource,
	evidence driven.EvidenceAPI,
	policy poll.Policy,
) *IngestionTracker {
	return &IngestionTracker{
		source:   source,
		evidence: evidence,
		policy:   policy,
	}
}

// Policy returns the polling policy used by WaitUntilIndexed.
func (t *IngestionTracker) Policy() poll.Policy {
	return t.policy
}

// GetStatus returns one document's status. Registration and indexing are
// decoupled, so a document with no status record yet is pending.
func (t *IngestionTracker) GetStatus(
	ctx context.Context, engagementID, documentID string,
) (domain.IngestionStatus, error) {
	if documentID == "" {
		return domain.IngestionStatus{}, fmt.Errorf("%w: document id is required", domain.ErrInvalidInput)
	}

	status, err := t.source.GetIngestionStatus(ctx, engagementID, documentID)
	if errors.Is(err, domain.ErrNotFound) {
		logger.Debug("No ingestion status for %s yet, assuming pending", documentID)
		return domain.PendingStatus(documentID), nil
	}
	if err != nil {
		return domain.IngestionStatus{}, fmt.Errorf("get ingestion status: %w", err)
	}

	if status.DocumentID == "" {
		status.DocumentID = documentID
	}
	if !status.Status.IsValid() || status.Status == domain.IngestionUnconfirmed {
		logger.Warn("Unknown ingestion status %q for %s, treating as pending", status.Status, documentID)
		status.Status = domain.IngestionPending
	}
	return status, nil
}

// GetStatuses returns the status of every evidence document in the engagement,
// in listing order.
func (t *IngestionTracker) GetStatuses(ctx context.Context, engagementID string) ([]domain.IngestionStatus, error) {
	if t.evidence == nil {
		return nil, errors.New("evidence listing unavailable")
	}

	var statuses []domain.IngestionStatus
	for page := 1; ; page++ {
		result, err := t.evidence.ListEvidence(ctx, engagementID, page, statusPageSize)
		if err != nil {
			return nil, fmt.Errorf("list evidence page %d: %w", page, err)
		}

		for i := range result.Items {
			status, err := t.GetStatus(ctx, engagementID, result.Items[i].ID)
			if err != nil {
				return nil, err
			}
			statuses = append(statuses, status)
		}

		if !result.HasNext || len(result.Items) == 0 {
			break
		}
	}

	logger.Debug("Collected %d ingestion statuses for %s", len(statuses), engagementID)
	return statuses, nil
}

// WaitUntilIndexed polls GetStatus under the tracker's policy. It stops on
// completed or failed. Running out of attempts is not a hard failure: the
// returned status is failed_to_confirm and the error matches
// domain.ErrStatusUnconfirmed, since the document may still become searchable.
func (t *IngestionTracker) WaitUntilIndexed(
	ctx context.Context, engagementID, documentID string,
) (domain.IngestionStatus, error) {
	logger.Section("Ingestion")

	status, attempts, err := poll.Until(ctx, t.policy,
		func(ctx context.Context, attempt int) (domain.IngestionStatus, bool, error) {
			s, err := t.GetStatus(ctx, engagementID, documentID)
			if err != nil {
				return s, false, err
			}
			logger.Debug("Poll %d/%d for %s: %s", attempt, t.policy.MaxAttempts, documentID, s.Status)
			return s, s.Status.IsFinal(), nil
		})

	if errors.Is(err, poll.ErrExhausted) {
		logger.Warn("Ingestion of %s unconfirmed after %d attempts", documentID, attempts)
		status.DocumentID = documentID
		status.Status = domain.IngestionUnconfirmed
		return status, &domain.StatusUnconfirmedError{DocumentID: documentID, Attempts: attempts}
	}
	if err != nil {
		return status, err
	}

	logger.Info("Ingestion of %s finished: %s", documentID, status.Status)
	return status, nil
}
