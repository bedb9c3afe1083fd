package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/custodia-labs/attest/internal/core/domain"
	"github.com/custodia-labs/attest/internal/core/ports/driven"
)

// Ensure Client implements the status source.
var _ driven.IngestionStatusSource = (*Client)(nil)

// GetIngestionStatus calls GET /engagements/{id}/docs/{docId}/ingestion-status.
// A 404 matches domain.ErrNotFound.
func (c *Client) GetIngestionStatus(
	ctx context.Context, engagementID, documentID string,
) (domain.IngestionStatus, error) {
	path := "/engagements/" + url.PathEscape(engagementID) +
		"/docs/" + url.PathEscape(documentID) + "/ingestion-status"

	var status domain.IngestionStatus
	if _, err := c.do(ctx, "get ingestion status", http.MethodGet, path, nil, &status); err != nil {
		return domain.IngestionStatus{}, err
	}
	if status.DocumentID == "" {
		status.DocumentID = documentID
	}
	return status, nil
}
