package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/attest/internal/core/domain"
	"github.com/custodia-labs/attest/internal/core/ports/driven"
	"github.com/custodia-labs/attest/internal/core/ports/driving"
)

// Ensure EvidenceService implements the interface.
var _ driving.EvidenceService = (*EvidenceService)(nil)

// Page size bounds for evidence listings.
const (
	defaultEvidencePageSize = 20
	maxEvidencePageSize     = 100
)

// EvidenceService lists an engagement's registered evidence.
type EvidenceService struct {
	api driven.EvidenceAPI
}

// NewEvidenceService creates a new evidence service.
func NewEvidenceService(api driven.EvidenceAPI) *EvidenceService {
	return &EvidenceService{api: api}
}

// List returns one page. page < 1 is treated as the first page; pageSize is
// clamped to [1, 100] with 20 as the default.
func (s *EvidenceService) List(
	ctx context.Context, engagementID string, page, pageSize int,
) (domain.EvidencePage, error) {
	if engagementID == "" {
		return domain.EvidencePage{}, fmt.Errorf("%w: engagement id is required", domain.ErrInvalidInput)
	}
	if page < 1 {
		page = 1
	}
	switch {
	case pageSize <= 0:
		pageSize = defaultEvidencePageSize
	case pageSize > maxEvidencePageSize:
		pageSize = maxEvidencePageSize
	}

	result, err := s.api.ListEvidence(ctx, engagementID, page, pageSize)
	if err != nil {
		return domain.EvidencePage{}, fmt.Errorf("list evidence: %w", err)
	}
	if result.Items == nil {
		result.Items = []domain.Evidence{}
	}
	return result, nil
}
