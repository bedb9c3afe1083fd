package mcp

import (
	"context"
	"io"
	"time"

	"github.com/custodia-labs/attest/internal/core/domain"
)

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	resp    domain.SearchResponse
	err     error
	queries []domain.SearchQuery
}

func (m *mockSearchService) Search(_ context.Context, q domain.SearchQuery) (domain.SearchResponse, error) {
	m.queries = append(m.queries, q)
	return m.resp, m.err
}

// mockCitationService is a mock implementation of driving.CitationService.
type mockCitationService struct {
	saved  []domain.Citation
	export string
	err    error
	format domain.ExportFormat
}

func (m *mockCitationService) AddFromResults(_ context.Context, results []domain.SearchResult) ([]domain.Citation, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range results {
		m.saved = append(m.saved, domain.CitationFromResult(results[i], time.Time{}))
	}
	return m.saved, nil
}

func (m *mockCitationService) List(_ context.Context) ([]domain.Citation, error) {
	return m.saved, m.err
}

func (m *mockCitationService) Clear(_ context.Context) error {
	m.saved = nil
	return m.err
}

func (m *mockCitationService) Export(_ context.Context, format domain.ExportFormat, w io.Writer) error {
	m.format = format
	if m.err != nil {
		return m.err
	}
	if !format.IsValid() {
		return domain.ErrInvalidInput
	}
	_, err := io.WriteString(w, m.export)
	return err
}

// mockIngestionTracker is a mock implementation of driving.IngestionTracker.
type mockIngestionTracker struct {
	status domain.IngestionStatus
	err    error
}

func (m *mockIngestionTracker) GetStatus(_ context.Context, _, documentID string) (domain.IngestionStatus, error) {
	s := m.status
	s.DocumentID = documentID
	return s, m.err
}

func (m *mockIngestionTracker) GetStatuses(_ context.Context, _ string) ([]domain.IngestionStatus, error) {
	return []domain.IngestionStatus{m.status}, m.err
}

func (m *mockIngestionTracker) WaitUntilIndexed(ctx context.Context, eng, documentID string) (domain.IngestionStatus, error) {
	return m.GetStatus(ctx, eng, documentID)
}

// mockEvidenceService is a mock implementation of driving.EvidenceService.
type mockEvidenceService struct {
	page domain.EvidencePage
	err  error
}

func (m *mockEvidenceService) List(_ context.Context, _ string, _, _ int) (domain.EvidencePage, error) {
	return m.page, m.err
}
