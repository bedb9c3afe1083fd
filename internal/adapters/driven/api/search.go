package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/custodia-labs/attest/internal/core/domain"
	"github.com/custodia-labs/attest/internal/core/ports/driven"
)

const groundedBackend = "grounded search"

type searchRequest struct {
	Query          string  `json:"query"`
	EngagementID   string  `json:"engagementId"`
	TopK           int     `json:"topK"`
	ScoreThreshold float64 `json:"scoreThreshold"`
	UseGrounding   bool    `json:"useGrounding,omitempty"`
}

type searchHit struct {
	DocumentID   string         `json:"documentId"`
	DocumentName string         `json:"documentName"`
	Content      string         `json:"content"`
	Score        float64        `json:"score"`
	PageNumber   *int           `json:"pageNumber"`
	ChunkIndex   int            `json:"chunkIndex"`
	Metadata     map[string]any `json:"metadata"`
	SourceURL    string         `json:"sourceUrl"`
}

type searchResponse struct {
	Results          []searchHit `json:"results"`
	GroundedAnswer   string      `json:"groundedAnswer"`
	SourcesUsed      []string    `json:"sourcesUsed"`
	TotalResults     int         `json:"totalResults"`
	ProcessingTimeMs int64       `json:"processingTimeMs"`
}

type healthResponse struct {
	Status             string `json:"status"`
	GroundingAvailable *bool  `json:"groundingAvailable"`
}

// Lexical returns the plain search backend (POST /evidence/search).
func (c *Client) Lexical() driven.LexicalSearch {
	return &lexicalSearch{client: c}
}

// Grounded returns the retrieval-augmented backend (POST /orchestrations/rag-search).
func (c *Client) Grounded() driven.GroundedSearch {
	return &groundedSearch{client: c}
}

// lexicalSearch implements driven.LexicalSearch.
type lexicalSearch struct {
	client *Client
}

var _ driven.LexicalSearch = (*lexicalSearch)(nil)

// Search runs a plain query.
func (s *lexicalSearch) Search(ctx context.Context, req driven.SearchRequest) (domain.SearchResponse, error) {
	var out searchResponse
	_, err := s.client.do(ctx, "plain search", http.MethodPost, "/evidence/search", searchRequest{
		Query:          req.Query,
		EngagementID:   req.EngagementID,
		TopK:           req.TopK,
		ScoreThreshold: req.ScoreThreshold,
	}, &out)
	if err != nil {
		return domain.SearchResponse{}, err
	}
	resp := out.toDomain()
	resp.Mode = domain.SearchModePlain
	return resp, nil
}

// groundedSearch implements driven.GroundedSearch.
type groundedSearch struct {
	client *Client
}

var _ driven.GroundedSearch = (*groundedSearch)(nil)

// Search runs a grounded query. Gateway-class failures are reported as
// *domain.BackendUnavailableError so the caller can degrade.
func (s *groundedSearch) Search(ctx context.Context, req driven.SearchRequest) (domain.SearchResponse, error) {
	var out searchResponse
	_, err := s.client.do(ctx, "grounded search", http.MethodPost, "/orchestrations/rag-search", searchRequest{
		Query:          req.Query,
		EngagementID:   req.EngagementID,
		TopK:           req.TopK,
		ScoreThreshold: req.ScoreThreshold,
		UseGrounding:   true,
	}, &out)
	if err != nil {
		return domain.SearchResponse{}, asUnavailable(err)
	}
	resp := out.toDomain()
	resp.Mode = domain.SearchModeGrounded
	return resp, nil
}

// Health calls GET /orchestrations/health.
func (s *groundedSearch) Health(ctx context.Context) error {
	var out healthResponse
	if _, err := s.client.do(ctx, "grounding health", http.MethodGet, "/orchestrations/health", nil, &out); err != nil {
		return &domain.BackendUnavailableError{Backend: groundedBackend, Cause: err}
	}
	if out.GroundingAvailable != nil && !*out.GroundingAvailable {
		return &domain.BackendUnavailableError{Backend: groundedBackend, Cause: errors.New("grounding disabled by backend")}
	}
	if out.Status != "" && out.Status != "ok" && out.Status != "healthy" {
		return &domain.BackendUnavailableError{Backend: groundedBackend, Cause: fmt.Errorf("status %q", out.Status)}
	}
	return nil
}

// asUnavailable marks gateway statuses and connection failures as the
// grounded backend being down. Timeouts and other API errors pass through.
func asUnavailable(err error) error {
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		if isUnavailableStatus(apiErr.StatusCode) {
			return &domain.BackendUnavailableError{Backend: groundedBackend, Cause: err}
		}
		return err
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && !errors.Is(err, context.Canceled) {
		return &domain.BackendUnavailableError{Backend: groundedBackend, Cause: err}
	}
	return err
}

func (r searchResponse) toDomain() domain.SearchResponse {
	results := make([]domain.SearchResult, 0, len(r.Results))
	for _, h := range r.Results {
		results = append(results, domain.SearchResult{
			DocumentID:   h.DocumentID,
			DocumentName: h.DocumentName,
			Content:      h.Content,
			Score:        h.Score,
			PageNumber:   h.PageNumber,
			ChunkIndex:   h.ChunkIndex,
			Metadata:     stringifyMetadata(h.Metadata),
			SourceURL:    h.SourceURL,
		})
	}
	return domain.SearchResponse{
		Results:          results,
		GroundedAnswer:   r.GroundedAnswer,
		SourcesUsed:      r.SourcesUsed,
		TotalResults:     r.TotalResults,
		ProcessingTimeMs: r.ProcessingTimeMs,
	}
}

// stringifyMetadata flattens backend metadata values to strings.
func stringifyMetadata(in map[string]any) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		if v == nil {
			continue
		}
		out[k] = fmt.Sprint(v)
	}
	return out
}
