package mcp

import (
	"bytes"
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/attest/internal/core/domain"
)

// SearchInput is the input schema for the search and cite tools.
type SearchInput struct {
	Query     string   `json:"query" jsonschema:"the search query to run against the engagement's evidence"`
	Grounded  bool     `json:"grounded,omitempty" jsonschema:"request a grounded answer; falls back to plain search when grounding is down"`
	TopK      int      `json:"top_k,omitempty" jsonschema:"maximum number of results to return"`
	Threshold *float64 `json:"threshold,omitempty" jsonschema:"minimum relevance score in [0,1]"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results        []SearchResultOutput `json:"results"`
	Count          int                  `json:"count"`
	Mode           string               `json:"mode"`
	Degraded       bool                 `json:"degraded"`
	GroundedAnswer string               `json:"grounded_answer,omitempty"`
}

// SearchResultOutput represents a single search result.
type SearchResultOutput struct {
	DocumentID   string  `json:"document_id"`
	DocumentName string  `json:"document_name"`
	ChunkIndex   int     `json:"chunk_index"`
	PageNumber   *int    `json:"page_number,omitempty"`
	Score        float64 `json:"score"`
	Content      string  `json:"content"`
	SourceURL    string  `json:"source_url,omitempty"`
}

// CiteOutput is the output schema for the cite tool.
type CiteOutput struct {
	Added int `json:"added"`
	Saved int `json:"saved"`
}

// CitationsInput is the input schema for the citations tool.
type CitationsInput struct {
	Format string `json:"format,omitempty" jsonschema:"export format: json (default) or csv"`
}

// CitationsOutput is the output schema for the citations tool.
type CitationsOutput struct {
	Format string `json:"format"`
	Export string `json:"export"`
}

// StatusInput is the input schema for the ingestion_status tool.
type StatusInput struct {
	DocumentID string `json:"document_id" jsonschema:"the evidence id returned by upload"`
}

// StatusOutput is the output schema for the ingestion_status tool.
type StatusOutput struct {
	DocumentID    string `json:"document_id"`
	Status        string `json:"status"`
	Searchable    bool   `json:"searchable"`
	ChunksCreated *int   `json:"chunks_created,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Search the engagement's indexed evidence, optionally with a grounded answer",
	}, s.handleSearch)

	if s.ports.Citations != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "cite",
			Description: "Run a search and save its results as citations",
		}, s.handleCite)

		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "citations",
			Description: "Export the saved citations as JSON or CSV",
		}, s.handleCitations)
	}

	if s.ports.Ingestion != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "ingestion_status",
			Description: "Report whether an uploaded evidence document is searchable yet",
		}, s.handleStatus)
	}
}

// query builds a domain query from tool input and the server defaults.
func (s *Server) query(input SearchInput) domain.SearchQuery {
	q := domain.SearchQuery{
		Text:           input.Query,
		EngagementID:   s.ports.EngagementID,
		TopK:           input.TopK,
		ScoreThreshold: s.ports.ScoreThreshold,
		Mode:           domain.SearchModePlain,
	}
	if q.TopK <= 0 {
		q.TopK = s.ports.TopK
	}
	if input.Threshold != nil {
		q.ScoreThreshold = *input.Threshold
	}
	if input.Grounded {
		q.Mode = domain.SearchModeGrounded
	}
	return q
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	resp, err := s.ports.Search.Search(ctx, s.query(input))
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results:        make([]SearchResultOutput, len(resp.Results)),
		Count:          len(resp.Results),
		Mode:           resp.Mode.String(),
		Degraded:       resp.Degraded,
		GroundedAnswer: resp.GroundedAnswer,
	}

	for i := range resp.Results {
		r := &resp.Results[i]
		output.Results[i] = SearchResultOutput{
			DocumentID:   r.DocumentID,
			DocumentName: r.DocumentName,
			ChunkIndex:   r.ChunkIndex,
			PageNumber:   r.PageNumber,
			Score:        r.Score,
			Content:      r.Content,
			SourceURL:    r.SourceURL,
		}
	}

	return nil, output, nil
}

// handleCite searches and saves the results as citations.
func (s *Server) handleCite(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, CiteOutput, error) {
	if s.ports.Citations == nil {
		return nil, CiteOutput{}, errCitationsDisabled
	}

	resp, err := s.ports.Search.Search(ctx, s.query(input))
	if err != nil {
		return nil, CiteOutput{}, err
	}

	saved, err := s.ports.Citations.AddFromResults(ctx, resp.Results)
	if err != nil {
		return nil, CiteOutput{}, fmt.Errorf("saving citations: %w", err)
	}

	return nil, CiteOutput{Added: len(resp.Results), Saved: len(saved)}, nil
}

// handleCitations exports the saved citation set.
func (s *Server) handleCitations(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input CitationsInput,
) (*mcp.CallToolResult, CitationsOutput, error) {
	if s.ports.Citations == nil {
		return nil, CitationsOutput{}, errCitationsDisabled
	}

	format := domain.ExportJSON
	if input.Format != "" {
		format = domain.ExportFormat(input.Format)
	}

	var buf bytes.Buffer
	if err := s.ports.Citations.Export(ctx, format, &buf); err != nil {
		return nil, CitationsOutput{}, err
	}

	return nil, CitationsOutput{Format: string(format), Export: buf.String()}, nil
}

// handleStatus reports one document's indexing status.
func (s *Server) handleStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	status, err := s.ports.Ingestion.GetStatus(ctx, s.ports.EngagementID, input.DocumentID)
	if err != nil {
		return nil, StatusOutput{}, err
	}

	return nil, StatusOutput{
		DocumentID:    status.DocumentID,
		Status:        string(status.Status),
		Searchable:    status.IsSearchable(),
		ChunksCreated: status.ChunksCreated,
	}, nil
}
