package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/attest/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for attest resources.
	uriScheme = "attest://"

	// evidencePageSize is the number of evidence items listed by the evidence resource.
	evidencePageSize = 100
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "evidence",
		Name:        "evidence",
		Description: "Evidence registered in the engagement",
		MIMEType:    "application/json",
	}, s.handleEvidenceResource)

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "citations",
		Name:        "citations",
		Description: "Numbered snapshot of the saved citations",
		MIMEType:    "application/json",
	}, s.handleCitationsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "evidence/{documentId}/status",
		Name:        "ingestion-status",
		Description: "Indexing status of one evidence document",
		MIMEType:    "application/json",
	}, s.handleStatusResource)
}

// handleEvidenceResource returns the first page of the engagement's evidence.
func (s *Server) handleEvidenceResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Evidence == nil {
		return jsonResource(req.Params.URI, "[]"), nil
	}

	page, err := s.ports.Evidence.List(ctx, s.ports.EngagementID, 1, evidencePageSize)
	if err != nil {
		return nil, fmt.Errorf("listing evidence: %w", err)
	}

	type evidenceInfo struct {
		ID        string `json:"id"`
		Filename  string `json:"filename"`
		MimeType  string `json:"mime_type"`
		SizeBytes int64  `json:"size_bytes"`
		Checksum  string `json:"checksum_sha256"`
		PIIFlag   bool   `json:"pii_flag"`
	}

	infos := make([]evidenceInfo, len(page.Items))
	for i := range page.Items {
		ev := &page.Items[i]
		infos[i] = evidenceInfo{
			ID:        ev.ID,
			Filename:  ev.Filename,
			MimeType:  ev.MimeType,
			SizeBytes: ev.SizeBytes,
			Checksum:  ev.ChecksumSHA256,
			PIIFlag:   ev.PIIFlag,
		}
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling evidence: %w", err)
	}

	return jsonResource(req.Params.URI, string(data)), nil
}

// handleCitationsResource returns the saved citations as a JSON export.
func (s *Server) handleCitationsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Citations == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	var buf bytes.Buffer
	if err := s.ports.Citations.Export(ctx, domain.ExportJSON, &buf); err != nil {
		return nil, fmt.Errorf("exporting citations: %w", err)
	}

	return jsonResource(req.Params.URI, buf.String()), nil
}

// handleStatusResource returns the ingestion status of one document.
func (s *Server) handleStatusResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Ingestion == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	// Extract documentId from URI: attest://evidence/{documentId}/status
	docID := extractDocumentID(req.Params.URI)
	if docID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	status, err := s.ports.Ingestion.GetStatus(ctx, s.ports.EngagementID, docID)
	if err != nil {
		return nil, fmt.Errorf("getting ingestion status: %w", err)
	}

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling status: %w", err)
	}

	return jsonResource(req.Params.URI, string(data)), nil
}

func jsonResource(uri, text string) *mcp.ReadResourceResult {
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     text,
		}},
	}
}

// extractDocumentID extracts the document ID from a URI like attest://evidence/{documentId}/status.
func extractDocumentID(uri string) string {
	const prefix = uriScheme + "evidence/"
	const suffix = "/status"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	uri = strings.TrimPrefix(uri, prefix)
	if !strings.HasSuffix(uri, suffix) {
		return ""
	}

	id := strings.TrimSuffix(uri, suffix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
