package domain

import (
	"fmt"
	"time"
)

// MaxSavedCitations caps a saved citation set. Oldest entries are evicted first.
const MaxSavedCitations = 50

// Citation is a durable projection of a SearchResult.
// It is unique by (DocumentID, ChunkIndex) within a saved set.
type Citation struct {
	DocumentID     string            `json:"documentId"`
	DocumentName   string            `json:"documentName"`
	Excerpt        string            `json:"excerpt"`
	RelevanceScore float64           `json:"relevanceScore"`
	PageNumber     *int              `json:"pageNumber,omitempty"`
	ChunkIndex     int               `json:"chunkIndex"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	SourceURL      string            `json:"sourceUrl,omitempty"`
	CapturedAt     time.Time         `json:"capturedAt"`
}

// Key returns the dedup key of the citation.
func (c Citation) Key() string {
	return CitationKey(c.DocumentID, c.ChunkIndex)
}

// CitationKey builds the dedup key for (documentID, chunkIndex).
func CitationKey(documentID string, chunkIndex int) string {
	return fmt.Sprintf("%s#%d", documentID, chunkIndex)
}

// CitationFromResult projects a search hit into a citation.
func CitationFromResult(r SearchResult, capturedAt time.Time) Citation {
	var meta map[string]string
	if len(r.Metadata) > 0 {
		meta = make(map[string]string, len(r.Metadata))
		for k, v := range r.Metadata {
			meta[k] = v
		}
	}
	var page *int
	if r.PageNumber != nil {
		p := *r.PageNumber
		page = &p
	}
	return Citation{
		DocumentID:     r.DocumentID,
		DocumentName:   r.DocumentName,
		Excerpt:        r.Content,
		RelevanceScore: r.Score,
		PageNumber:     page,
		ChunkIndex:     r.ChunkIndex,
		Metadata:       meta,
		SourceURL:      r.SourceURL,
		CapturedAt:     capturedAt,
	}
}

// ExportFormat selects a citation export projection.
type ExportFormat string

// Supported export formats.
const (
	ExportJSON ExportFormat = "json"
	ExportCSV  ExportFormat = "csv"
)

// IsValid returns true if the format is recognised.
func (f ExportFormat) IsValid() bool {
	return f == ExportJSON || f == ExportCSV
}

// ExportedCitation is a citation numbered at export time.
type ExportedCitation struct {
	CitationNumber int `json:"citation_number"`
	Citation
}

// CitationExport is the flat, ordered snapshot written by an export.
type CitationExport struct {
	Timestamp      time.Time          `json:"timestamp"`
	EngagementID   string             `json:"engagementId"`
	TotalCitations int                `json:"totalCitations"`
	Citations      []ExportedCitation `json:"citations"`
}
