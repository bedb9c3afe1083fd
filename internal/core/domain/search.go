package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SearchMode selects the retrieval backend.
type SearchMode string

// Available search modes.
const (
	// SearchModePlain uses the lexical search backend.
	SearchModePlain SearchMode = "plain"

	// SearchModeGrounded uses the RAG backend, which may also synthesise an answer.
	SearchModeGrounded SearchMode = "grounded"
)

// Search defaults.
const (
	DefaultTopK          = 10
	DefaultSearchTimeout = 10 * time.Second
)

// IsValid returns true if the search mode is recognised.
func (m SearchMode) IsValid() bool {
	return m == SearchModePlain || m == SearchModeGrounded
}

// String returns the string representation.
func (m SearchMode) String() string {
	return string(m)
}

// Description returns a human-readable description of the mode.
func (m SearchMode) Description() string {
	switch m {
	case SearchModePlain:
		return "Plain (lexical search)"
	case SearchModeGrounded:
		return "Grounded (retrieval-augmented)"
	default:
		return "Unknown"
	}
}

// SearchQuery is a single search invocation.
type SearchQuery struct {
	Text           string
	EngagementID   string
	TopK           int
	ScoreThreshold float64
	Mode           SearchMode
}

// NormalizeText lowercases, trims, and collapses internal whitespace.
func NormalizeText(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}

// Normalized returns a copy with defaults applied: TopK falls back to
// DefaultTopK, the threshold is clamped to [0,1], and an unknown mode
// becomes plain.
func (q SearchQuery) Normalized() SearchQuery {
	if q.TopK <= 0 {
		q.TopK = DefaultTopK
	}
	if q.ScoreThreshold < 0 {
		q.ScoreThreshold = 0
	}
	if q.ScoreThreshold > 1 {
		q.ScoreThreshold = 1
	}
	if !q.Mode.IsValid() {
		q.Mode = SearchModePlain
	}
	return q
}

// CacheKey is the memoisation signature of the query.
func (q SearchQuery) CacheKey() string {
	n := q.Normalized()
	return fmt.Sprintf("%s|%s|%s|%d|%s",
		n.EngagementID,
		NormalizeText(n.Text),
		n.Mode,
		n.TopK,
		strconv.FormatFloat(n.ScoreThreshold, 'f', -1, 64))
}

// SearchResult is a single normalised hit.
type SearchResult struct {
	DocumentID   string            `json:"documentId"`
	DocumentName string            `json:"documentName"`
	Content      string            `json:"content"`
	Score        float64           `json:"score"`
	PageNumber   *int              `json:"pageNumber,omitempty"`
	ChunkIndex   int               `json:"chunkIndex"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	SourceURL    string            `json:"sourceUrl,omitempty"`
}

// SearchResponse is the gateway's answer to a SearchQuery.
type SearchResponse struct {
	Results []SearchResult `json:"results"`

	// Mode is the mode actually served, which differs from the requested
	// mode when grounding degraded to plain.
	Mode SearchMode `json:"mode"`

	// GroundedAnswer is the synthesised answer, grounded mode only.
	GroundedAnswer string   `json:"groundedAnswer,omitempty"`
	SourcesUsed    []string `json:"sourcesUsed,omitempty"`

	// Degraded is true when grounded mode was requested but plain served it.
	Degraded bool `json:"degraded"`

	TotalResults     int   `json:"totalResults"`
	ProcessingTimeMs int64 `json:"processingTimeMs"`
}
