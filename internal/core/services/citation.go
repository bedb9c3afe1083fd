package services

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/custodia-labs/attest/internal/core/domain"
	"github.com/custodia-labs/attest/internal/core/ports/driven"
	"github.com/custodia-labs/attest/internal/core/ports/driving"
	"github.com/custodia-labs/attest/internal/logger"
)

// Ensure CitationAggregator implements the interface.
var _ driving.CitationService = (*CitationAggregator)(nil)

// citationCSVHeader is the column order of CSV exports.
var citationCSVHeader = []string{
	"citation_number",
	"document_id",
	"document_name",
	"chunk_index",
	"page_number",
	"relevance_score",
	"excerpt",
	"source_url",
	"captured_at",
	"engagement_id",
	"exported_at",
}

// CitationAggregator keeps the saved citation set of one engagement in a
// key-value store. Entries are unique by (documentId, chunkIndex) and the
// set is capped, evicting the oldest insertions first regardless of score.
type CitationAggregator struct {
	store        driven.KeyValueStore
	engagementID string
	max          int
	now          func() time.Time

	mu sync.Mutex
}

// NewCitationAggregator creates an aggregator. max outside
// (0, domain.MaxSavedCitations] uses domain.MaxSavedCitations.
func NewCitationAggregator(store driven.KeyValueStore, engagementID string, max int) *CitationAggregator {
	if max <= 0 || max > domain.MaxSavedCitations {
		max = domain.MaxSavedCitations
	}
	return &CitationAggregator{
		store:        store,
		engagementID: engagementID,
		max:          max,
		now:          time.Now,
	}
}

// SetClock overrides the time source. Useful for testing.
func (a *CitationAggregator) SetClock(now func() time.Time) {
	a.now = now
}

// storeKey is where this engagement's citations live.
func (a *CitationAggregator) storeKey() string {
	return "citations/" + a.engagementID
}

// AddFromResults merges results into the saved set. A citation whose key
// already exists replaces the old one in place (latest wins); new keys are
// appended. The set is then trimmed to the most recent insertions.
func (a *CitationAggregator) AddFromResults(
	ctx context.Context, results []domain.SearchResult,
) ([]domain.Citation, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	saved, err := a.load(ctx)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(saved))
	for i := range saved {
		index[saved[i].Key()] = i
	}

	now := a.now().UTC()
	replaced := 0
	for i := range results {
		c := domain.CitationFromResult(results[i], now)
		if pos, ok := index[c.Key()]; ok {
			saved[pos] = c
			replaced++
			continue
		}
		index[c.Key()] = len(saved)
		saved = append(saved, c)
	}

	evicted := 0
	if len(saved) > a.max {
		evicted = len(saved) - a.max
		saved = append([]domain.Citation(nil), saved[evicted:]...)
	}

	if err := a.save(ctx, saved); err != nil {
		return nil, err
	}

	logger.Debug("Citations: +%d results, %d replaced, %d evicted, %d saved",
		len(results), replaced, evicted, len(saved))
	return cloneCitations(saved), nil
}

// List returns the saved set, oldest first.
func (a *CitationAggregator) List(ctx context.Context) ([]domain.Citation, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.load(ctx)
}

// Clear removes the saved set.
func (a *CitationAggregator) Clear(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.store.Delete(ctx, a.storeKey()); err != nil {
		return fmt.Errorf("clear citations: %w", err)
	}
	return nil
}

// Export writes a snapshot of the saved set. Citation numbers are 1-based
// and assigned here, never stored.
func (a *CitationAggregator) Export(ctx context.Context, format domain.ExportFormat, w io.Writer) error {
	if !format.IsValid() {
		return fmt.Errorf("%w: export format %q", domain.ErrInvalidInput, format)
	}

	citations, err := a.List(ctx)
	if err != nil {
		return err
	}

	snapshot := domain.CitationExport{
		Timestamp:      a.now().UTC(),
		EngagementID:   a.engagementID,
		TotalCitations: len(citations),
		Citations:      make([]domain.ExportedCitation, len(citations)),
	}
	for i := range citations {
		snapshot.Citations[i] = domain.ExportedCitation{CitationNumber: i + 1, Citation: citations[i]}
	}

	switch format {
	case domain.ExportCSV:
		return writeCitationCSV(w, snapshot)
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(snapshot); err != nil {
			return fmt.Errorf("encode citations: %w", err)
		}
		return nil
	}
}

// load reads the saved set (caller must hold lock).
func (a *CitationAggregator) load(ctx context.Context) ([]domain.Citation, error) {
	data, err := a.store.Get(ctx, a.storeKey())
	if errors.Is(err, domain.ErrNotFound) {
		return []domain.Citation{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load citations: %w", err)
	}

	var citations []domain.Citation
	if err := json.Unmarshal(data, &citations); err != nil {
		return nil, fmt.Errorf("decode citations: %w", err)
	}
	if citations == nil {
		citations = []domain.Citation{}
	}
	return citations, nil
}

// save writes the saved set (caller must hold lock).
func (a *CitationAggregator) save(ctx context.Context, citations []domain.Citation) error {
	data, err := json.Marshal(citations)
	if err != nil {
		return fmt.Errorf("encode citations: %w", err)
	}
	if err := a.store.Set(ctx, a.storeKey(), data); err != nil {
		return fmt.Errorf("save citations: %w", err)
	}
	return nil
}

func writeCitationCSV(w io.Writer, snapshot domain.CitationExport) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(citationCSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	exportedAt := snapshot.Timestamp.Format(time.RFC3339)
	for i := range snapshot.Citations {
		c := snapshot.Citations[i]
		page := ""
		if c.PageNumber != nil {
			page = strconv.Itoa(*c.PageNumber)
		}
		record := []string{
			strconv.Itoa(c.CitationNumber),
			c.DocumentID,
			c.DocumentName,
			strconv.Itoa(c.ChunkIndex),
			page,
			strconv.FormatFloat(c.RelevanceScore, 'f', 4, 64),
			c.Excerpt,
			c.SourceURL,
			c.CapturedAt.UTC().Format(time.RFC3339),
			snapshot.EngagementID,
			exportedAt,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row %d: %w", c.CitationNumber, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func cloneCitations(in []domain.Citation) []domain.Citation {
	return append([]domain.Citation(nil), in...)
}
