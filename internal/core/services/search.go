package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/custodia-labs/attest/internal/cache"
	"github.com/custodia-labs/attest/internal/core/domain"
	"github.com/custodia-labs/attest/internal/core/ports/driven"
	"github.com/custodia-labs/attest/internal/core/ports/driving"
	"github.com/custodia-labs/attest/internal/logger"
)

// Ensure SearchGateway implements the interface.
var _ driving.SearchService = (*SearchGateway)(nil)

// SearchConfig configures a SearchGateway.
type SearchConfig struct {
	// CacheTTL is how long results are memoised (default 300s).
	CacheTTL time.Duration

	// Timeout is the per-search budget, at most domain.DefaultSearchTimeout.
	Timeout time.Duration

	// GroundingEnabled allows grounded mode at all.
	GroundingEnabled bool
}

// SearchGateway dispatches queries to the lexical or grounded backend,
// thresholds and ranks the hits, and memoises responses by query signature.
type SearchGateway struct {
	lexical  driven.LexicalSearch
	grounded driven.GroundedSearch
	probe    *GroundingProbe
	cache    *cache.Cache[domain.SearchResponse]
	timeout  time.Duration
}

// NewSearchGateway creates a gateway. grounded is optional (can be nil).
func NewSearchGateway(
	lexical driven.LexicalSearch,
	grounded driven.GroundedSearch,
	cfg SearchConfig,
	opts ...cache.Option[domain.SearchResponse],
) *SearchGateway {
	if cfg.Timeout <= 0 || cfg.Timeout > domain.DefaultSearchTimeout {
		cfg.Timeout = domain.DefaultSearchTimeout
	}
	return &SearchGateway{
		lexical:  lexical,
		grounded: grounded,
		probe:    NewGroundingProbe(grounded, cfg.GroundingEnabled),
		cache:    cache.New(cfg.CacheTTL, opts...),
		timeout:  cfg.Timeout,
	}
}

// GroundingAvailable reports the session's cached grounding capability.
func (g *SearchGateway) GroundingAvailable(ctx context.Context) bool {
	return g.probe.Available(ctx)
}

// RecheckGrounding re-probes the grounded backend and drops cached responses
// so degraded results are not replayed after a recovery.
func (g *SearchGateway) RecheckGrounding(ctx context.Context) bool {
	available := g.probe.Recheck(ctx)
	g.cache.Purge()
	return available
}

// Search runs query and returns normalised results.
func (g *SearchGateway) Search(ctx context.Context, query domain.SearchQuery) (domain.SearchResponse, error) {
	logger.Section("Search Execution")

	q := query.Normalized()
	logger.Debug("Query: %q, mode=%s, topK=%d, threshold=%.2f", q.Text, q.Mode, q.TopK, q.ScoreThreshold)

	if domain.NormalizeText(q.Text) == "" {
		logger.Debug("Empty query, returning no results")
		return domain.SearchResponse{Results: []domain.SearchResult{}, Mode: q.Mode}, nil
	}
	if g.lexical == nil {
		return domain.SearchResponse{}, errors.New("search backend unavailable")
	}

	key := q.CacheKey()
	if cached, ok := g.cache.Get(key); ok {
		logger.Info("Cache hit: %d results", len(cached.Results))
		return cloneResponse(cached), nil
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.dispatch(ctx, q)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, domain.ErrTimeout) {
			err = &domain.TimeoutError{Op: "search", Budget: g.timeout}
		}
		logger.Warn("Search failed: %v", err)
		return domain.SearchResponse{}, fmt.Errorf("search: %w", err)
	}

	logger.Debug("Raw results: %d", len(resp.Results))
	resp.Results = rankResults(resp.Results, q.ScoreThreshold, q.TopK)
	resp.TotalResults = len(resp.Results)
	if resp.ProcessingTimeMs == 0 {
		resp.ProcessingTimeMs = time.Since(start).Milliseconds()
	}
	logger.Info("Final results: %d (mode=%s, degraded=%t)", len(resp.Results), resp.Mode, resp.Degraded)

	g.cache.Set(key, cloneResponse(resp))
	return resp, nil
}

// dispatch picks the backend for q. Grounded queries fall back to plain
// whenever grounding is disabled, reported unhealthy, or reports itself
// unavailable mid-call.
func (g *SearchGateway) dispatch(ctx context.Context, q domain.SearchQuery) (domain.SearchResponse, error) {
	req := driven.SearchRequest{
		Query:          q.Text,
		EngagementID:   q.EngagementID,
		TopK:           q.TopK,
		ScoreThreshold: q.ScoreThreshold,
	}

	degraded := false
	if q.Mode == domain.SearchModeGrounded {
		if g.probe.Available(ctx) {
			logger.Debug("Executing grounded search")
			resp, err := g.grounded.Search(ctx, req)
			if err == nil {
				resp.Mode = domain.SearchModeGrounded
				resp.Degraded = false
				return resp, nil
			}
			if !errors.Is(err, domain.ErrBackendUnavailable) {
				return domain.SearchResponse{}, fmt.Errorf("grounded search: %w", err)
			}
			g.probe.MarkUnavailable(err)
		}
		logger.Warn("Grounded search unavailable, degrading to plain")
		degraded = true
	}

	logger.Debug("Executing plain search")
	resp, err := g.lexical.Search(ctx, req)
	if err != nil {
		return domain.SearchResponse{}, fmt.Errorf("plain search: %w", err)
	}
	resp.Mode = domain.SearchModePlain
	resp.Degraded = degraded
	resp.GroundedAnswer = ""
	resp.SourcesUsed = nil
	return resp, nil
}

// rankResults drops hits below threshold, sorts by descending score without
// trusting upstream order (ties keep upstream order), and caps to topK.
func rankResults(results []domain.SearchResult, threshold float64, topK int) []domain.SearchResult {
	filtered := make([]domain.SearchResult, 0, len(results))
	for i := range results {
		if results[i].Score >= threshold {
			filtered = append(filtered, results[i])
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Score > filtered[j].Score
	})

	if topK > 0 && len(filtered) > topK {
		filtered = filtered[:topK]
	}
	return filtered
}

// cloneResponse copies the slices of resp so cached entries are never
// aliased by callers.
func cloneResponse(resp domain.SearchResponse) domain.SearchResponse {
	out := resp
	out.Results = append([]domain.SearchResult(nil), resp.Results...)
	if out.Results == nil {
		out.Results = []domain.SearchResult{}
	}
	if resp.SourcesUsed != nil {
		out.SourcesUsed = append([]string(nil), resp.SourcesUsed...)
	}
	return out
}
