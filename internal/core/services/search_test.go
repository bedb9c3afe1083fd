package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/attest/internal/cache"
	"github.com/custodia-labs/attest/internal/core/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func plainQuery(text string) domain.SearchQuery {
	return domain.SearchQuery{Text: text, EngagementID: "eng-1"}
}

func TestSearchGateway_RanksAndThresholds(t *testing.T) {
	lexical := &mockSearchBackend{resp: domain.SearchResponse{Results: []domain.SearchResult{
		result("a", 0, 0.9),
		result("b", 0, 0.5),
		result("c", 0, 0.2),
	}}}
	g := NewSearchGateway(lexical, nil, SearchConfig{})

	q := plainQuery("access review")
	q.ScoreThreshold = 0.4
	resp, err := g.Search(context.Background(), q)
	require.NoError(t, err)

	require.Len(t, resp.Results, 2)
	assert.Equal(t, "a", resp.Results[0].DocumentID)
	assert.Equal(t, "b", resp.Results[1].DocumentID)
	assert.Equal(t, 2, resp.TotalResults)
	assert.Equal(t, domain.SearchModePlain, resp.Mode)
	assert.False(t, resp.Degraded)
}

func TestSearchGateway_ThresholdIsInclusive(t *testing.T) {
	lexical := &mockSearchBackend{resp: domain.SearchResponse{Results: []domain.SearchResult{
		result("a", 0, 0.5),
		result("b", 0, 0.49),
	}}}
	g := NewSearchGateway(lexical, nil, SearchConfig{})

	q := plainQuery("mfa")
	q.ScoreThreshold = 0.5
	resp, err := g.Search(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "a", resp.Results[0].DocumentID)
}

func TestSearchGateway_ResortsAndCaps(t *testing.T) {
	lexical := &mockSearchBackend{resp: domain.SearchResponse{Results: []domain.SearchResult{
		result("low", 0, 0.1),
		result("tie-1", 0, 0.7),
		result("high", 0, 0.95),
		result("tie-2", 0, 0.7),
	}}}
	g := NewSearchGateway(lexical, nil, SearchConfig{})

	q := plainQuery("encryption at rest")
	q.TopK = 3
	resp, err := g.Search(context.Background(), q)
	require.NoError(t, err)

	ids := make([]string, 0, len(resp.Results))
	for _, r := range resp.Results {
		ids = append(ids, r.DocumentID)
	}
	assert.Equal(t, []string{"high", "tie-1", "tie-2"}, ids)
	assert.Equal(t, 3, lexical.lastReq.TopK)
}

func TestSearchGateway_EmptyQuery(t *testing.T) {
	lexical := &mockSearchBackend{}
	g := NewSearchGateway(lexical, nil, SearchConfig{})

	resp, err := g.Search(context.Background(), plainQuery("   \t "))
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
	assert.NotNil(t, resp.Results)
	assert.Zero(t, lexical.searchCalls())
}

func TestSearchGateway_CacheHit(t *testing.T) {
	lexical := &mockSearchBackend{resp: domain.SearchResponse{Results: []domain.SearchResult{result("a", 0, 0.8)}}}
	g := NewSearchGateway(lexical, nil, SearchConfig{})

	first, err := g.Search(context.Background(), plainQuery("Access  Review"))
	require.NoError(t, err)

	second, err := g.Search(context.Background(), plainQuery("access review"))
	require.NoError(t, err)

	assert.Equal(t, 1, lexical.searchCalls())
	assert.Equal(t, first.Results, second.Results)

	// Mutating a returned response must not leak into the cache.
	second.Results[0].DocumentID = "mutated"
	third, err := g.Search(context.Background(), plainQuery("access review"))
	require.NoError(t, err)
	assert.Equal(t, "a", third.Results[0].DocumentID)
}

func TestSearchGateway_CacheKeyIncludesParameters(t *testing.T) {
	lexical := &mockSearchBackend{resp: domain.SearchResponse{Results: []domain.SearchResult{result("a", 0, 0.8)}}}
	g := NewSearchGateway(lexical, nil, SearchConfig{})

	q := plainQuery("access review")
	_, err := g.Search(context.Background(), q)
	require.NoError(t, err)

	q.TopK = 5
	_, err = g.Search(context.Background(), q)
	require.NoError(t, err)

	other := plainQuery("access review")
	other.EngagementID = "eng-2"
	_, err = g.Search(context.Background(), other)
	require.NoError(t, err)

	assert.Equal(t, 3, lexical.searchCalls())
}

func TestSearchGateway_CacheExpires(t *testing.T) {
	clock := newFakeClock()
	lexical := &mockSearchBackend{resp: domain.SearchResponse{Results: []domain.SearchResult{result("a", 0, 0.8)}}}
	g := NewSearchGateway(lexical, nil, SearchConfig{CacheTTL: 300 * time.Second},
		cache.WithClock[domain.SearchResponse](clock.Now))

	_, err := g.Search(context.Background(), plainQuery("q"))
	require.NoError(t, err)

	clock.Advance(299 * time.Second)
	_, err = g.Search(context.Background(), plainQuery("q"))
	require.NoError(t, err)
	assert.Equal(t, 1, lexical.searchCalls())

	clock.Advance(2 * time.Second)
	_, err = g.Search(context.Background(), plainQuery("q"))
	require.NoError(t, err)
	assert.Equal(t, 2, lexical.searchCalls())
}

func TestSearchGateway_ErrorsAreNotCached(t *testing.T) {
	lexical := &mockSearchBackend{err: errors.New("boom")}
	g := NewSearchGateway(lexical, nil, SearchConfig{})

	_, err := g.Search(context.Background(), plainQuery("q"))
	require.Error(t, err)

	lexical.set(func(m *mockSearchBackend) {
		m.err = nil
		m.resp = domain.SearchResponse{Results: []domain.SearchResult{result("a", 0, 0.8)}}
	})
	resp, err := g.Search(context.Background(), plainQuery("q"))
	require.NoError(t, err)
	assert.Len(t, resp.Results, 1)
	assert.Equal(t, 2, lexical.searchCalls())
}

func TestSearchGateway_Timeout(t *testing.T) {
	lexical := &mockSearchBackend{block: true}
	g := NewSearchGateway(lexical, nil, SearchConfig{Timeout: 20 * time.Millisecond})

	_, err := g.Search(context.Background(), plainQuery("q"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTimeout)
}

func TestSearchGateway_TimeoutIsCapped(t *testing.T) {
	g := NewSearchGateway(&mockSearchBackend{}, nil, SearchConfig{Timeout: time.Minute})
	assert.Equal(t, domain.DefaultSearchTimeout, g.timeout)

	g = NewSearchGateway(&mockSearchBackend{}, nil, SearchConfig{Timeout: 2 * time.Second})
	assert.Equal(t, 2*time.Second, g.timeout)
}

func TestSearchGateway_Grounded(t *testing.T) {
	lexical := &mockSearchBackend{}
	grounded := &mockSearchBackend{resp: domain.SearchResponse{
		Results:        []domain.SearchResult{result("a", 1, 0.6), result("b", 0, 0.9)},
		GroundedAnswer: "Access reviews run quarterly.",
		SourcesUsed:    []string{"a", "b"},
	}}
	g := NewSearchGateway(lexical, grounded, SearchConfig{GroundingEnabled: true})

	q := plainQuery("how often are access reviews")
	q.Mode = domain.SearchModeGrounded
	resp, err := g.Search(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, domain.SearchModeGrounded, resp.Mode)
	assert.False(t, resp.Degraded)
	assert.Equal(t, "Access reviews run quarterly.", resp.GroundedAnswer)
	assert.Equal(t, "b", resp.Results[0].DocumentID)
	assert.Zero(t, lexical.searchCalls())
	assert.Equal(t, 1, grounded.healthCalls())
}

func TestSearchGateway_DegradesWhenUnhealthy(t *testing.T) {
	lexical := &mockSearchBackend{resp: domain.SearchResponse{Results: []domain.SearchResult{result("a", 0, 0.8)}}}
	grounded := &mockSearchBackend{healthErr: &domain.BackendUnavailableError{Backend: "rag"}}
	g := NewSearchGateway(lexical, grounded, SearchConfig{GroundingEnabled: true})

	q := plainQuery("q")
	q.Mode = domain.SearchModeGrounded
	resp, err := g.Search(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, domain.SearchModePlain, resp.Mode)
	assert.True(t, resp.Degraded)
	assert.Empty(t, resp.GroundedAnswer)
	assert.Len(t, resp.Results, 1)
	assert.Zero(t, grounded.searchCalls())

	// The capability is checked once per session.
	q.Text = "another"
	_, err = g.Search(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, 1, grounded.healthCalls())
}

func TestSearchGateway_DegradesWhenDisabled(t *testing.T) {
	lexical := &mockSearchBackend{resp: domain.SearchResponse{Results: []domain.SearchResult{result("a", 0, 0.8)}}}
	grounded := &mockSearchBackend{}
	g := NewSearchGateway(lexical, grounded, SearchConfig{GroundingEnabled: false})

	q := plainQuery("q")
	q.Mode = domain.SearchModeGrounded
	resp, err := g.Search(context.Background(), q)
	require.NoError(t, err)
	assert.True(t, resp.Degraded)
	assert.Zero(t, grounded.healthCalls())
	assert.False(t, g.GroundingAvailable(context.Background()))
}

func TestSearchGateway_DegradesMidCall(t *testing.T) {
	lexical := &mockSearchBackend{resp: domain.SearchResponse{Results: []domain.SearchResult{result("a", 0, 0.8)}}}
	grounded := &mockSearchBackend{err: &domain.BackendUnavailableError{Backend: "rag", Cause: errors.New("503")}}
	g := NewSearchGateway(lexical, grounded, SearchConfig{GroundingEnabled: true})

	q := plainQuery("q")
	q.Mode = domain.SearchModeGrounded
	resp, err := g.Search(context.Background(), q)
	require.NoError(t, err)
	assert.True(t, resp.Degraded)
	assert.Equal(t, domain.SearchModePlain, resp.Mode)
	assert.False(t, g.GroundingAvailable(context.Background()))
}

func TestSearchGateway_GroundedErrorPropagates(t *testing.T) {
	lexical := &mockSearchBackend{}
	grounded := &mockSearchBackend{err: &domain.APIError{StatusCode: 400, Message: "bad query"}}
	g := NewSearchGateway(lexical, grounded, SearchConfig{GroundingEnabled: true})

	q := plainQuery("q")
	q.Mode = domain.SearchModeGrounded
	_, err := g.Search(context.Background(), q)

	var apiErr *domain.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 400, apiErr.StatusCode)
	assert.Zero(t, lexical.searchCalls())
}

func TestSearchGateway_RecheckGrounding(t *testing.T) {
	lexical := &mockSearchBackend{resp: domain.SearchResponse{Results: []domain.SearchResult{result("a", 0, 0.8)}}}
	grounded := &mockSearchBackend{
		healthErr: &domain.BackendUnavailableError{Backend: "rag"},
		resp:      domain.SearchResponse{Results: []domain.SearchResult{result("g", 0, 0.9)}},
	}
	g := NewSearchGateway(lexical, grounded, SearchConfig{GroundingEnabled: true})

	q := plainQuery("q")
	q.Mode = domain.SearchModeGrounded
	resp, err := g.Search(context.Background(), q)
	require.NoError(t, err)
	assert.True(t, resp.Degraded)

	grounded.set(func(m *mockSearchBackend) { m.healthErr = nil })
	assert.True(t, g.RecheckGrounding(context.Background()))

	resp, err = g.Search(context.Background(), q)
	require.NoError(t, err)
	assert.False(t, resp.Degraded)
	assert.Equal(t, domain.SearchModeGrounded, resp.Mode)
	assert.Equal(t, "g", resp.Results[0].DocumentID)
}

func TestSearchGateway_NoBackend(t *testing.T) {
	g := NewSearchGateway(nil, nil, SearchConfig{})
	_, err := g.Search(context.Background(), plainQuery("q"))
	assert.Error(t, err)
}
