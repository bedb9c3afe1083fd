package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/attest/internal/core/domain"
	"github.com/custodia-labs/attest/internal/core/ports/driven"
)

var testSearch = driven.SearchRequest{Query: "access review", EngagementID: "eng-1", TopK: 5, ScoreThreshold: 0.2}

func TestLexicalSearch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/evidence/search", r.URL.Path)

		var body searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "access review", body.Query)
		assert.Equal(t, 5, body.TopK)
		assert.False(t, body.UseGrounding)

		writeJSON(w, http.StatusOK, map[string]any{
			"results": []map[string]any{
				{
					"documentId": "d1", "documentName": "policy.pdf", "content": "quarterly",
					"score": 0.7, "pageNumber": 3, "chunkIndex": 2,
					"metadata": map[string]any{"section": "A.9", "version": 2, "draft": nil},
				},
			},
			"totalResults":     1,
			"processingTimeMs": 12,
		})
	})

	resp, err := c.Lexical().Search(context.Background(), testSearch)
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)

	r := resp.Results[0]
	assert.Equal(t, "d1", r.DocumentID)
	assert.Equal(t, 3, *r.PageNumber)
	assert.Equal(t, 2, r.ChunkIndex)
	assert.Equal(t, map[string]string{"section": "A.9", "version": "2"}, r.Metadata)
	assert.Equal(t, domain.SearchModePlain, resp.Mode)
	assert.Equal(t, int64(12), resp.ProcessingTimeMs)
}

func TestGroundedSearch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/orchestrations/rag-search", r.URL.Path)

		var body searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.True(t, body.UseGrounding)

		writeJSON(w, http.StatusOK, map[string]any{
			"results":        []map[string]any{{"documentId": "d1", "score": 0.9}},
			"groundedAnswer": "Quarterly.",
			"sourcesUsed":    []string{"d1"},
		})
	})

	resp, err := c.Grounded().Search(context.Background(), testSearch)
	require.NoError(t, err)
	assert.Equal(t, domain.SearchModeGrounded, resp.Mode)
	assert.Equal(t, "Quarterly.", resp.GroundedAnswer)
	assert.Equal(t, []string{"d1"}, resp.SourcesUsed)
	assert.Nil(t, resp.Results[0].PageNumber)
}

func TestGroundedSearch_Unavailable(t *testing.T) {
	for _, status := range []int{http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout} {
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, status, map[string]string{"error": "rag offline"})
		})

		_, err := c.Grounded().Search(context.Background(), testSearch)
		assert.ErrorIs(t, err, domain.ErrBackendUnavailable, "status %d", status)
	}
}

func TestGroundedSearch_ClientErrorPropagates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query too long"})
	})

	_, err := c.Grounded().Search(context.Background(), testSearch)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrBackendUnavailable)

	var apiErr *domain.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}

func TestGroundedSearch_ConnectionRefused(t *testing.T) {
	c, err := NewClient(Config{BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)

	_, err = c.Grounded().Search(context.Background(), testSearch)
	assert.ErrorIs(t, err, domain.ErrBackendUnavailable)
}

func TestGroundedHealth(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      map[string]any
		available bool
	}{
		{"ok", http.StatusOK, map[string]any{"status": "ok", "groundingAvailable": true}, true},
		{"no flag", http.StatusOK, map[string]any{"status": "healthy"}, true},
		{"flag false", http.StatusOK, map[string]any{"status": "ok", "groundingAvailable": false}, false},
		{"degraded", http.StatusOK, map[string]any{"status": "degraded"}, false},
		{"unavailable", http.StatusServiceUnavailable, map[string]any{"error": "down"}, false},
		{"unauthorised", http.StatusUnauthorized, map[string]any{"error": "token"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/orchestrations/health", r.URL.Path)
				writeJSON(w, tt.status, tt.body)
			})

			err := c.Grounded().Health(context.Background())
			if tt.available {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, domain.ErrBackendUnavailable)
			}
		})
	}
}
