package domain

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Scope is the already-resolved identity and engagement a session acts for.
type Scope struct {
	EngagementID string
	UserID       string
}

// Validate ensures an engagement is selected.
func (s Scope) Validate() error {
	if s.EngagementID == "" {
		return fmt.Errorf("%w: engagement id is required", ErrInvalidInput)
	}
	return nil
}

// APISettings configures access to the application backend.
type APISettings struct {
	BaseURL string
	Token   string

	// RateLimit is the client-side ceiling in requests per second. Zero disables throttling.
	RateLimit float64
}

// SearchSettings configures the search gateway.
type SearchSettings struct {
	TopK           int
	ScoreThreshold float64
	CacheTTL       time.Duration
	Timeout        time.Duration

	// GroundingEnabled allows grounded mode. When false every grounded
	// query degrades to plain.
	GroundingEnabled bool
}

// UploadSettings configures the upload coordinator.
type UploadSettings struct {
	MaxSizeBytes int64
	Timeout      time.Duration
}

// IngestionSettings configures status polling.
type IngestionSettings struct {
	PollInterval time.Duration
	MaxAttempts  int
}

// CitationSettings configures the citation aggregator.
type CitationSettings struct {
	Max int
}

// AppSettings is the effective application configuration.
type AppSettings struct {
	API       APISettings
	Scope     Scope
	Search    SearchSettings
	Upload    UploadSettings
	Ingestion IngestionSettings
	Citations CitationSettings
}

// DefaultAppSettings returns settings with sensible defaults.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Search: SearchSettings{
			TopK:             DefaultTopK,
			ScoreThreshold:   0,
			CacheTTL:         300 * time.Second,
			Timeout:          DefaultSearchTimeout,
			GroundingEnabled: true,
		},
		Upload: UploadSettings{
			MaxSizeBytes: MaxUploadBytes,
			Timeout:      10 * time.Minute,
		},
		Ingestion: IngestionSettings{
			PollInterval: 3 * time.Second,
			MaxAttempts:  20,
		},
		Citations: CitationSettings{
			Max: MaxSavedCitations,
		},
	}
}

// Validate checks the settings are usable for talking to the backend.
func (s AppSettings) Validate() error {
	if s.API.BaseURL == "" {
		return errors.New("api base url is not configured (run 'attest settings set api.base_url <url>')")
	}
	u, err := url.Parse(s.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: api base url %q", ErrInvalidInput, s.API.BaseURL)
	}
	if s.Search.TopK <= 0 {
		return fmt.Errorf("%w: search.top_k must be positive", ErrInvalidInput)
	}
	if s.Search.ScoreThreshold < 0 || s.Search.ScoreThreshold > 1 {
		return fmt.Errorf("%w: search.score_threshold must be within [0,1]", ErrInvalidInput)
	}
	if s.Upload.MaxSizeBytes > MaxUploadBytes {
		return fmt.Errorf("%w: upload.max_size_bytes must not exceed %d", ErrInvalidInput, MaxUploadBytes)
	}
	if s.Citations.Max > MaxSavedCitations {
		return fmt.Errorf("%w: citations.max must not exceed %d", ErrInvalidInput, MaxSavedCitations)
	}
	if s.Search.Timeout > DefaultSearchTimeout {
		return fmt.Errorf("%w: search timeout must not exceed %s", ErrInvalidInput, DefaultSearchTimeout)
	}
	if s.Ingestion.MaxAttempts <= 0 {
		return fmt.Errorf("%w: ingestion.max_attempts must be positive", ErrInvalidInput)
	}
	return nil
}
