package services

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/custodia-labs/attest/internal/core/domain"
	"github.com/custodia-labs/attest/internal/core/ports/driven"
	"github.com/custodia-labs/attest/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	KeyAPIBaseURL       = "api.base_url"
	KeyAPIToken         = "api.token"
	KeyAPIRateLimit     = "api.rate_limit"
	KeyEngagementID     = "engagement.id"
	KeyUserID           = "user.id"
	KeySearchTopK       = "search.top_k"
	KeySearchThreshold  = "search.score_threshold"
	KeySearchCacheTTL   = "search.cache_ttl_seconds"
	KeySearchTimeout    = "search.timeout_seconds"
	KeyUploadTimeout    = "upload.timeout_seconds"
	KeyUploadMaxSize    = "upload.max_size_bytes"
	KeyPollInterval     = "ingestion.poll_interval_ms"
	KeyPollMaxAttempts  = "ingestion.max_attempts"
	KeyGroundingEnabled = "grounding.enabled"
	KeyCitationsMax     = "citations.max"
)

// Environment overrides. These win over stored values.
//
//nolint:gosec // G101: These are variable names, not actual credentials.
const (
	EnvAPIURL     = "ATTEST_API_URL"
	EnvAPIToken   = "ATTEST_API_TOKEN"
	EnvEngagement = "ATTEST_ENGAGEMENT"
	EnvUser       = "ATTEST_USER"
)

// intLimits are the hard ceilings a stored value cannot raise.
var intLimits = map[string]int64{
	KeyUploadMaxSize: domain.MaxUploadBytes,
	KeyCitationsMax:  domain.MaxSavedCitations,
	KeySearchTimeout: int64(domain.DefaultSearchTimeout / time.Second),
}

type settingKind int

const (
	kindString settingKind = iota
	kindInt
	kindFloat
	kindBool
)

var settingKinds = map[string]settingKind{
	KeyAPIBaseURL:       kindString,
	KeyAPIToken:         kindString,
	KeyAPIRateLimit:     kindFloat,
	KeyEngagementID:     kindString,
	KeyUserID:           kindString,
	KeySearchTopK:       kindInt,
	KeySearchThreshold:  kindFloat,
	KeySearchCacheTTL:   kindInt,
	KeySearchTimeout:    kindInt,
	KeyUploadTimeout:    kindInt,
	KeyUploadMaxSize:    kindInt,
	KeyPollInterval:     kindInt,
	KeyPollMaxAttempts:  kindInt,
	KeyGroundingEnabled: kindBool,
	KeyCitationsMax:     kindInt,
}

var envOverrides = map[string]string{
	KeyAPIBaseURL:   EnvAPIURL,
	KeyAPIToken:     EnvAPIToken,
	KeyEngagementID: EnvEngagement,
	KeyUserID:       EnvUser,
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		getenv:      os.Getenv,
	}
}

// SetEnv overrides the environment lookup. Useful for testing.
func (s *SettingsService) SetEnv(getenv func(string) string) {
	s.getenv = getenv
}

// Get retrieves the effective settings: environment over stored values over defaults.
func (s *SettingsService) Get() (domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	settings := domain.AppSettings{
		API: domain.APISettings{
			BaseURL:   s.getString(KeyAPIBaseURL, d.API.BaseURL),
			Token:     s.getString(KeyAPIToken, d.API.Token),
			RateLimit: s.getFloat(KeyAPIRateLimit, d.API.RateLimit),
		},
		Scope: domain.Scope{
			EngagementID: s.getString(KeyEngagementID, d.Scope.EngagementID),
			UserID:       s.getString(KeyUserID, d.Scope.UserID),
		},
		Search: domain.SearchSettings{
			TopK:             s.getInt(KeySearchTopK, d.Search.TopK),
			ScoreThreshold:   s.getFloat(KeySearchThreshold, d.Search.ScoreThreshold),
			CacheTTL:         s.getDuration(KeySearchCacheTTL, time.Second, d.Search.CacheTTL),
			Timeout:          s.getDuration(KeySearchTimeout, time.Second, d.Search.Timeout),
			GroundingEnabled: s.getBool(KeyGroundingEnabled, d.Search.GroundingEnabled),
		},
		Upload: domain.UploadSettings{
			MaxSizeBytes: int64(s.getInt(KeyUploadMaxSize, int(d.Upload.MaxSizeBytes))),
			Timeout:      s.getDuration(KeyUploadTimeout, time.Second, d.Upload.Timeout),
		},
		Ingestion: domain.IngestionSettings{
			PollInterval: s.getDuration(KeyPollInterval, time.Millisecond, d.Ingestion.PollInterval),
			MaxAttempts:  s.getInt(KeyPollMaxAttempts, d.Ingestion.MaxAttempts),
		},
		Citations: domain.CitationSettings{
			Max: s.getInt(KeyCitationsMax, d.Citations.Max),
		},
	}

	return settings, nil
}

// Set parses value according to key's type and persists it.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := settingKinds[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	var typed any
	switch kind {
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: %s expects an integer, got %q", domain.ErrInvalidInput, key, value)
		}
		if n < 0 {
			return fmt.Errorf("%w: %s must not be negative", domain.ErrInvalidInput, key)
		}
		if limit, ok := intLimits[key]; ok && int64(n) > limit {
			return fmt.Errorf("%w: %s must not exceed %d", domain.ErrInvalidInput, key, limit)
		}
		typed = n
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%w: %s expects a number, got %q", domain.ErrInvalidInput, key, value)
		}
		if key == KeySearchThreshold && (f < 0 || f > 1) {
			return fmt.Errorf("%w: %s must be within [0,1]", domain.ErrInvalidInput, key)
		}
		typed = f
	case kindBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: %s expects true or false, got %q", domain.ErrInvalidInput, key, value)
		}
		typed = b
	default:
		typed = value
	}

	if err := s.configStore.Set(key, typed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Keys lists the recognised setting keys in sorted order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(settingKinds))
	for k := range settingKinds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	if env, ok := envOverrides[key]; ok {
		if v := s.getenv(env); v != "" {
			return v
		}
	}
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val <= 0 {
		return defaultVal
	}
	if limit, ok := intLimits[key]; ok && int64(val) > limit {
		return int(limit)
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getDuration(key string, unit, defaultVal time.Duration) time.Duration {
	n := s.configStore.GetInt(key)
	if n <= 0 {
		return defaultVal
	}
	if limit, ok := intLimits[key]; ok && int64(n) > limit {
		n = int(limit)
	}
	return time.Duration(n) * unit
}
