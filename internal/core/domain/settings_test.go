package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultAppSettings(t *testing.T) {
	s := DefaultAppSettings()

	assert.Equal(t, 10, s.Search.TopK)
	assert.Equal(t, 300*time.Second, s.Search.CacheTTL)
	assert.Equal(t, 10*time.Second, s.Search.Timeout)
	assert.True(t, s.Search.GroundingEnabled)
	assert.Equal(t, MaxUploadBytes, s.Upload.MaxSizeBytes)
	assert.Equal(t, 50, s.Citations.Max)
}

func TestAppSettings_Validate(t *testing.T) {
	s := DefaultAppSettings()
	assert.Error(t, s.Validate(), "missing base url")

	s.API.BaseURL = "not a url"
	assert.ErrorIs(t, s.Validate(), ErrInvalidInput)

	s.API.BaseURL = "https://api.example.test"
	assert.NoError(t, s.Validate())

	s.Search.ScoreThreshold = 2
	assert.ErrorIs(t, s.Validate(), ErrInvalidInput)
}

func TestAppSettings_Validate_HardLimits(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppSettings)
	}{
		{"upload ceiling", func(s *AppSettings) { s.Upload.MaxSizeBytes = MaxUploadBytes + 1 }},
		{"citation cap", func(s *AppSettings) { s.Citations.Max = MaxSavedCitations + 1 }},
		{"search budget", func(s *AppSettings) { s.Search.Timeout = DefaultSearchTimeout + time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultAppSettings()
			s.API.BaseURL = "https://api.example.test"
			tt.mutate(&s)
			assert.ErrorIs(t, s.Validate(), ErrInvalidInput)
		})
	}
}

func TestScope_Validate(t *testing.T) {
	assert.ErrorIs(t, Scope{}.Validate(), ErrInvalidInput)
	assert.NoError(t, Scope{EngagementID: "eng-1"}.Validate())
}
