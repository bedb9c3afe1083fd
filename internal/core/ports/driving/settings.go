package driving

import "github.com/custodia-labs/attest/internal/core/domain"

// SettingsService reads and updates application settings.
type SettingsService interface {
	// Get returns the effective settings (stored values over defaults).
	Get() (domain.AppSettings, error)

	// Set stores a single setting by its dotted key.
	Set(key, value string) error

	// Keys lists the recognised setting keys.
	Keys() []string
}
