// Command attest uploads, tracks and searches compliance evidence.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/attest/internal/adapters/driven/api"
	"github.com/custodia-labs/attest/internal/adapters/driven/blob"
	"github.com/custodia-labs/attest/internal/adapters/driven/config/file"
	"github.com/custodia-labs/attest/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/attest/internal/adapters/driving/cli"
	"github.com/custodia-labs/attest/internal/core/domain"
	"github.com/custodia-labs/attest/internal/core/ports/driving"
	"github.com/custodia-labs/attest/internal/core/services"
	"github.com/custodia-labs/attest/internal/logger"
	"github.com/custodia-labs/attest/internal/poll"
)

var version = "dev"

func main() {
	// A .env in the working directory may carry ATTEST_* overrides.
	_ = godotenv.Load() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.SetVersion(version)
	cli.SetWiring(wire)

	if err := cli.Root().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// wire builds the services from the settings file and environment.
func wire(opts cli.Options) (*cli.Services, error) {
	configStore, err := file.NewConfigStore(opts.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore)

	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	engagementID := settings.Scope.EngagementID
	if opts.EngagementID != "" {
		engagementID = opts.EngagementID
	}

	out := &cli.Services{
		Settings:     settingsService,
		EngagementID: engagementID,
	}

	if err := settings.Validate(); err != nil {
		logger.Debug("Backend services disabled: %v", err)
		out.ConfigErr = err
		return out, nil
	}

	dataDir := ""
	if opts.ConfigDir != "" {
		dataDir = filepath.Join(opts.ConfigDir, "data")
	}
	store, err := sqlite.NewStore(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	out.Close = store.Close

	client, err := api.NewClient(api.Config{
		BaseURL:   settings.API.BaseURL,
		Token:     settings.API.Token,
		RateLimit: settings.API.RateLimit,
	})
	if err != nil {
		_ = store.Close() //nolint:errcheck
		return nil, err
	}
	uploader := blob.NewUploader(nil)

	tracker := services.NewIngestionTracker(client, client, poll.Policy{
		Interval:    settings.Ingestion.PollInterval,
		MaxAttempts: settings.Ingestion.MaxAttempts,
	})

	out.Ingestion = tracker
	out.Search = services.NewSearchGateway(client.Lexical(), client.Grounded(), services.SearchConfig{
		CacheTTL:         settings.Search.CacheTTL,
		Timeout:          settings.Search.Timeout,
		GroundingEnabled: settings.Search.GroundingEnabled,
	})
	out.Citations = services.NewCitationAggregator(store.KeyValueStore(), engagementID, settings.Citations.Max)
	out.Evidence = services.NewEvidenceService(client)

	scope := domain.Scope{EngagementID: engagementID, UserID: settings.Scope.UserID}
	out.NewUpload = func(progress cli.ProgressFunc) driving.UploadCoordinator {
		c := services.NewUploadCoordinator(client, uploader, services.UploadConfig{
			Scope:        scope,
			MaxSizeBytes: settings.Upload.MaxSizeBytes,
			Timeout:      settings.Upload.Timeout,
		})
		if progress != nil {
			c.OnTransition(func(_, _ domain.UploadState, session domain.UploadSession) {
				progress(session)
			})
		}
		c.SetIngestionTracker(tracker, nil)
		return c
	}

	logger.Debug("Services wired for %s (engagement %q)", settings.API.BaseURL, engagementID)
	return out, nil
}
