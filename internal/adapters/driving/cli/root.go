// Package cli provides the cobra command tree for attest.
package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/attest/internal/core/domain"
	"github.com/custodia-labs/attest/internal/core/ports/driving"
	"github.com/custodia-labs/attest/internal/logger"
)

// version is set at build time with -ldflags "-X .../cli.version=...".
var version = "dev"

// Root flags.
var (
	verbose        bool
	configDir      string
	engagementFlag string
)

// ProgressFunc receives a snapshot of an upload session on every transition.
type ProgressFunc func(session domain.UploadSession)

// Services holds the driving ports the commands call. Ports that need the
// backend are nil when the backend is not configured; ConfigErr says why.
type Services struct {
	// NewUpload returns a coordinator with a fresh session. progress may be nil.
	NewUpload func(progress ProgressFunc) driving.UploadCoordinator

	Ingestion driving.IngestionTracker
	Search    driving.SearchService
	Citations driving.CitationService
	Evidence  driving.EvidenceService
	Settings  driving.SettingsService

	// EngagementID is the resolved engagement every command acts on.
	EngagementID string

	// ConfigErr explains why backend-bound services are missing.
	ConfigErr error

	// Close releases stores opened by the wiring. Optional.
	Close func() error
}

// Options are the parsed root flags handed to the wiring.
type Options struct {
	ConfigDir    string
	EngagementID string
	Verbose      bool
}

// Wiring builds the services once flags are parsed.
type Wiring func(opts Options) (*Services, error)

var (
	wiring   Wiring
	services = &Services{}
)

// SetWiring registers the function that builds the services.
func SetWiring(w Wiring) {
	wiring = w
}

// SetVersion sets the reported version.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

var rootCmd = &cobra.Command{
	Use:   "attest",
	Short: "Upload, track and search compliance evidence",
	Long: `attest drives the evidence lifecycle of an assessment engagement.

It uploads files straight to storage with integrity verification, tracks
their indexing, searches them (optionally with grounded answers), and keeps
an exportable set of citations.`,
	SilenceUsage:      true,
	PersistentPreRunE: setupServices,
	PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
		if services.Close != nil {
			return services.Close()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug logs to stderr")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.attest)")
	rootCmd.PersistentFlags().StringVarP(&engagementFlag, "engagement", "e", "", "engagement id (overrides settings)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// Root returns the root command, for ExecuteContext and docs generation.
func Root() *cobra.Command {
	return rootCmd
}

func setupServices(_ *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	if wiring == nil {
		return nil
	}

	s, err := wiring(Options{
		ConfigDir:    configDir,
		EngagementID: engagementFlag,
		Verbose:      verbose,
	})
	if err != nil {
		return err
	}
	services = s
	return nil
}

// notConfigured reports a missing service, with the configuration problem if known.
func notConfigured(name string) error {
	if services.ConfigErr != nil {
		return errors.New(name + " service not configured: " + services.ConfigErr.Error())
	}
	return errors.New(name + " service not configured")
}

// requireEngagement returns the resolved engagement id.
func requireEngagement() (string, error) {
	if services.EngagementID == "" {
		return "", errors.New("no engagement selected (use --engagement or 'attest settings set engagement.id <id>')")
	}
	return services.EngagementID, nil
}
