package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure the backend connection, engagement, search and upload options.

Settings live in ~/.attest/config.toml. ATTEST_API_URL, ATTEST_API_TOKEN,
ATTEST_ENGAGEMENT and ATTEST_USER override the file.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a setting",
	Long:  `Set a single setting by its dotted key, e.g. 'attest settings set search.top_k 20'.`,
	Args:  cobra.ExactArgs(2),
	RunE:  runSettingsSet,
}

var settingsKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List setting keys",
	RunE:  runSettingsKeys,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsKeysCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if services.Settings == nil {
		return notConfigured("settings")
	}

	settings, err := services.Settings.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println(titleStyle.Render("Current Settings"))
	cmd.Println()

	cmd.Println(headingStyle.Render("[API]"))
	cmd.Printf("  Base URL: %s\n", orUnset(settings.API.BaseURL))
	if settings.API.Token != "" {
		cmd.Printf("  Token: %s\n", maskAPIKey(settings.API.Token))
	} else {
		cmd.Printf("  Token: (not set)\n")
	}
	if settings.API.RateLimit > 0 {
		cmd.Printf("  Rate limit: %.1f req/s\n", settings.API.RateLimit)
	}
	cmd.Println()

	cmd.Println(headingStyle.Render("[Scope]"))
	cmd.Printf("  Engagement: %s\n", orUnset(settings.Scope.EngagementID))
	cmd.Printf("  User: %s\n", orUnset(settings.Scope.UserID))
	cmd.Println()

	cmd.Println(headingStyle.Render("[Search]"))
	cmd.Printf("  Top K: %d\n", settings.Search.TopK)
	cmd.Printf("  Score threshold: %.2f\n", settings.Search.ScoreThreshold)
	cmd.Printf("  Cache TTL: %s\n", settings.Search.CacheTTL)
	cmd.Printf("  Timeout: %s\n", settings.Search.Timeout)
	cmd.Printf("  Grounding: %s\n", enabled(settings.Search.GroundingEnabled))
	cmd.Println()

	cmd.Println(headingStyle.Render("[Upload]"))
	cmd.Printf("  Max size: %d bytes\n", settings.Upload.MaxSizeBytes)
	cmd.Printf("  Timeout: %s\n", settings.Upload.Timeout)
	cmd.Println()

	cmd.Println(headingStyle.Render("[Ingestion]"))
	cmd.Printf("  Poll interval: %s\n", settings.Ingestion.PollInterval)
	cmd.Printf("  Max attempts: %d\n", settings.Ingestion.MaxAttempts)
	cmd.Println()

	cmd.Println(headingStyle.Render("[Citations]"))
	cmd.Printf("  Max saved: %d\n", settings.Citations.Max)
	cmd.Println()

	if err := settings.Validate(); err != nil {
		cmd.Println(warningStyle.Render(fmt.Sprintf("Warning: %v", err)))
	} else {
		cmd.Println(successStyle.Render("Configuration is valid."))
	}

	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if services.Settings == nil {
		return notConfigured("settings")
	}

	if err := services.Settings.Set(args[0], args[1]); err != nil {
		return fmt.Errorf("failed to set %s: %w", args[0], err)
	}

	value := args[1]
	if strings.HasSuffix(args[0], ".token") {
		value = maskAPIKey(value)
	}
	cmd.Printf("%s = %s\n", args[0], value)
	return nil
}

func runSettingsKeys(cmd *cobra.Command, _ []string) error {
	if services.Settings == nil {
		return notConfigured("settings")
	}
	for _, k := range services.Settings.Keys() {
		cmd.Println(k)
	}
	return nil
}

func orUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

func enabled(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}

func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

// readSecret reads a line without echo when in is a terminal. Otherwise it
// reads from buffered, which must wrap in.
//
//nolint:errcheck // CLI helper, error ignored for UX
func readSecret(in io.Reader, buffered *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(secret))
		}
	}
	// Fallback to regular input
	return readLine(buffered)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
