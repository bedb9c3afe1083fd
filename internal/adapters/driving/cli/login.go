package cli

import (
	"bufio"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	loginURL        string
	loginEngagement string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store the API token",
	Long: `Prompts for the backend API token and stores it in the settings file.
The token is read without echo when stdin is a terminal, so it can also be
piped in: 'echo $TOKEN | attest login'.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().StringVar(&loginURL, "url", "", "backend base URL to store with the token")
	loginCmd.Flags().StringVar(&loginEngagement, "engagement-id", "", "default engagement to store")
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, _ []string) error {
	if services.Settings == nil {
		return notConfigured("settings")
	}

	in := cmd.InOrStdin()
	reader := bufio.NewReader(in)
	if loginURL == "" {
		settings, err := services.Settings.Get()
		if err != nil {
			return fmt.Errorf("failed to get settings: %w", err)
		}
		if settings.API.BaseURL == "" {
			cmd.Print("API base URL: ")
			loginURL = readLine(reader)
		}
	}
	if loginURL != "" {
		if err := services.Settings.Set("api.base_url", loginURL); err != nil {
			return fmt.Errorf("failed to store base URL: %w", err)
		}
	}

	cmd.Print("API token: ")
	token := readSecret(in, reader)
	cmd.Println()
	if token == "" {
		return errors.New("no token entered")
	}
	if err := services.Settings.Set("api.token", token); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}

	if loginEngagement != "" {
		if err := services.Settings.Set("engagement.id", loginEngagement); err != nil {
			return fmt.Errorf("failed to store engagement: %w", err)
		}
	}

	cmd.Println(successStyle.Render("Token stored (" + maskAPIKey(token) + ")."))
	return nil
}
