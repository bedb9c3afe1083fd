package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	evidencePage     int
	evidencePageSize int
)

var evidenceCmd = &cobra.Command{
	Use:   "evidence",
	Short: "Browse registered evidence",
}

var evidenceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List evidence in the engagement",
	RunE:  runEvidenceList,
}

func init() {
	evidenceListCmd.Flags().IntVarP(&evidencePage, "page", "p", 1, "page number")
	evidenceListCmd.Flags().IntVar(&evidencePageSize, "page-size", 20, "items per page (max 100)")
	evidenceCmd.AddCommand(evidenceListCmd)
	rootCmd.AddCommand(evidenceCmd)
}

func runEvidenceList(cmd *cobra.Command, _ []string) error {
	if services.Evidence == nil {
		return notConfigured("evidence")
	}
	engagementID, err := requireEngagement()
	if err != nil {
		return err
	}

	page, err := services.Evidence.List(cmd.Context(), engagementID, evidencePage, evidencePageSize)
	if err != nil {
		return fmt.Errorf("failed to list evidence: %w", err)
	}

	if len(page.Items) == 0 {
		cmd.Println("No evidence found.")
		return nil
	}

	cmd.Println(titleStyle.Render(fmt.Sprintf("Evidence (page %d of %d, %d total)", page.Page, page.TotalPages, page.Total)))
	cmd.Println()
	for i := range page.Items {
		ev := &page.Items[i]
		cmd.Printf("  %s  %s\n", ev.ID, ev.Filename)
		details := fmt.Sprintf("%s, %d bytes, sha256 %s", ev.MimeType, ev.SizeBytes, truncate(ev.ChecksumSHA256, 12))
		cmd.Printf("      %s\n", mutedStyle.Render(details))
		if ev.PIIFlag {
			cmd.Printf("      %s\n", warningStyle.Render("contains personal data"))
		}
	}

	if page.HasNext {
		cmd.Println()
		cmd.Println(mutedStyle.Render(fmt.Sprintf("More: attest evidence list --page %d", page.Page+1)))
	}
	return nil
}

// truncate truncates a string to the specified length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
