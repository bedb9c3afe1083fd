package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/attest/internal/core/domain"
)

var (
	citationsFormat string
	citationsOutput string
)

var citationsCmd = &cobra.Command{
	Use:   "citations",
	Short: "Manage saved citations",
	Long: `Saved citations are search results kept for the engagement's report.
The set holds at most the 50 most recent citations; a result cited again
replaces its earlier entry.`,
	RunE: runCitationsList,
}

var citationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved citations",
	RunE:  runCitationsList,
}

var citationsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export saved citations as JSON or CSV",
	RunE:  runCitationsExport,
}

var citationsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all saved citations",
	RunE:  runCitationsClear,
}

func init() {
	citationsExportCmd.Flags().StringVarP(&citationsFormat, "format", "f", "json", "export format (json, csv)")
	citationsExportCmd.Flags().StringVarP(&citationsOutput, "output", "o", "", "write to file instead of stdout")

	citationsCmd.AddCommand(citationsListCmd)
	citationsCmd.AddCommand(citationsExportCmd)
	citationsCmd.AddCommand(citationsClearCmd)
	rootCmd.AddCommand(citationsCmd)
}

func runCitationsList(cmd *cobra.Command, _ []string) error {
	if services.Citations == nil {
		return notConfigured("citation")
	}

	citations, err := services.Citations.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list citations: %w", err)
	}

	if len(citations) == 0 {
		cmd.Println("No citations saved.")
		return nil
	}

	cmd.Println(titleStyle.Render(fmt.Sprintf("Citations (%d)", len(citations))))
	cmd.Println()
	for i := range citations {
		c := &citations[i]
		name := c.DocumentName
		if name == "" {
			name = c.DocumentID
		}
		loc := fmt.Sprintf("chunk %d", c.ChunkIndex)
		if c.PageNumber != nil {
			loc = fmt.Sprintf("p. %d, %s", *c.PageNumber, loc)
		}
		cmd.Printf("  [%d] %s %s %.2f\n", i+1, name, mutedStyle.Render("("+loc+")"), c.RelevanceScore)
		if s := snippet(c.Excerpt); s != "" {
			cmd.Printf("      %s\n", s)
		}
	}
	return nil
}

func runCitationsExport(cmd *cobra.Command, _ []string) error {
	if services.Citations == nil {
		return notConfigured("citation")
	}

	format := domain.ExportFormat(citationsFormat)
	if !format.IsValid() {
		return fmt.Errorf("unsupported format %q (use json or csv)", citationsFormat)
	}

	var w io.Writer = cmd.OutOrStdout()
	if citationsOutput != "" {
		f, err := os.OpenFile(citationsOutput, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", citationsOutput, err)
		}
		defer f.Close()
		w = f
	}

	if err := services.Citations.Export(cmd.Context(), format, w); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	if citationsOutput != "" {
		cmd.Println(successStyle.Render("Citations written to " + citationsOutput))
	}
	return nil
}

func runCitationsClear(cmd *cobra.Command, _ []string) error {
	if services.Citations == nil {
		return notConfigured("citation")
	}
	if err := services.Citations.Clear(cmd.Context()); err != nil {
		return fmt.Errorf("failed to clear citations: %w", err)
	}
	cmd.Println("Citations cleared.")
	return nil
}
