package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/attest/internal/core/domain"
)

// snippetLen bounds the excerpt printed per result.
const snippetLen = 200

var (
	searchTopK      int
	searchThreshold float64
	searchGrounded  bool
	searchJSON      bool
	searchCite      bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the engagement's evidence",
	Long: `Searches indexed evidence in the current engagement.

With --grounded, the backend also composes an answer grounded in the matching
passages. When grounding is unavailable the search falls back to plain
results and says so.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "n", 0, "maximum number of results (default from settings)")
	searchCmd.Flags().Float64Var(&searchThreshold, "threshold", 0, "minimum relevance score in [0,1] (default from settings)")
	searchCmd.Flags().BoolVarP(&searchGrounded, "grounded", "g", false, "request a grounded answer")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().BoolVar(&searchCite, "cite", false, "save the results as citations")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if services.Search == nil {
		return notConfigured("search")
	}
	engagementID, err := requireEngagement()
	if err != nil {
		return err
	}

	query := domain.SearchQuery{
		Text:           args[0],
		EngagementID:   engagementID,
		TopK:           searchTopK,
		ScoreThreshold: searchThreshold,
		Mode:           domain.SearchModePlain,
	}
	if searchGrounded {
		query.Mode = domain.SearchModeGrounded
	}
	if services.Settings != nil {
		if settings, err := services.Settings.Get(); err == nil {
			if query.TopK <= 0 {
				query.TopK = settings.Search.TopK
			}
			if !cmd.Flags().Changed("threshold") {
				query.ScoreThreshold = settings.Search.ScoreThreshold
			}
		}
	}

	ctx := cmd.Context()
	resp, err := services.Search.Search(ctx, query)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		if err := outputSearchJSON(cmd, resp); err != nil {
			return err
		}
	} else {
		outputSearchTable(cmd, resp)
	}

	if searchCite && len(resp.Results) > 0 {
		if services.Citations == nil {
			return notConfigured("citation")
		}
		saved, err := services.Citations.AddFromResults(ctx, resp.Results)
		if err != nil {
			return fmt.Errorf("failed to save citations: %w", err)
		}
		if !searchJSON {
			cmd.Println(successStyle.Render(fmt.Sprintf("Saved %d citations (%d in set).", len(resp.Results), len(saved))))
		}
	}

	return nil
}

func outputSearchJSON(cmd *cobra.Command, resp domain.SearchResponse) error {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, resp domain.SearchResponse) {
	if resp.Degraded {
		cmd.Println(warningStyle.Render("Grounding unavailable; showing plain results."))
		cmd.Println()
	}

	if resp.GroundedAnswer != "" {
		cmd.Println(headingStyle.Render("Answer:"))
		cmd.Println(answerStyle.Render(resp.GroundedAnswer))
		cmd.Println()
	}

	if len(resp.Results) == 0 {
		cmd.Println("No results found.")
		return
	}

	cmd.Println(titleStyle.Render("Results:"))
	cmd.Println()
	for i := range resp.Results {
		r := &resp.Results[i]

		// Format: [N] Name (p. X, chunk Y) Score
		name := r.DocumentName
		if name == "" {
			name = r.DocumentID
		}
		loc := fmt.Sprintf("chunk %d", r.ChunkIndex)
		if r.PageNumber != nil {
			loc = fmt.Sprintf("p. %d, %s", *r.PageNumber, loc)
		}

		cmd.Printf("  [%d] %s %s %s\n", i+1, name, mutedStyle.Render("("+loc+")"), headingStyle.Render(fmt.Sprintf("%.2f", r.Score)))
		if snippet := snippet(r.Content); snippet != "" {
			cmd.Printf("      %s\n", snippet)
		}
		if r.SourceURL != "" {
			cmd.Printf("      %s\n", mutedStyle.Render(r.SourceURL))
		}
		cmd.Println()
	}
}

// snippet collapses whitespace and cuts content to snippetLen runes.
func snippet(content string) string {
	s := strings.Join(strings.Fields(content), " ")
	runes := []rune(s)
	if len(runes) <= snippetLen {
		return s
	}
	return string(runes[:snippetLen]) + "..."
}
