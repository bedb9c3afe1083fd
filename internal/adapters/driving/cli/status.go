package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/attest/internal/core/domain"
)

var statusWait bool

var statusCmd = &cobra.Command{
	Use:   "status [evidence-id]",
	Short: "Show indexing status",
	Long: `Shows whether uploaded evidence has been indexed and is searchable.

Without an id, lists the status of every evidence document in the engagement.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVarP(&statusWait, "wait", "w", false, "poll until indexing finishes")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	if services.Ingestion == nil {
		return notConfigured("ingestion")
	}
	engagementID, err := requireEngagement()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if len(args) == 0 {
		statuses, err := services.Ingestion.GetStatuses(ctx, engagementID)
		if err != nil {
			return fmt.Errorf("failed to get statuses: %w", err)
		}
		if len(statuses) == 0 {
			cmd.Println("No evidence found.")
			return nil
		}
		cmd.Println(titleStyle.Render("Ingestion status"))
		for _, s := range statuses {
			printStatusLine(cmd, s)
		}
		return nil
	}

	var status domain.IngestionStatus
	if statusWait {
		status, err = services.Ingestion.WaitUntilIndexed(ctx, engagementID, args[0])
		if errors.Is(err, domain.ErrStatusUnconfirmed) {
			printStatusLine(cmd, status)
			cmd.Println(warningStyle.Render("Indexing not confirmed within the polling budget."))
			return nil
		}
	} else {
		status, err = services.Ingestion.GetStatus(ctx, engagementID, args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}

	printStatusLine(cmd, status)
	return nil
}

func printStatusLine(cmd *cobra.Command, s domain.IngestionStatus) {
	state := stateStyle(string(s.Status)).Render(fmt.Sprintf("%-17s", s.Status))
	line := fmt.Sprintf("  %s %s", state, s.DocumentID)
	if s.ChunksCreated != nil {
		line += mutedStyle.Render(fmt.Sprintf(" (%d chunks)", *s.ChunksCreated))
	}
	cmd.Println(line)
}
