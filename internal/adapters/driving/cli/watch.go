package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/attest/internal/adapters/driving/watch"
	"github.com/custodia-labs/attest/internal/core/ports/driving"
)

var watchSettle time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch [directory]",
	Short: "Upload files dropped into a directory",
	Long: `Watches a directory and uploads every new file as evidence once it has
stopped changing. Files that fail validation are skipped with a warning.
Subdirectories and hidden or partial files are ignored. Stop with Ctrl-C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchSettle, "settle", watch.DefaultSettle, "quiet period before a new file is uploaded")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if services.NewUpload == nil {
		return notConfigured("upload")
	}
	if _, err := requireEngagement(); err != nil {
		return err
	}

	uploader := watch.SessionUploader(func() driving.UploadCoordinator {
		return services.NewUpload(nil)
	})
	w := watch.New(args[0], uploader, watchSettle)

	ctx := cmd.Context()
	results, err := w.Watch(ctx)
	if err != nil {
		return err
	}
	defer w.Close()

	cmd.Println(titleStyle.Render("Watching " + args[0]))
	cmd.Println(mutedStyle.Render("Press Ctrl-C to stop."))

	uploaded, skipped, failed := 0, 0, 0
	for res := range results {
		switch {
		case res.Err == nil:
			uploaded++
			cmd.Println(successStyle.Render(fmt.Sprintf("  uploaded %s -> %s", res.Path, res.Evidence.ID)))
		case res.Skipped():
			skipped++
			cmd.Println(warningStyle.Render(fmt.Sprintf("  skipped  %s: %v", res.Path, res.Err)))
		default:
			failed++
			cmd.Println(errorStyle.Render(fmt.Sprintf("  failed   %s: %v", res.Path, res.Err)))
		}
	}

	cmd.Printf("Uploaded %d, skipped %d, failed %d.\n", uploaded, skipped, failed)
	return nil
}
