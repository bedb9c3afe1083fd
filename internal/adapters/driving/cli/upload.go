package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/attest/internal/core/domain"
	"github.com/custodia-labs/attest/internal/localfile"
)

var uploadWait bool

var uploadCmd = &cobra.Command{
	Use:   "upload [file]",
	Short: "Upload an evidence file",
	Long: `Uploads a file directly to evidence storage and registers it with the
engagement. The SHA-256 checksum is computed while the file streams and must
match the checksum recorded by the server.

Accepted types: PDF, Word, Excel, PowerPoint, text, CSV, Markdown, JSON,
PNG and JPEG, up to 25 MiB.`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().BoolVarP(&uploadWait, "wait", "w", false, "wait until the document is searchable")
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	if services.NewUpload == nil {
		return notConfigured("upload")
	}
	engagementID, err := requireEngagement()
	if err != nil {
		return err
	}

	file, err := localfile.Open(args[0])
	if err != nil {
		return err
	}

	session := services.NewUpload(func(s domain.UploadSession) {
		printUploadProgress(cmd, s)
	})
	if err := session.SelectFile(file); err != nil {
		return fmt.Errorf("cannot upload %s: %w", file.Name, err)
	}

	ctx := cmd.Context()
	ev, err := session.StartUpload(ctx)
	if err != nil {
		var ierr *domain.IntegrityError
		if errors.As(err, &ierr) {
			cmd.Println(errorStyle.Render("Checksum mismatch: the stored file does not match the local file."))
		}
		return fmt.Errorf("upload failed: %w", err)
	}

	cmd.Println()
	cmd.Println(successStyle.Render("Uploaded " + ev.Filename))
	cmd.Printf("  Evidence ID: %s\n", ev.ID)
	cmd.Printf("  SHA-256:     %s\n", ev.ChecksumSHA256)
	cmd.Printf("  Size:        %d bytes\n", ev.SizeBytes)
	if ev.PIIFlag {
		cmd.Println(warningStyle.Render("  Flagged as containing personal data"))
	}

	if !uploadWait {
		cmd.Println(mutedStyle.Render(fmt.Sprintf("Run 'attest status %s' to check indexing.", ev.ID)))
		return nil
	}
	if services.Ingestion == nil {
		return notConfigured("ingestion")
	}

	cmd.Println()
	cmd.Println(mutedStyle.Render("Waiting for indexing..."))
	status, err := services.Ingestion.WaitUntilIndexed(ctx, engagementID, ev.ID)
	if err != nil && !errors.Is(err, domain.ErrStatusUnconfirmed) {
		return fmt.Errorf("checking ingestion: %w", err)
	}
	printStatusLine(cmd, status)
	if errors.Is(err, domain.ErrStatusUnconfirmed) {
		cmd.Println(warningStyle.Render("Indexing not confirmed yet; the document may still become searchable."))
	}
	return nil
}

func printUploadProgress(cmd *cobra.Command, s domain.UploadSession) {
	line := fmt.Sprintf("  [%3d%%] %s", s.Progress, s.State.Description())
	switch s.State {
	case domain.UploadError:
		cmd.Println(errorStyle.Render(line))
	case domain.UploadCompleted:
		cmd.Println(successStyle.Render(line))
	default:
		cmd.Println(line)
	}
}
