package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchCmd_UploadsNewFiles(t *testing.T) {
	m, cleanup := setupTestServices()
	defer cleanup()
	dir := t.TempDir()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go func() {
		time.Sleep(100 * time.Millisecond)
		_ = os.WriteFile(filepath.Join(dir, "report.pdf"), []byte("%PDF-1.4"), 0o600) //nolint:errcheck
	}()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"watch", dir, "--settle", "50ms"})
	defer rootCmd.SetArgs(nil)
	defer watchCmd.SetContext(context.Background())

	require.NoError(t, rootCmd.ExecuteContext(ctx))

	out := buf.String()
	assert.Contains(t, out, "Watching "+dir)
	assert.Contains(t, out, "uploaded "+filepath.Join(dir, "report.pdf")+" -> ev-1")
	assert.Contains(t, out, "Uploaded 1, skipped 0, failed 0.")
	assert.Equal(t, "report.pdf", m.upload.selected.Name)
	assert.Equal(t, "application/pdf", m.upload.selected.MimeType)
}

func TestWatchCmd_MissingDirectory(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute("watch", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}
