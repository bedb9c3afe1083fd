package cli

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/attest/internal/core/domain"
)

func TestCitationsCmd_List(t *testing.T) {
	m, cleanup := setupTestServices()
	defer cleanup()
	page := 2
	m.citations.saved = []domain.Citation{
		{DocumentID: "doc-1", DocumentName: "policy.pdf", Excerpt: "quarterly review", RelevanceScore: 0.9, PageNumber: &page},
		{DocumentID: "doc-2", ChunkIndex: 4, RelevanceScore: 0.5},
	}

	out, err := execute("citations", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Citations (2)")
	assert.Contains(t, out, "[1] policy.pdf (p. 2, chunk 0) 0.90")
	assert.Contains(t, out, "quarterly review")
	assert.Contains(t, out, "[2] doc-2 (chunk 4) 0.50")
}

func TestCitationsCmd_DefaultsToList(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("citations")
	require.NoError(t, err)
	assert.Contains(t, out, "No citations saved.")
}

func TestCitationsCmd_ExportStdout(t *testing.T) {
	m, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("citations", "export", "--format", "csv")
	require.NoError(t, err)
	assert.Equal(t, domain.ExportCSV, m.citations.format)
	assert.Contains(t, out, "exported:csv")
}

func TestCitationsCmd_ExportFile(t *testing.T) {
	m, cleanup := setupTestServices()
	defer cleanup()
	path := filepath.Join(t.TempDir(), "citations.json")

	out, err := execute("citations", "export", "-o", path)
	require.NoError(t, err)
	assert.Equal(t, domain.ExportJSON, m.citations.format)
	assert.Contains(t, out, "Citations written to "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "exported:json\n", string(data))
}

func TestCitationsCmd_ExportInvalidFormat(t *testing.T) {
	m, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute("citations", "export", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
	assert.Empty(t, m.citations.format)
}

func TestCitationsCmd_Clear(t *testing.T) {
	m, cleanup := setupTestServices()
	defer cleanup()
	m.citations.saved = []domain.Citation{{DocumentID: "doc-1"}}

	out, err := execute("citations", "clear")
	require.NoError(t, err)
	assert.True(t, m.citations.cleared)
	assert.Contains(t, out, "Citations cleared.")
}

func TestCitationsCmd_Error(t *testing.T) {
	m, cleanup := setupTestServices()
	defer cleanup()
	m.citations.err = errors.New("store locked")

	_, err := execute("citations", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store locked")
}
