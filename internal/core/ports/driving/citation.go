package driving

import (
	"context"
	"io"

	"github.com/custodia-labs/attest/internal/core/domain"
)

// CitationService manages the saved citation set of an engagement.
type CitationService interface {
	// AddFromResults converts results into citations, replacing entries with
	// the same (documentId, chunkIndex), and returns the saved set.
	AddFromResults(ctx context.Context, results []domain.SearchResult) ([]domain.Citation, error)

	// List returns the saved set, oldest first.
	List(ctx context.Context) ([]domain.Citation, error)

	// Clear removes every saved citation.
	Clear(ctx context.Context) error

	// Export writes a numbered snapshot in the given format.
	Export(ctx context.Context, format domain.ExportFormat, w io.Writer) error
}
