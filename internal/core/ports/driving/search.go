package driving

import (
	"context"

	"github.com/custodia-labs/attest/internal/core/domain"
)

// SearchService provides search capabilities to external actors.
type SearchService interface {
	// Search runs a plain or grounded query. Grounded queries never fail
	// solely because grounding is down; they degrade to plain.
	Search(ctx context.Context, query domain.SearchQuery) (domain.SearchResponse, error)
}
