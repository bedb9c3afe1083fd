package driving

import (
	"context"

	"github.com/custodia-labs/attest/internal/core/domain"
)

// UploadCoordinator drives one file through the upload state machine.
// A coordinator owns a single session at a time.
type UploadCoordinator interface {
	// SelectFile validates and accepts a file. Validation failures move the
	// session to the error state without any network call.
	SelectFile(file domain.UploadFile) error

	// StartUpload runs credentials, transfer and registration in order and
	// returns the registered evidence.
	StartUpload(ctx context.Context) (*domain.Evidence, error)

	// Reset discards the current session and returns to idle.
	Reset()

	// Session returns a snapshot of the current session.
	Session() domain.UploadSession
}
