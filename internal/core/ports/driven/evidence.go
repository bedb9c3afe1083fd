package driven

import (
	"context"
	"io"

	"github.com/custodia-labs/attest/internal/core/domain"
)

// EvidenceAPI is the application backend's evidence surface.
type EvidenceAPI interface {
	// RequestUploadCredentials issues a short-lived write credential
	// scoped to a storage path.
	RequestUploadCredentials(ctx context.Context, req domain.CredentialRequest) (domain.UploadCredentials, error)

	// CompleteUpload registers a transferred blob. The backend verifies the
	// digest independently and reports its own checksum.
	CompleteUpload(ctx context.Context, reg domain.Registration) (domain.RegistrationReceipt, error)

	// ListEvidence returns one page of an engagement's evidence. Pages are 1-based.
	ListEvidence(ctx context.Context, engagementID string, page, pageSize int) (domain.EvidencePage, error)
}

// BlobUploader transfers raw bytes straight to the storage backend using
// credentials from EvidenceAPI. Bytes are never proxied through the
// application server.
type BlobUploader interface {
	Upload(ctx context.Context, creds domain.UploadCredentials, body io.Reader, size int64, mimeType string) error
}
