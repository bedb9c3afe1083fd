// Package blob transfers evidence bytes straight to object storage using a
// pre-signed (SAS) URL issued by the backend.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/custodia-labs/attest/internal/core/domain"
	"github.com/custodia-labs/attest/internal/core/ports/driven"
	"github.com/custodia-labs/attest/internal/logger"
)

// Ensure Uploader implements the interface.
var _ driven.BlobUploader = (*Uploader)(nil)

// HeaderBlobType marks the PUT as a single block blob.
const HeaderBlobType = "x-ms-blob-type"

// DefaultTimeout bounds a single transfer when the caller's context does not.
const DefaultTimeout = 10 * time.Minute

// Uploader PUTs bytes to the credential's upload URL. The URL carries its own
// signature, so no auth header is sent.
type Uploader struct {
	client *http.Client
}

// NewUploader creates an uploader. client may be nil.
func NewUploader(client *http.Client) *Uploader {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &Uploader{client: client}
}

// Upload streams body to creds.UploadURL.
func (u *Uploader) Upload(
	ctx context.Context, creds domain.UploadCredentials, body io.Reader, size int64, mimeType string,
) error {
	if creds.UploadURL == "" {
		return fmt.Errorf("%w: upload URL is empty", domain.ErrInvalidInput)
	}

	// A zero ContentLength with a non-nil body would be sent chunked.
	if size == 0 {
		body = http.NoBody
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, creds.UploadURL, body)
	if err != nil {
		return fmt.Errorf("create upload request: %w", err)
	}
	req.ContentLength = size
	req.Header.Set(HeaderBlobType, "BlockBlob")
	if mimeType != "" {
		req.Header.Set("Content-Type", mimeType)
	}

	logger.Debug("PUT %d bytes to %s", size, creds.StoragePath)
	start := time.Now()

	resp, err := u.client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return &domain.TimeoutError{Op: "blob upload"}
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return &domain.TimeoutError{Op: "blob upload"}
		}
		return fmt.Errorf("blob upload: %w", redact(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return &domain.APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}

	logger.Debug("Blob stored in %s", time.Since(start).Round(time.Millisecond))
	return nil
}

// redact strips the query string (the SAS signature) from URL errors.
func redact(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if i := strings.IndexByte(urlErr.URL, '?'); i >= 0 {
			urlErr.URL = urlErr.URL[:i]
		}
	}
	return err
}
