package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/custodia-labs/attest/internal/core/domain"
	"github.com/custodia-labs/attest/internal/core/ports/driven"
)

// Ensure Client implements the evidence surface.
var _ driven.EvidenceAPI = (*Client)(nil)

// Pagination headers set by GET /evidence.
const (
	HeaderTotalCount  = "X-Total-Count"
	HeaderPage        = "X-Page"
	HeaderTotalPages  = "X-Total-Pages"
	HeaderHasNext     = "X-Has-Next"
	HeaderHasPrevious = "X-Has-Previous"
)

type credentialRequest struct {
	EngagementID string `json:"engagementId"`
	Filename     string `json:"filename"`
	MimeType     string `json:"mimeType"`
	SizeBytes    int64  `json:"sizeBytes"`
}

type credentialResponse struct {
	UploadURL   string `json:"uploadUrl"`
	StoragePath string `json:"storagePath"`
}

type completeRequest struct {
	EngagementID   string `json:"engagementId"`
	StoragePath    string `json:"storagePath"`
	Filename       string `json:"filename"`
	MimeType       string `json:"mimeType"`
	SizeBytes      int64  `json:"sizeBytes"`
	ClientChecksum string `json:"clientChecksum"`
}

type completeResponse struct {
	EvidenceID string `json:"evidenceId"`
	Checksum   string `json:"checksum"`
	Size       int64  `json:"size"`
	PIIFlag    bool   `json:"piiFlag"`
}

// evidenceEnvelope is the wrapped listing shape, {"data": [...]}.
type evidenceEnvelope struct {
	Data []domain.Evidence `json:"data"`
}

// RequestUploadCredentials calls POST /evidence/sas.
func (c *Client) RequestUploadCredentials(
	ctx context.Context, req domain.CredentialRequest,
) (domain.UploadCredentials, error) {
	var out credentialResponse
	_, err := c.do(ctx, "request upload credentials", http.MethodPost, "/evidence/sas", credentialRequest{
		EngagementID: req.EngagementID,
		Filename:     req.Filename,
		MimeType:     req.MimeType,
		SizeBytes:    req.SizeBytes,
	}, &out)
	if err != nil {
		return domain.UploadCredentials{}, err
	}
	if out.UploadURL == "" {
		return domain.UploadCredentials{}, errors.New("request upload credentials: response has no upload URL")
	}
	return domain.UploadCredentials{UploadURL: out.UploadURL, StoragePath: out.StoragePath}, nil
}

// CompleteUpload calls POST /evidence/complete. A checksum rejection by the
// backend is reported as *domain.IntegrityError.
func (c *Client) CompleteUpload(ctx context.Context, reg domain.Registration) (domain.RegistrationReceipt, error) {
	var out completeResponse
	_, err := c.do(ctx, "complete upload", http.MethodPost, "/evidence/complete", completeRequest{
		EngagementID:   reg.EngagementID,
		StoragePath:    reg.StoragePath,
		Filename:       reg.Filename,
		MimeType:       reg.MimeType,
		SizeBytes:      reg.SizeBytes,
		ClientChecksum: reg.ClientChecksum,
	}, &out)
	if err != nil {
		var aerr *apiError
		if errors.As(err, &aerr) && isChecksumRejection(aerr) {
			return domain.RegistrationReceipt{}, &domain.IntegrityError{
				Expected: reg.ClientChecksum,
				Actual:   aerr.body.Actual,
			}
		}
		return domain.RegistrationReceipt{}, err
	}

	return domain.RegistrationReceipt{
		EvidenceID: out.EvidenceID,
		Checksum:   out.Checksum,
		SizeBytes:  out.Size,
		PIIFlag:    out.PIIFlag,
	}, nil
}

// ListEvidence calls GET /evidence and reads pagination from headers.
// The body may be a bare array or a {"data": [...]} envelope.
func (c *Client) ListEvidence(
	ctx context.Context, engagementID string, page, pageSize int,
) (domain.EvidencePage, error) {
	q := url.Values{}
	q.Set("engagementId", engagementID)
	q.Set("page", strconv.Itoa(page))
	q.Set("pageSize", strconv.Itoa(pageSize))

	var raw json.RawMessage
	resp, err := c.do(ctx, "list evidence", http.MethodGet, "/evidence?"+q.Encode(), nil, &raw)
	if err != nil {
		return domain.EvidencePage{}, err
	}
	items, err := decodeEvidenceList(raw)
	if err != nil {
		return domain.EvidencePage{}, fmt.Errorf("list evidence: decode response: %w", err)
	}
	if items == nil {
		items = []domain.Evidence{}
	}

	result := domain.EvidencePage{
		Items:       items,
		Total:       headerInt(resp.Header, HeaderTotalCount, len(items)),
		Page:        headerInt(resp.Header, HeaderPage, page),
		TotalPages:  headerInt(resp.Header, HeaderTotalPages, 1),
		HasNext:     headerBool(resp.Header, HeaderHasNext),
		HasPrevious: headerBool(resp.Header, HeaderHasPrevious),
	}
	return result, nil
}

func decodeEvidenceList(raw json.RawMessage) ([]domain.Evidence, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var items []domain.Evidence
		err := json.Unmarshal(trimmed, &items)
		return items, err
	}
	var env evidenceEnvelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

func isChecksumRejection(err *apiError) bool {
	if err.StatusCode != http.StatusConflict && err.StatusCode != http.StatusUnprocessableEntity {
		return false
	}
	if err.body.Code == "checksum_mismatch" {
		return true
	}
	return strings.Contains(strings.ToLower(err.Message), "checksum")
}

func headerInt(h http.Header, key string, fallback int) int {
	n, err := strconv.Atoi(h.Get(key))
	if err != nil {
		return fallback
	}
	return n
}

func headerBool(h http.Header, key string) bool {
	b, _ := strconv.ParseBool(h.Get(key))
	return b
}
