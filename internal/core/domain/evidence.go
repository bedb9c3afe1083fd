package domain

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// MaxUploadBytes is the hard size ceiling for a single evidence file (25 MiB).
const MaxUploadBytes int64 = 25 * 1024 * 1024

// allowedMimeTypes lists the content types accepted as evidence.
var allowedMimeTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   true,
	"application/vnd.ms-excel":                                                  true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         true,
	"application/vnd.ms-powerpoint":                                             true,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": true,
	"text/plain":       true,
	"text/csv":         true,
	"text/markdown":    true,
	"application/json": true,
	"image/png":        true,
	"image/jpeg":       true,
}

// IsAllowedMimeType returns true if the content type may be uploaded.
// Parameters such as "; charset=utf-8" are ignored.
func IsAllowedMimeType(mimeType string) bool {
	base, _, _ := strings.Cut(mimeType, ";")
	return allowedMimeTypes[strings.ToLower(strings.TrimSpace(base))]
}

// AllowedMimeTypes returns the accepted content types.
func AllowedMimeTypes() []string {
	types := make([]string, 0, len(allowedMimeTypes))
	for t := range allowedMimeTypes {
		types = append(types, t)
	}
	return types
}

// ValidateUpload checks a candidate file against the MIME allow-list and the
// size ceiling. maxBytes outside (0, MaxUploadBytes] uses MaxUploadBytes.
func ValidateUpload(filename, mimeType string, sizeBytes, maxBytes int64) error {
	if maxBytes <= 0 || maxBytes > MaxUploadBytes {
		maxBytes = MaxUploadBytes
	}
	if strings.TrimSpace(filename) == "" {
		return &ValidationError{Field: "filename", Reason: "must not be empty"}
	}
	if !IsAllowedMimeType(mimeType) {
		return &ValidationError{Field: "mimeType", Reason: fmt.Sprintf("%q is not an allowed type", mimeType)}
	}
	if sizeBytes < 0 {
		return &ValidationError{Field: "sizeBytes", Reason: "must not be negative"}
	}
	if sizeBytes > maxBytes {
		return &ValidationError{
			Field:  "sizeBytes",
			Reason: fmt.Sprintf("%d bytes exceeds the %d byte limit", sizeBytes, maxBytes),
		}
	}
	return nil
}

// StoragePath builds the blob path for an upload:
// {engagementId}/evidence/{unixMillis}-{basename}.
func StoragePath(engagementID, filename string, at time.Time) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	return fmt.Sprintf("%s/evidence/%d-%s", engagementID, at.UnixMilli(), base)
}

// LinkedItem references an assessment item the evidence supports.
type LinkedItem struct {
	ItemType string `json:"itemType"`
	ItemID   string `json:"itemId"`
}

// Evidence is a registered file. Immutable after registration except for
// LinkedItems and the server-set PIIFlag.
type Evidence struct {
	// ID is the backend-assigned identifier; it doubles as the ingestion document ID.
	ID string `json:"id"`

	EngagementID string `json:"engagementId"`

	// StoragePath locates the blob in content-addressable storage.
	StoragePath string `json:"storagePath"`

	Filename  string `json:"filename"`
	MimeType  string `json:"mimeType"`
	SizeBytes int64  `json:"sizeBytes"`

	// ChecksumSHA256 is the lowercase hex SHA-256 of the stored bytes.
	ChecksumSHA256 string `json:"checksumSha256"`

	UploadedBy string    `json:"uploadedBy"`
	UploadedAt time.Time `json:"uploadedAt"`

	// PIIFlag is set once by a server-side scan.
	PIIFlag bool `json:"piiFlag"`

	LinkedItems []LinkedItem `json:"linkedItems"`
}

// EvidencePage is one page of an evidence listing.
type EvidencePage struct {
	Items       []Evidence
	Total       int
	Page        int
	TotalPages  int
	HasNext     bool
	HasPrevious bool
}
