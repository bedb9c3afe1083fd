// Package localfile turns paths on disk into upload file handles.
package localfile

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/attest/internal/core/domain"
)

// extMIMETypes covers extensions the mime package maps poorly or not at all.
var extMIMETypes = map[string]string{
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".csv":      "text/csv",
	".txt":      "text/plain",
	".log":      "text/plain",
	".json":     "application/json",
	".pdf":      "application/pdf",
	".doc":      "application/msword",
	".docx":     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xls":      "application/vnd.ms-excel",
	".xlsx":     "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".ppt":      "application/vnd.ms-powerpoint",
	".pptx":     "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".png":      "image/png",
	".jpg":      "image/jpeg",
	".jpeg":     "image/jpeg",
}

// DetectMimeType determines the content type from the file extension.
// Unknown extensions yield application/octet-stream, which upload validation rejects.
func DetectMimeType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return "application/octet-stream"
	}

	if t, ok := extMIMETypes[ext]; ok {
		return t
	}

	mimeType := mime.TypeByExtension(ext)
	if mimeType != "" {
		// Strip charset and other parameters.
		if idx := strings.Index(mimeType, ";"); idx != -1 {
			mimeType = strings.TrimSpace(mimeType[:idx])
		}
		return mimeType
	}

	return "application/octet-stream"
}

// Open stats path and returns a handle that reopens the file on each read.
func Open(path string) (domain.UploadFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return domain.UploadFile{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return domain.UploadFile{}, fmt.Errorf("%w: %s is a directory", domain.ErrInvalidInput, path)
	}

	return domain.UploadFile{
		Name:      filepath.Base(path),
		MimeType:  DetectMimeType(path),
		SizeBytes: info.Size(),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

// IsHidden reports dotfiles and common partial-download or editor temp names.
func IsHidden(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "~$") {
		return true
	}
	switch strings.ToLower(filepath.Ext(base)) {
	case ".tmp", ".part", ".crdownload", ".swp":
		return true
	}
	return false
}
