// Package integrity computes and compares SHA-256 content digests.
//
// The same functions are used before a transfer completes and to verify
// previously downloaded content. Comparison is binary: digests either match
// exactly (case-insensitive hex) or they do not.
package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
	"strings"

	"github.com/custodia-labs/attest/internal/core/domain"
)

// Digest returns the lowercase hex SHA-256 of data.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// DigestReader consumes r and returns its digest and length.
func DigestReader(r io.Reader) (string, int64, error) {
	h := NewHasher()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", n, err
	}
	return h.Sum(), n, nil
}

// Matches reports whether two hex digests are equal.
func Matches(a, b string) bool {
	return a != "" && strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// Verify returns an IntegrityError when actual does not match expected.
func Verify(expected, actual string) error {
	if !Matches(expected, actual) {
		return &domain.IntegrityError{Expected: expected, Actual: actual}
	}
	return nil
}

// Hasher accumulates a digest over bytes written to it, so it can sit
// behind an io.TeeReader during a transfer.
type Hasher struct {
	h hash.Hash
	n int64
}

// NewHasher returns an empty Hasher.
func NewHasher() *Hasher {
	return &Hasher{h: sha256.New()}
}

// Write implements io.Writer.
func (h *Hasher) Write(p []byte) (int, error) {
	n, err := h.h.Write(p)
	h.n += int64(n)
	return n, err
}

// Sum returns the hex digest of everything written so far.
func (h *Hasher) Sum() string {
	return hex.EncodeToString(h.h.Sum(nil))
}

// Len returns the number of bytes written.
func (h *Hasher) Len() int64 {
	return h.n
}
