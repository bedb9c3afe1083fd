package domain

import "time"

// IngestionState is the indexing progress of a document.
type IngestionState string

// Ingestion states reported by the backend, plus the client-side
// IngestionUnconfirmed marker for an exhausted polling budget.
const (
	IngestionPending     IngestionState = "pending"
	IngestionProcessing  IngestionState = "processing"
	IngestionCompleted   IngestionState = "completed"
	IngestionFailed      IngestionState = "failed"
	IngestionUnconfirmed IngestionState = "failed_to_confirm"
)

// IsValid returns true if the state is recognised.
func (s IngestionState) IsValid() bool {
	switch s {
	case IngestionPending, IngestionProcessing, IngestionCompleted,
		IngestionFailed, IngestionUnconfirmed:
		return true
	default:
		return false
	}
}

// IsFinal returns true once the backend will not change the state again.
func (s IngestionState) IsFinal() bool {
	return s == IngestionCompleted || s == IngestionFailed
}

// String returns the string representation.
func (s IngestionState) String() string {
	return string(s)
}

// IngestionStatus is the server-observed indexing state of one document.
type IngestionStatus struct {
	DocumentID    string         `json:"documentId"`
	Status        IngestionState `json:"status"`
	ChunksCreated *int           `json:"chunksCreated,omitempty"`
	ProcessedAt   *time.Time     `json:"processedAt,omitempty"`
}

// PendingStatus is the status assumed for a document with no status record yet.
func PendingStatus(documentID string) IngestionStatus {
	return IngestionStatus{DocumentID: documentID, Status: IngestionPending}
}

// IsSearchable returns true once the document's chunks are indexed.
func (s IngestionStatus) IsSearchable() bool {
	return s.Status == IngestionCompleted
}
