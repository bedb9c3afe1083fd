package domain

import (
	"io"
	"time"
)

// UploadState is a state of the upload state machine.
type UploadState string

// Upload states. Transitions only move forward; Error is absorbing.
const (
	UploadIdle                  UploadState = "idle"
	UploadGeneratingCredentials UploadState = "generating_credentials"
	UploadTransferring          UploadState = "transferring"
	UploadCompleting            UploadState = "completing"
	UploadCompleted             UploadState = "completed"
	UploadError                 UploadState = "error"
)

// uploadTransitions is the transition table. Any non-terminal state may also
// move to UploadError.
var uploadTransitions = map[UploadState]UploadState{
	UploadIdle:                  UploadGeneratingCredentials,
	UploadGeneratingCredentials: UploadTransferring,
	UploadTransferring:          UploadCompleting,
	UploadCompleting:            UploadCompleted,
}

// Progress anchors per phase boundary.
const (
	ProgressCredentialsIssued = 10
	ProgressTransferred       = 70
	ProgressCompleted         = 100
)

// IsValid returns true if the state is recognised.
func (s UploadState) IsValid() bool {
	switch s {
	case UploadIdle, UploadGeneratingCredentials, UploadTransferring,
		UploadCompleting, UploadCompleted, UploadError:
		return true
	default:
		return false
	}
}

// IsTerminal returns true for Completed and Error.
func (s UploadState) IsTerminal() bool {
	return s == UploadCompleted || s == UploadError
}

// Next returns the forward successor of s, if any.
func (s UploadState) Next() (UploadState, bool) {
	next, ok := uploadTransitions[s]
	return next, ok
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s UploadState) CanTransitionTo(next UploadState) bool {
	if s.IsTerminal() {
		return false
	}
	if next == UploadError {
		return true
	}
	succ, ok := uploadTransitions[s]
	return ok && succ == next
}

// String returns the string representation.
func (s UploadState) String() string {
	return string(s)
}

// Description returns a human-readable description of the state.
func (s UploadState) Description() string {
	switch s {
	case UploadIdle:
		return "Ready"
	case UploadGeneratingCredentials:
		return "Requesting upload credentials"
	case UploadTransferring:
		return "Transferring to storage"
	case UploadCompleting:
		return "Registering evidence"
	case UploadCompleted:
		return "Completed"
	case UploadError:
		return "Failed"
	default:
		return "Unknown"
	}
}

// UploadFile is the file handle selected by the user.
type UploadFile struct {
	Name      string
	MimeType  string
	SizeBytes int64

	// Open returns a fresh reader over the file content.
	Open func() (io.ReadCloser, error)
}

// UploadSession is a snapshot of a client-local upload.
type UploadSession struct {
	ID        string
	File      UploadFile
	State     UploadState
	Progress  int
	Err       error
	StartedAt time.Time
}

// UploadCredentials is a short-lived, path-scoped write credential.
type UploadCredentials struct {
	UploadURL   string
	StoragePath string
}

// CredentialRequest asks the backend for upload credentials.
type CredentialRequest struct {
	EngagementID string
	Filename     string
	MimeType     string
	SizeBytes    int64
}

// Registration records a transferred blob with the backend.
type Registration struct {
	EngagementID   string
	StoragePath    string
	Filename       string
	MimeType       string
	SizeBytes      int64
	ClientChecksum string
}

// RegistrationReceipt is the backend's answer to a Registration.
type RegistrationReceipt struct {
	EvidenceID string
	Checksum   string
	SizeBytes  int64
	PIIFlag    bool
}
