package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/custodia-labs/attest/internal/core/domain"
	"github.com/custodia-labs/attest/internal/core/ports/driven"
	"github.com/custodia-labs/attest/internal/core/ports/driving"
	"github.com/custodia-labs/attest/internal/integrity"
	"github.com/custodia-labs/attest/internal/logger"
)

// Ensure UploadCoordinator implements the interface.
var _ driving.UploadCoordinator = (*UploadCoordinator)(nil)

// statusFetchTimeout bounds the post-registration ingestion status fetch.
const statusFetchTimeout = 10 * time.Second

// errSessionDiscarded is returned to an in-flight upload whose session was reset.
var errSessionDiscarded = errors.New("upload session discarded")

// TransitionHook observes every state change of a session.
type TransitionHook func(from, to domain.UploadState, session domain.UploadSession)

// IngestionHook receives the result of the single status fetch made after a
// successful registration.
type IngestionHook func(status domain.IngestionStatus, err error)

// UploadConfig configures an UploadCoordinator.
type UploadConfig struct {
	Scope domain.Scope

	// MaxSizeBytes is the size ceiling. It can only lower domain.MaxUploadBytes.
	MaxSizeBytes int64

	// Timeout bounds all upload phases together (default 10m).
	Timeout time.Duration
}

// UploadCoordinator drives one file at a time through
// idle → generating_credentials → transferring → completing → completed,
// with error reachable from any non-terminal state.
type UploadCoordinator struct {
	api     driven.EvidenceAPI
	blobs   driven.BlobUploader
	tracker driving.IngestionTracker
	cfg     UploadConfig
	now     func() time.Time

	mu          sync.Mutex
	session     domain.UploadSession
	cancel      context.CancelFunc
	hooks       []TransitionHook
	onIngestion IngestionHook
}

// NewUploadCoordinator creates a coordinator with an idle session.
func NewUploadCoordinator(api driven.EvidenceAPI, blobs driven.BlobUploader, cfg UploadConfig) *UploadCoordinator {
	if cfg.MaxSizeBytes <= 0 || cfg.MaxSizeBytes > domain.MaxUploadBytes {
		cfg.MaxSizeBytes = domain.MaxUploadBytes
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Minute
	}
	return &UploadCoordinator{
		api:     api,
		blobs:   blobs,
		cfg:     cfg,
		now:     time.Now,
		session: domain.UploadSession{State: domain.UploadIdle},
	}
}

// SetIngestionTracker enables the post-registration status fetch.
// hook may be nil.
func (c *UploadCoordinator) SetIngestionTracker(tracker driving.IngestionTracker, hook IngestionHook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tracker = tracker
	c.onIngestion = hook
}

// OnTransition registers a hook called after every state change.
func (c *UploadCoordinator) OnTransition(hook TransitionHook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = append(c.hooks, hook)
}

// SetClock overrides the time source. Useful for testing.
func (c *UploadCoordinator) SetClock(now func() time.Time) {
	c.now = now
}

// Session returns a snapshot of the current session.
func (c *UploadCoordinator) Session() domain.UploadSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Reset discards the current session. An in-flight upload is cancelled;
// any blob it already wrote stays orphaned because no evidence record
// references it.
func (c *UploadCoordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.session = domain.UploadSession{State: domain.UploadIdle}
}

// SelectFile validates file and, if acceptable, makes it the idle session's
// file. A rejected file moves the session straight to error.
func (c *UploadCoordinator) SelectFile(file domain.UploadFile) error {
	c.mu.Lock()
	state := c.session.State
	c.mu.Unlock()

	switch {
	case state.IsTerminal():
		return domain.ErrSessionTerminal
	case state != domain.UploadIdle:
		return fmt.Errorf("%w: cannot select a file while %s", domain.ErrInvalidTransition, state)
	}

	if err := domain.ValidateUpload(file.Name, file.MimeType, file.SizeBytes, c.cfg.MaxSizeBytes); err != nil {
		logger.Warn("Rejected %q: %v", file.Name, err)
		c.mu.Lock()
		c.session.File = file
		id := c.session.ID
		c.mu.Unlock()
		c.fail(id, err)
		return err
	}
	if file.Open == nil {
		return fmt.Errorf("%w: file %q has no content", domain.ErrInvalidInput, file.Name)
	}

	c.mu.Lock()
	c.session = domain.UploadSession{
		ID:    ulid.Make().String(),
		File:  file,
		State: domain.UploadIdle,
	}
	c.mu.Unlock()

	logger.Debug("Selected %q (%s, %d bytes)", file.Name, file.MimeType, file.SizeBytes)
	return nil
}

// StartUpload runs the three network phases strictly in sequence.
func (c *UploadCoordinator) StartUpload(ctx context.Context) (*domain.Evidence, error) {
	if err := c.cfg.Scope.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	c.mu.Lock()
	session := c.session
	switch {
	case session.State.IsTerminal():
		c.mu.Unlock()
		return nil, domain.ErrSessionTerminal
	case session.State != domain.UploadIdle:
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: upload already %s", domain.ErrInvalidTransition, session.State)
	case session.ID == "":
		c.mu.Unlock()
		return nil, domain.ErrNoFileSelected
	case !session.StartedAt.IsZero():
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: upload already started", domain.ErrInvalidTransition)
	}
	c.session.StartedAt = c.now()
	c.cancel = cancel
	c.mu.Unlock()

	id := session.ID
	file := session.File

	logger.Section("Upload")
	logger.Info("Uploading %q to engagement %s", file.Name, c.cfg.Scope.EngagementID)

	// Phase 1: credentials.
	if err := c.transition(id, domain.UploadGeneratingCredentials, 0); err != nil {
		return nil, err
	}
	creds, err := c.api.RequestUploadCredentials(ctx, domain.CredentialRequest{
		EngagementID: c.cfg.Scope.EngagementID,
		Filename:     file.Name,
		MimeType:     file.MimeType,
		SizeBytes:    file.SizeBytes,
	})
	if err != nil {
		return nil, c.fail(id, c.classify(ctx, "request upload credentials", err))
	}
	if creds.StoragePath == "" {
		creds.StoragePath = domain.StoragePath(c.cfg.Scope.EngagementID, file.Name, c.now())
	}
	logger.Debug("Credentials issued for %s", creds.StoragePath)

	// Phase 2: direct transfer, hashing the bytes as they stream.
	if err := c.transition(id, domain.UploadTransferring, domain.ProgressCredentialsIssued); err != nil {
		return nil, err
	}
	digest, err := c.transfer(ctx, creds, file)
	if err != nil {
		return nil, c.fail(id, c.classify(ctx, "transfer", err))
	}
	logger.Debug("Transferred %d bytes, sha256=%s", file.SizeBytes, digest)

	// Phase 3: registration and server-side verification.
	if err := c.transition(id, domain.UploadCompleting, domain.ProgressTransferred); err != nil {
		return nil, err
	}
	receipt, err := c.api.CompleteUpload(ctx, domain.Registration{
		EngagementID:   c.cfg.Scope.EngagementID,
		StoragePath:    creds.StoragePath,
		Filename:       file.Name,
		MimeType:       file.MimeType,
		SizeBytes:      file.SizeBytes,
		ClientChecksum: digest,
	})
	if err != nil {
		if errors.Is(err, domain.ErrIntegrity) {
			logger.Warn("Blob %s left orphaned after integrity failure", creds.StoragePath)
		}
		return nil, c.fail(id, c.classify(ctx, "complete upload", err))
	}
	if err := integrity.Verify(digest, receipt.Checksum); err != nil {
		logger.Warn("Blob %s left orphaned after integrity failure", creds.StoragePath)
		return nil, c.fail(id, err)
	}

	size := receipt.SizeBytes
	if size <= 0 {
		size = file.SizeBytes
	}
	evidence := &domain.Evidence{
		ID:             receipt.EvidenceID,
		EngagementID:   c.cfg.Scope.EngagementID,
		StoragePath:    creds.StoragePath,
		Filename:       file.Name,
		MimeType:       file.MimeType,
		SizeBytes:      size,
		ChecksumSHA256: digest,
		UploadedBy:     c.cfg.Scope.UserID,
		UploadedAt:     c.now().UTC(),
		PIIFlag:        receipt.PIIFlag,
		LinkedItems:    []domain.LinkedItem{},
	}

	if err := c.transition(id, domain.UploadCompleted, domain.ProgressCompleted); err != nil {
		return nil, err
	}
	logger.Info("Registered evidence %s (pii=%t)", evidence.ID, evidence.PIIFlag)

	c.fetchIngestionStatus(ctx, evidence.ID)
	return evidence, nil
}

// transfer streams the file to storage and returns the digest of the bytes sent.
func (c *UploadCoordinator) transfer(
	ctx context.Context, creds domain.UploadCredentials, file domain.UploadFile,
) (string, error) {
	rc, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("open %s: %w", file.Name, err)
	}
	defer rc.Close()

	hasher := integrity.NewHasher()
	if err := c.blobs.Upload(ctx, creds, io.TeeReader(rc, hasher), file.SizeBytes, file.MimeType); err != nil {
		return "", err
	}
	if hasher.Len() != file.SizeBytes {
		return "", fmt.Errorf("%w: sent %d of %d bytes", domain.ErrInvalidInput, hasher.Len(), file.SizeBytes)
	}
	return hasher.Sum(), nil
}

// fetchIngestionStatus triggers the single asynchronous status read that
// follows a successful registration.
func (c *UploadCoordinator) fetchIngestionStatus(ctx context.Context, documentID string) {
	c.mu.Lock()
	tracker, hook := c.tracker, c.onIngestion
	c.mu.Unlock()
	if tracker == nil {
		return
	}

	engagementID := c.cfg.Scope.EngagementID
	detached := context.WithoutCancel(ctx)
	go func() {
		fctx, cancel := context.WithTimeout(detached, statusFetchTimeout)
		defer cancel()
		status, err := tracker.GetStatus(fctx, engagementID, documentID)
		if err != nil {
			logger.Warn("Initial ingestion status for %s: %v", documentID, err)
		} else {
			logger.Debug("Initial ingestion status for %s: %s", documentID, status.Status)
		}
		if hook != nil {
			hook(status, err)
		}
	}()
}

// transition moves session id to next, applying the transition table.
func (c *UploadCoordinator) transition(id string, next domain.UploadState, progress int) error {
	c.mu.Lock()
	if c.session.ID != id {
		c.mu.Unlock()
		return errSessionDiscarded
	}
	from := c.session.State
	if !from.CanTransitionTo(next) {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, next)
	}
	c.session.State = next
	if progress > c.session.Progress {
		c.session.Progress = progress
	}
	if next.IsTerminal() {
		c.cancel = nil
	}
	snapshot := c.session
	hooks := append([]TransitionHook(nil), c.hooks...)
	c.mu.Unlock()

	logger.Debug("Upload %s: %s -> %s (%d%%)", id, from, next, snapshot.Progress)
	for _, hook := range hooks {
		hook(from, next, snapshot)
	}
	return nil
}

// fail moves session id to the absorbing error state and returns err.
func (c *UploadCoordinator) fail(id string, err error) error {
	c.mu.Lock()
	if c.session.ID == id {
		c.session.Err = err
	}
	c.mu.Unlock()

	if terr := c.transition(id, domain.UploadError, 0); errors.Is(terr, errSessionDiscarded) {
		return errSessionDiscarded
	}
	logger.Error("Upload failed: %v", err)
	return err
}

// classify turns an exhausted upload budget into a TimeoutError.
func (c *UploadCoordinator) classify(ctx context.Context, op string, err error) error {
	if errors.Is(err, domain.ErrTimeout) {
		return err
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &domain.TimeoutError{Op: op, Budget: c.cfg.Timeout}
	}
	return fmt.Errorf("%s: %w", op, err)
}
