// Package watch uploads evidence files dropped into a directory.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/attest/internal/core/domain"
	"github.com/custodia-labs/attest/internal/core/ports/driving"
	"github.com/custodia-labs/attest/internal/localfile"
	"github.com/custodia-labs/attest/internal/logger"
)

// DefaultSettle is how long a file must go without writes before it is uploaded.
const DefaultSettle = time.Second

// minTick is the shortest settle check interval.
const minTick = time.Millisecond

// queueSize bounds files waiting for the upload worker.
const queueSize = 64

// Uploader uploads the file at path and returns the registered evidence.
type Uploader func(ctx context.Context, path string) (*domain.Evidence, error)

// SessionUploader returns an Uploader that runs each file through a fresh
// upload session from newSession.
func SessionUploader(newSession func() driving.UploadCoordinator) Uploader {
	return func(ctx context.Context, path string) (*domain.Evidence, error) {
		file, err := localfile.Open(path)
		if err != nil {
			return nil, err
		}
		session := newSession()
		if err := session.SelectFile(file); err != nil {
			return nil, err
		}
		return session.StartUpload(ctx)
	}
}

// Result is the outcome of one watched file.
type Result struct {
	Path     string
	Evidence *domain.Evidence
	Err      error
}

// Skipped reports a file rejected by validation rather than a failed upload.
func (r Result) Skipped() bool {
	return errors.Is(r.Err, domain.ErrValidation)
}

// Watcher watches one directory (non-recursive) for new files.
type Watcher struct {
	dir    string
	upload Uploader
	settle time.Duration
	now    func() time.Time

	mu      sync.Mutex
	watcher *fsnotify.Watcher
}

// New creates a watcher for dir. A settle of zero uses DefaultSettle.
func New(dir string, upload Uploader, settle time.Duration) *Watcher {
	if settle <= 0 {
		settle = DefaultSettle
	}
	return &Watcher{
		dir:    dir,
		upload: upload,
		settle: settle,
		now:    time.Now,
	}
}

// Watch starts watching and returns a channel of upload results. The channel
// is closed once ctx is cancelled and in-flight uploads have finished.
func (w *Watcher) Watch(ctx context.Context) (<-chan Result, error) {
	info, err := os.Stat(w.dir)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", w.dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, w.dir)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := fw.Add(w.dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", w.dir, err)
	}

	w.mu.Lock()
	w.watcher = fw
	w.mu.Unlock()

	queue := make(chan string, queueSize)
	results := make(chan Result)

	go w.collect(ctx, fw, queue)
	go w.work(ctx, queue, results)

	logger.Info("Watching %s for new evidence", w.dir)
	return results, nil
}

// Close stops the underlying watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher == nil {
		return nil
	}
	err := w.watcher.Close()
	w.watcher = nil
	return err
}

// tickInterval is how often pending files are checked for settling.
func (w *Watcher) tickInterval() time.Duration {
	return max(w.settle/2, minTick)
}

// collect turns filesystem events into settled paths on queue.
func (w *Watcher) collect(ctx context.Context, fw *fsnotify.Watcher, queue chan<- string) {
	defer close(queue)

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(w.tickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			path, ok := w.handleEvent(event)
			if !ok {
				continue
			}
			if _, tracked := pending[path]; tracked || event.Has(fsnotify.Create) {
				pending[path] = w.now()
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			logger.Warn("watch %s: %v", w.dir, err)

		case <-ticker.C:
			now := w.now()
			for path, last := range pending {
				if now.Sub(last) < w.settle {
					continue
				}
				delete(pending, path)
				select {
				case queue <- path:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// work uploads queued paths one at a time.
func (w *Watcher) work(ctx context.Context, queue <-chan string, results chan<- Result) {
	defer close(results)

	for path := range queue {
		logger.Debug("Uploading %s", path)
		ev, err := w.upload(ctx, path)
		select {
		case results <- Result{Path: path, Evidence: ev, Err: err}:
		case <-ctx.Done():
			return
		}
	}
}

// handleEvent returns the path of a create or write event on a visible
// regular file.
func (w *Watcher) handleEvent(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return "", false
	}
	if localfile.IsHidden(event.Name) {
		return "", false
	}
	info, err := os.Stat(event.Name)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return event.Name, true
}
