package deletequeue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"downspout/internal/config"
	"downspout/internal/files"
	"downspout/internal/logging"
	"downspout/internal/remote"
)

// Queue defers remote deletion of files that have safely landed locally.
// The orchestrator pauses it around scans so deletions never compete with
// the scan connection; deletion failures are retried on an interval.
type Queue struct {
	dialer remote.Dialer
	logger *slog.Logger
	retry  time.Duration

	mu      sync.Mutex
	paused  bool
	pending []*files.DiscoveredFile
	wake    chan struct{}
}

// New constructs an empty, running (unpaused) queue.
func New(cfg *config.Config, dialer remote.Dialer, logger *slog.Logger) *Queue {
	return &Queue{
		dialer: dialer,
		logger: logging.WithComponent(logger, "deletequeue"),
		retry:  time.Duration(cfg.Delete.RetryInterval) * time.Second,
		wake:   make(chan struct{}, 1),
	}
}

// Pause suspends deletion work until Start is called. Pending items are kept.
func (q *Queue) Pause() {
	q.mu.Lock()
	q.paused = true
	q.mu.Unlock()
}

// Start resumes deletion work.
func (q *Queue) Start() {
	q.mu.Lock()
	q.paused = false
	q.mu.Unlock()
	q.notify()
}

// Add enqueues a file for deferred remote removal. Duplicate identities are
// dropped; deletion is idempotent anyway, but there is no point dialing for
// the same path twice.
func (q *Queue) Add(file *files.DiscoveredFile) {
	if file == nil {
		return
	}
	q.mu.Lock()
	for _, queued := range q.pending {
		if queued.Equal(file) {
			q.mu.Unlock()
			return
		}
	}
	q.pending = append(q.pending, file)
	q.mu.Unlock()
	q.notify()
}

// Len returns the number of files awaiting deletion.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Run processes the queue until ctx is cancelled. Call from one goroutine.
func (q *Queue) Run(ctx context.Context) {
	for {
		if !q.flush(ctx) {
			// Items remain; retry after the configured interval.
			select {
			case <-ctx.Done():
				return
			case <-time.After(q.retry):
			}
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-q.wake:
		}
	}
}

// flush attempts to delete everything currently pending. It reports true when
// the queue is drained or paused, false when items remain for a retry pass.
func (q *Queue) flush(ctx context.Context) bool {
	batch := q.takeBatch()
	if len(batch) == 0 {
		return true
	}

	client, err := q.dialer.Dial(ctx)
	if err != nil {
		q.logger.Warn("delete connection failed, will retry", logging.Error(err))
		q.requeue(batch)
		return false
	}
	defer func() { _ = client.Destroy() }()

	var failed []*files.DiscoveredFile
	for _, file := range batch {
		if ctx.Err() != nil {
			failed = append(failed, file)
			continue
		}
		path := file.RemotePath()
		if err := client.Delete(ctx, path); err != nil {
			q.logger.Warn("remote delete failed, will retry",
				logging.String("path", path),
				logging.Error(err),
			)
			failed = append(failed, file)
			continue
		}
		q.logger.Info("remote file deleted", logging.String("path", path))
	}
	if len(failed) > 0 {
		q.requeue(failed)
		return false
	}
	return true
}

// takeBatch removes all pending items when the queue is not paused.
func (q *Queue) takeBatch() []*files.DiscoveredFile {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.paused || len(q.pending) == 0 {
		return nil
	}
	batch := q.pending
	q.pending = nil
	return batch
}

func (q *Queue) requeue(batch []*files.DiscoveredFile) {
	q.mu.Lock()
	q.pending = append(batch, q.pending...)
	q.mu.Unlock()
}

func (q *Queue) notify() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}
