package syncer

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"downspout/internal/config"
	"downspout/internal/files"
	"downspout/internal/history"
	"downspout/internal/logging"
	"downspout/internal/notifications"
	"downspout/internal/remote"
	"downspout/internal/scanner"
)

// DeleteQueue is the deferred-deletion handoff the orchestrator drives.
type DeleteQueue interface {
	Pause()
	Start()
	Add(file *files.DiscoveredFile)
}

// Recorder persists transfer outcomes. The engine never reads them back.
type Recorder interface {
	Record(ctx context.Context, rec history.Record) error
}

// Status is a point-in-time snapshot of the engine for the status API.
type Status struct {
	Scanning    bool      `json:"scanning"`
	Queued      int       `json:"queued"`
	Downloading int       `json:"downloading"`
	LastScan    time.Time `json:"last_scan,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
}

// Orchestrator owns the download queue and drives the scan/download/delete
// cycle. All queue state is confined behind one mutex; scan and transfer
// goroutines only ever call back in through FileFound, ScanComplete, and
// onDownloadComplete.
type Orchestrator struct {
	cfg        *config.Config
	dialer     remote.Dialer
	downloader Downloader
	deletes    DeleteQueue
	notifier   notifications.Service
	recorder   Recorder
	logger     *slog.Logger
	slots      *semaphore.Weighted

	mu        sync.Mutex
	running   bool
	session   *scanner.Session
	queue     []*files.DiscoveredFile
	pollTimer *time.Timer
	lastScan  time.Time
	lastError string
	runCtx    context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// New builds the production orchestrator with an FTP-backed downloader.
func New(cfg *config.Config, dialer remote.Dialer, deletes DeleteQueue, notifier notifications.Service, recorder Recorder, logger *slog.Logger) *Orchestrator {
	return NewWithDownloader(cfg, dialer, NewFTPDownloader(cfg, dialer, logger), deletes, notifier, recorder, logger)
}

// NewWithDownloader builds an orchestrator with a caller-supplied downloader.
func NewWithDownloader(cfg *config.Config, dialer remote.Dialer, downloader Downloader, deletes DeleteQueue, notifier notifications.Service, recorder Recorder, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		dialer:     dialer,
		downloader: downloader,
		deletes:    deletes,
		notifier:   notifier,
		recorder:   recorder,
		logger:     logging.WithComponent(logger, "syncer"),
		slots:      semaphore.NewWeighted(int64(cfg.Sync.MaxConcurrentDownloads)),
	}
}

// Start arms the poll timer. The first scan fires after one poll interval
// unless RequestSync is called earlier.
func (o *Orchestrator) Start(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return
	}
	o.running = true
	o.runCtx, o.cancel = context.WithCancel(ctx)
	o.pollTimer = time.AfterFunc(o.pollInterval(), o.onPoll)
	o.logger.Info("sync engine started",
		logging.Duration("poll_interval", o.pollInterval()),
		logging.Int("max_concurrent", o.cfg.Sync.MaxConcurrentDownloads),
	)
}

// Stop cancels any running scan and waits for in-flight transfers to unwind.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return
	}
	o.running = false
	if o.pollTimer != nil {
		o.pollTimer.Stop()
		o.pollTimer = nil
	}
	session := o.session
	cancel := o.cancel
	o.mu.Unlock()

	if session != nil {
		session.Cancel()
	}
	if cancel != nil {
		cancel()
	}
	o.wg.Wait()
	o.logger.Info("sync engine stopped")
}

// RequestSync starts a scan now. A request while a scan is already running is
// logged and dropped; the running scan's results supersede it. Every request,
// acted on or not, pushes the next poll a full interval out.
func (o *Orchestrator) RequestSync() {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return
	}
	o.rearmPoll()
	if o.session != nil && o.session.Active() {
		id := o.session.ID()
		o.mu.Unlock()
		o.logger.Info("sync requested while scan in progress, ignoring",
			logging.String("active_scan", id))
		return
	}

	session := scanner.New(o.cfg, o.dialer, o, o.logger)
	o.session = session
	ctx := o.runCtx
	o.mu.Unlock()

	// Deletions stay paused until the scan completes cleanly, so a botched
	// listing can never race a deletion for the same path.
	o.deletes.Pause()
	if err := session.Start(ctx); err != nil {
		o.logger.Error("scan start failed", logging.Error(err))
	}
}

// Status reports a snapshot for the HTTP status endpoint and CLI.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	status := Status{
		Scanning:  o.session != nil && o.session.Active(),
		LastScan:  o.lastScan,
		LastError: o.lastError,
	}
	for _, file := range o.queue {
		if file.Downloading {
			status.Downloading++
		} else {
			status.Queued++
		}
	}
	return status
}

// QueueLen returns the number of files queued or in flight.
func (o *Orchestrator) QueueLen() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.queue)
}

func (o *Orchestrator) onPoll() {
	o.mu.Lock()
	running := o.running
	o.mu.Unlock()
	if !running {
		return
	}
	o.logger.Debug("poll interval elapsed")
	o.RequestSync()
}

// rearmPoll re-baselines the poll timer. Callers hold o.mu.
func (o *Orchestrator) rearmPoll() {
	if o.pollTimer != nil {
		o.pollTimer.Stop()
	}
	o.pollTimer = time.AfterFunc(o.pollInterval(), o.onPoll)
}

func (o *Orchestrator) pollInterval() time.Duration {
	return time.Duration(o.cfg.Sync.PollInterval) * time.Second
}

// FileFound implements scanner.Sink. Files already on disk skip the download
// queue and go straight to deletion; everything else is enqueued once per
// identity.
func (o *Orchestrator) FileFound(file *files.DiscoveredFile) {
	localPath := o.LocalPath(file)
	if _, err := os.Stat(localPath); err == nil {
		o.logger.Debug("file already present locally",
			logging.String("remote", file.RemotePath()),
			logging.String("local", localPath),
		)
		o.handoffDelete(file)
		return
	}

	o.mu.Lock()
	for _, queued := range o.queue {
		if queued.Equal(file) {
			o.mu.Unlock()
			return
		}
	}
	o.queue = append(o.queue, file)
	o.mu.Unlock()

	o.logger.Info("file queued for download",
		logging.String("remote", file.RemotePath()),
		logging.Int64("bytes", file.Size()),
	)
	o.downloadNextInQueue()
}

// ScanComplete implements scanner.Sink. On success deletions resume; on any
// failure they stay paused until a later scan completes cleanly.
func (o *Orchestrator) ScanComplete(err error, found []*files.DiscoveredFile) {
	o.mu.Lock()
	o.session = nil
	o.lastScan = time.Now()
	if err != nil && !errors.Is(err, scanner.ErrScanCancelled) {
		o.lastError = err.Error()
	} else {
		o.lastError = ""
	}
	ctx := o.runCtx
	o.mu.Unlock()

	if errors.Is(err, scanner.ErrScanCancelled) {
		// Shutdown or an explicit cancel, not a failure; nobody is paged.
		o.logger.Info("scan cancelled")
		return
	}
	if err != nil {
		if remote.IsAuthError(err) {
			// Bad credentials will not fix themselves; stop polling until an
			// operator intervenes via the sync endpoint.
			o.mu.Lock()
			if o.pollTimer != nil {
				o.pollTimer.Stop()
			}
			o.mu.Unlock()
			o.logger.Error("scan failed: remote rejected credentials, polling suspended", logging.Error(err))
			_ = o.notifier.NotifyAuthFailure(ctx)
		} else {
			o.logger.Warn("scan failed, retrying on next poll", logging.Error(err))
			_ = o.notifier.NotifySyncFailed(ctx, err)
		}
		return
	}

	o.logger.Info("scan complete", logging.Int("files", len(found)))
	o.deletes.Start()
	o.downloadNextInQueue()
}

// downloadNextInQueue starts transfers for queued files until the concurrency
// slots are exhausted. Safe to call from any goroutine.
func (o *Orchestrator) downloadNextInQueue() {
	for {
		o.mu.Lock()
		if !o.running {
			o.mu.Unlock()
			return
		}
		var next *files.DiscoveredFile
		for _, file := range o.queue {
			if !file.Downloading {
				next = file
				break
			}
		}
		if next == nil {
			o.mu.Unlock()
			return
		}
		if !o.slots.TryAcquire(1) {
			o.mu.Unlock()
			return
		}
		next.Downloading = true
		ctx := o.runCtx
		o.mu.Unlock()

		o.wg.Add(1)
		go o.runTransfer(ctx, next)
	}
}

func (o *Orchestrator) runTransfer(ctx context.Context, file *files.DiscoveredFile) {
	defer o.wg.Done()
	started := time.Now()
	o.logger.Info("download started", logging.String("remote", file.RemotePath()))

	localPath, err := o.downloader.Download(ctx, file, o.DestinationDir(file))
	o.onDownloadComplete(ctx, file, localPath, started, err)
}

// onDownloadComplete removes the file from the queue whatever the outcome. A
// failed file is rediscovered and retried by the next scan; a successful one
// is recorded, announced, and handed to the delete queue.
func (o *Orchestrator) onDownloadComplete(ctx context.Context, file *files.DiscoveredFile, localPath string, started time.Time, err error) {
	o.mu.Lock()
	for i, queued := range o.queue {
		if queued.Equal(file) {
			o.queue = append(o.queue[:i], o.queue[i+1:]...)
			break
		}
	}
	o.mu.Unlock()
	// The slot frees only after the finished file has left the queue, so the
	// in-flight count never overshoots the cap between completion and dequeue.
	o.slots.Release(1)

	o.record(ctx, file, localPath, started, err)

	if err != nil {
		o.logger.Warn("download failed, will retry after next scan",
			logging.String("remote", file.RemotePath()),
			logging.Error(err),
		)
	} else {
		o.logger.Info("download complete",
			logging.String("remote", file.RemotePath()),
			logging.String("local", localPath),
			logging.Duration("elapsed", time.Since(started)),
		)
		_ = o.notifier.NotifyDownloadCompleted(ctx, file.Name, file.Size())
		o.handoffDelete(file)
	}

	o.downloadNextInQueue()
}

func (o *Orchestrator) handoffDelete(file *files.DiscoveredFile) {
	if !o.cfg.Delete.Enabled {
		o.logger.Warn("remote deletion disabled, leaving file on seedbox",
			logging.String("remote", file.RemotePath()))
		return
	}
	o.deletes.Add(file)
}

func (o *Orchestrator) record(ctx context.Context, file *files.DiscoveredFile, localPath string, started time.Time, transferErr error) {
	if o.recorder == nil {
		return
	}
	rec := history.Record{
		RemotePath: file.RemotePath(),
		LocalPath:  localPath,
		SizeBytes:  file.Size(),
		Status:     history.StatusCompleted,
		StartedAt:  started,
		FinishedAt: time.Now(),
	}
	if transferErr != nil {
		rec.Status = history.StatusFailed
		rec.Error = transferErr.Error()
	}
	if err := o.recorder.Record(ctx, rec); err != nil {
		o.logger.Warn("history record failed", logging.Error(err))
	}
}
