package daemon

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"
	"log/slog"

	"downspout/internal/config"
	"downspout/internal/deletequeue"
	"downspout/internal/history"
	"downspout/internal/logging"
	"downspout/internal/notifications"
	"downspout/internal/remote"
	"downspout/internal/syncer"
)

// Daemon wires the sync engine, delete queue, and HTTP API together and
// enforces single-instance execution through a lock file.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *history.Store
	notifier notifications.Service
	deletes  *deletequeue.Queue
	engine   *syncer.Orchestrator
	api      *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Status represents daemon runtime information for the API and CLI.
type Status struct {
	Running        bool          `json:"running"`
	Sync           syncer.Status `json:"sync"`
	PendingDeletes int           `json:"pending_deletes"`
	HistoryDBPath  string        `json:"history_db_path"`
	LockFilePath   string        `json:"lock_file_path"`
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *history.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || logger == nil {
		return nil, errors.New("daemon requires config and logger")
	}

	dialer := remote.NewFTPDialer(cfg)
	notifier := notifications.NewService(cfg)
	deletes := deletequeue.New(cfg, dialer, logger)

	var recorder syncer.Recorder
	if store != nil {
		recorder = store
	}
	engine := syncer.New(cfg, dialer, deletes, notifier, recorder, logger)

	lockPath := filepath.Join(cfg.Paths.LogDir, "downspoutd.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.WithComponent(logger, "daemon"),
		store:    store,
		notifier: notifier,
		deletes:  deletes,
		engine:   engine,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the instance lock and launches the delete queue, the sync
// engine, and the HTTP API. The first scan is requested immediately.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another downspout daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.deletes.Run(d.ctx)
	}()

	d.engine.Start(d.ctx)

	if d.api != nil {
		if err := d.api.start(d.ctx); err != nil {
			d.engine.Stop()
			d.cancel()
			d.wg.Wait()
			_ = d.lock.Unlock()
			return err
		}
	}

	d.running.Store(true)
	d.logger.Info("downspout daemon started", logging.String("lock", d.lockPath))
	d.engine.RequestSync()
	return nil
}

// Stop shuts everything down in reverse order and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.api != nil {
		d.api.stop()
	}
	d.engine.Stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("downspout daemon stopped")
}

// Close stops the daemon and closes the history store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// RequestSync asks the engine to scan now.
func (d *Daemon) RequestSync() {
	d.engine.RequestSync()
}

// TestNotification sends a test push through the configured channel.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// APIAddr returns the bound API listen address, empty when the API is off.
func (d *Daemon) APIAddr() string {
	if d.api == nil {
		return ""
	}
	return d.api.Addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	historyPath := ""
	if d.store != nil {
		historyPath = d.store.Path()
	}
	return Status{
		Running:        d.running.Load(),
		Sync:           d.engine.Status(),
		PendingDeletes: d.deletes.Len(),
		HistoryDBPath:  historyPath,
		LockFilePath:   d.lockPath,
	}
}
