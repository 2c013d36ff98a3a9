package syncer_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"downspout/internal/config"
	"downspout/internal/files"
	"downspout/internal/history"
	"downspout/internal/logging"
	"downspout/internal/scanner"
	"downspout/internal/syncer"
	"downspout/internal/testsupport"
)

type fakeDownloader struct {
	mu      sync.Mutex
	started []string
	gates   chan error
}

func newFakeDownloader() *fakeDownloader {
	return &fakeDownloader{gates: make(chan error, 16)}
}

func (d *fakeDownloader) Download(ctx context.Context, file *files.DiscoveredFile, destDir string) (string, error) {
	d.mu.Lock()
	d.started = append(d.started, file.Name)
	d.mu.Unlock()
	err := <-d.gates
	if err != nil {
		return "", err
	}
	return filepath.Join(destDir, file.Name), nil
}

func (d *fakeDownloader) startedCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.started)
}

type fakeDeletes struct {
	mu      sync.Mutex
	paused  bool
	resumed int
	added   []*files.DiscoveredFile
}

func (f *fakeDeletes) Pause() {
	f.mu.Lock()
	f.paused = true
	f.mu.Unlock()
}

func (f *fakeDeletes) Start() {
	f.mu.Lock()
	f.paused = false
	f.resumed++
	f.mu.Unlock()
}

func (f *fakeDeletes) Add(file *files.DiscoveredFile) {
	f.mu.Lock()
	f.added = append(f.added, file)
	f.mu.Unlock()
}

func (f *fakeDeletes) addedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.added)
}

type countingNotifier struct {
	mu        sync.Mutex
	downloads int
	auth      int
	syncFails int
}

func (n *countingNotifier) NotifyDownloadCompleted(context.Context, string, int64) error {
	n.mu.Lock()
	n.downloads++
	n.mu.Unlock()
	return nil
}

func (n *countingNotifier) NotifyAuthFailure(context.Context) error {
	n.mu.Lock()
	n.auth++
	n.mu.Unlock()
	return nil
}

func (n *countingNotifier) NotifySyncFailed(context.Context, error) error {
	n.mu.Lock()
	n.syncFails++
	n.mu.Unlock()
	return nil
}

func (n *countingNotifier) TestNotification(context.Context) error { return nil }

type memoryRecorder struct {
	mu      sync.Mutex
	records []history.Record
}

func (r *memoryRecorder) Record(_ context.Context, rec history.Record) error {
	r.mu.Lock()
	r.records = append(r.records, rec)
	r.mu.Unlock()
	return nil
}

type harness struct {
	orch       *syncer.Orchestrator
	downloader *fakeDownloader
	deletes    *fakeDeletes
	notifier   *countingNotifier
	recorder   *memoryRecorder
	cfg        *config.Config
}

func newHarness(t *testing.T, mutate func(*config.Config)) *harness {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.LocalRoot = t.TempDir()
	cfg.Sync.MaxConcurrentDownloads = 2
	if mutate != nil {
		mutate(&cfg)
	}

	h := &harness{
		downloader: newFakeDownloader(),
		deletes:    &fakeDeletes{},
		notifier:   &countingNotifier{},
		recorder:   &memoryRecorder{},
		cfg:        &cfg,
	}
	h.orch = syncer.NewWithDownloader(&cfg, nil, h.downloader, h.deletes, h.notifier, h.recorder, logging.NewNop())
	h.orch.Start(context.Background())
	t.Cleanup(h.orch.Stop)
	return h
}

func discovered(name string) *files.DiscoveredFile {
	return &files.DiscoveredFile{
		BasePath:    "/seedbox-sync",
		RelativeDir: "/tv/showA/",
		Name:        name,
		IsSymlink:   true,
		Target:      &files.TargetInfo{Size: 100, ModTime: time.Now()},
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestConcurrencyCapHolds(t *testing.T) {
	h := newHarness(t, nil)

	for _, name := range []string{"a.mkv", "b.mkv", "c.mkv", "d.mkv", "e.mkv"} {
		h.orch.FileFound(discovered(name))
	}
	h.orch.ScanComplete(nil, nil)

	waitFor(t, "two transfers to start", func() bool { return h.downloader.startedCount() == 2 })
	time.Sleep(50 * time.Millisecond)
	if got := h.downloader.startedCount(); got != 2 {
		t.Fatalf("expected concurrency cap of 2, got %d transfers started", got)
	}

	// Finishing one transfer frees a slot for the next queued file.
	h.downloader.gates <- nil
	waitFor(t, "third transfer to start", func() bool { return h.downloader.startedCount() == 3 })

	for i := 0; i < 4; i++ {
		h.downloader.gates <- nil
	}
	waitFor(t, "queue to drain", func() bool { return h.orch.QueueLen() == 0 })
	if got := h.deletes.addedCount(); got != 5 {
		t.Fatalf("expected 5 delete handoffs, got %d", got)
	}
}

func TestDuplicateDiscoveryEnqueuesOnce(t *testing.T) {
	h := newHarness(t, nil)

	h.orch.FileFound(discovered("a.mkv"))
	h.orch.FileFound(discovered("a.mkv"))

	waitFor(t, "transfer to start", func() bool { return h.downloader.startedCount() == 1 })
	h.downloader.gates <- nil
	waitFor(t, "queue to drain", func() bool { return h.orch.QueueLen() == 0 })

	if got := h.downloader.startedCount(); got != 1 {
		t.Fatalf("expected a single transfer, got %d", got)
	}
}

func TestAlreadyPresentFileSkipsDownload(t *testing.T) {
	h := newHarness(t, nil)

	file := discovered("a.mkv")
	testsupport.WriteFile(t, filepath.Join(h.orch.DestinationDir(file), "a.mkv"), file.Size())

	h.orch.FileFound(file)

	waitFor(t, "delete handoff", func() bool { return h.deletes.addedCount() == 1 })
	if got := h.downloader.startedCount(); got != 0 {
		t.Fatalf("expected no transfer for present file, got %d", got)
	}
	if h.orch.QueueLen() != 0 {
		t.Fatalf("present file must not be queued")
	}
}

func TestScanFailureLeavesDeletesPaused(t *testing.T) {
	h := newHarness(t, nil)

	h.deletes.Pause()
	h.deletes.mu.Lock()
	h.deletes.resumed = 0
	h.deletes.mu.Unlock()

	h.orch.ScanComplete(errors.New("listing truncated"), nil)

	h.deletes.mu.Lock()
	paused, resumed := h.deletes.paused, h.deletes.resumed
	h.deletes.mu.Unlock()
	if !paused || resumed != 0 {
		t.Fatalf("delete queue must stay paused after a failed scan")
	}
	h.notifier.mu.Lock()
	syncFails := h.notifier.syncFails
	h.notifier.mu.Unlock()
	if syncFails != 1 {
		t.Fatalf("expected one sync failure notification, got %d", syncFails)
	}
}

func TestFailedDownloadDropsFromQueue(t *testing.T) {
	h := newHarness(t, nil)

	h.orch.FileFound(discovered("a.mkv"))
	waitFor(t, "transfer to start", func() bool { return h.downloader.startedCount() == 1 })
	h.downloader.gates <- errors.New("connection reset")
	waitFor(t, "queue to drain", func() bool { return h.orch.QueueLen() == 0 })

	if got := h.deletes.addedCount(); got != 0 {
		t.Fatalf("failed download must not reach the delete queue, got %d handoffs", got)
	}

	// The next scan rediscovers the file and it downloads normally.
	h.orch.FileFound(discovered("a.mkv"))
	waitFor(t, "retry transfer", func() bool { return h.downloader.startedCount() == 2 })
	h.downloader.gates <- nil
	waitFor(t, "delete handoff", func() bool { return h.deletes.addedCount() == 1 })

	h.recorder.mu.Lock()
	defer h.recorder.mu.Unlock()
	if len(h.recorder.records) != 2 {
		t.Fatalf("expected 2 history records, got %d", len(h.recorder.records))
	}
	if h.recorder.records[0].Status != history.StatusFailed {
		t.Fatalf("first record should be failed, got %s", h.recorder.records[0].Status)
	}
	if h.recorder.records[1].Status != history.StatusCompleted {
		t.Fatalf("second record should be completed, got %s", h.recorder.records[1].Status)
	}
}

func TestDeleteDisabledKeepsRemoteFile(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) {
		cfg.Delete.Enabled = false
	})

	h.orch.FileFound(discovered("a.mkv"))
	waitFor(t, "transfer to start", func() bool { return h.downloader.startedCount() == 1 })
	h.downloader.gates <- nil
	waitFor(t, "queue to drain", func() bool { return h.orch.QueueLen() == 0 })

	if got := h.deletes.addedCount(); got != 0 {
		t.Fatalf("expected no delete handoff with deletion disabled, got %d", got)
	}
	h.notifier.mu.Lock()
	downloads := h.notifier.downloads
	h.notifier.mu.Unlock()
	if downloads != 1 {
		t.Fatalf("expected one download notification, got %d", downloads)
	}
}

func TestDownloadingCountNeverExceedsCap(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) {
		cfg.Sync.MaxConcurrentDownloads = 1
	})

	stop := make(chan struct{})
	var overshoot atomic.Bool
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			if h.orch.Status().Downloading > 1 {
				overshoot.Store(true)
				return
			}
		}
	}()

	const transfers = 8
	for i := 0; i < transfers; i++ {
		h.orch.FileFound(discovered(fmt.Sprintf("file%02d.mkv", i)))
	}
	for i := 0; i < transfers; i++ {
		h.downloader.gates <- nil
	}
	waitFor(t, "queue to drain", func() bool { return h.orch.QueueLen() == 0 })
	close(stop)
	wg.Wait()

	if overshoot.Load() {
		t.Fatalf("observed more than one in-flight download with cap 1")
	}
	if got := h.downloader.startedCount(); got != transfers {
		t.Fatalf("expected %d transfers, got %d", transfers, got)
	}
}

func TestCancelledScanDoesNotNotify(t *testing.T) {
	h := newHarness(t, nil)

	h.deletes.Pause()
	h.orch.ScanComplete(scanner.ErrScanCancelled, nil)

	h.notifier.mu.Lock()
	syncFails, auth := h.notifier.syncFails, h.notifier.auth
	h.notifier.mu.Unlock()
	if syncFails != 0 || auth != 0 {
		t.Fatalf("cancelled scan must not notify, got syncFails=%d auth=%d", syncFails, auth)
	}

	h.deletes.mu.Lock()
	paused := h.deletes.paused
	h.deletes.mu.Unlock()
	if !paused {
		t.Fatalf("cancelled scan must leave the delete queue paused")
	}
	if status := h.orch.Status(); status.LastError != "" {
		t.Fatalf("cancellation is not an error, got %q", status.LastError)
	}
}

func TestCleanScanResumesDeletes(t *testing.T) {
	h := newHarness(t, nil)

	h.deletes.Pause()
	h.orch.ScanComplete(nil, nil)

	h.deletes.mu.Lock()
	paused := h.deletes.paused
	h.deletes.mu.Unlock()
	if paused {
		t.Fatalf("delete queue should resume after a clean scan")
	}

	status := h.orch.Status()
	if status.Scanning || status.LastError != "" {
		t.Fatalf("unexpected status after clean scan: %+v", status)
	}
	if status.LastScan.IsZero() {
		t.Fatalf("last scan time should be recorded")
	}
}
