package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"downspout/internal/config"
	"downspout/internal/files"
	"downspout/internal/logging"
	"downspout/internal/remote"
)

var (
	// ErrScanInProgress is returned when Start is called on a session that is
	// already scanning. Calling code must treat this as a programming error.
	ErrScanInProgress = errors.New("scan already in progress")

	// ErrSessionUsed is returned when Start is called on a finished session.
	// Sessions are single-use; construct a new one per scan.
	ErrSessionUsed = errors.New("scan session already used")

	// ErrScanCancelled reports cooperative cancellation of a scan.
	ErrScanCancelled = errors.New("scan cancelled")

	// ErrScanTimeout reports a watchdog-triggered cancellation.
	ErrScanTimeout = errors.New("scan watchdog timeout")
)

// Sink receives scan events. FileFound fires once per discovered file in
// newest-first order; ScanComplete fires exactly once per session.
type Sink interface {
	FileFound(file *files.DiscoveredFile)
	ScanComplete(err error, found []*files.DiscoveredFile)
}

// Session owns one scan: the recursive listing, flattening, sequential
// symlink resolution, and the watchdog. A session is single-use and never
// reset; construct a fresh one for every scan.
type Session struct {
	id                string
	root              string
	depth             int
	includePlainFiles bool
	timeout           time.Duration
	dialer            remote.Dialer
	logger            *slog.Logger

	mu        sync.Mutex
	scanning  bool
	cancelled bool
	done      bool
	sink      Sink
	cancelCtx context.CancelFunc
	watchdog  *time.Timer
	startedAt time.Time
}

// New constructs a session bound to the given sink.
func New(cfg *config.Config, dialer remote.Dialer, sink Sink, logger *slog.Logger) *Session {
	id := uuid.NewString()
	return &Session{
		id:                id,
		root:              strings.TrimSuffix(cfg.Paths.RemoteRoot, "/"),
		depth:             cfg.Sync.ScanDepth,
		includePlainFiles: cfg.Sync.IncludePlainFiles,
		timeout:           time.Duration(cfg.Sync.ScanTimeout) * time.Second,
		dialer:            dialer,
		sink:              sink,
		logger:            logging.WithComponent(logger, "scanner").With(logging.String("scan_id", id)),
	}
}

// ID returns the session identifier carried in its log attributes.
func (s *Session) ID() string {
	return s.id
}

// Active reports whether the scan is still running.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scanning
}

// Start begins the scan. It fails loudly when the session is already
// scanning or has already finished. The scan proceeds asynchronously;
// results arrive through the sink.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.scanning {
		s.mu.Unlock()
		return ErrScanInProgress
	}
	if s.done {
		s.mu.Unlock()
		return ErrSessionUsed
	}
	s.scanning = true
	s.startedAt = time.Now()

	scanCtx, cancel := context.WithCancel(ctx)
	s.cancelCtx = cancel
	s.watchdog = time.AfterFunc(s.timeout, s.onWatchdog)
	s.mu.Unlock()

	s.logger.Info("scan started",
		logging.String("root", s.root),
		logging.Duration("timeout", s.timeout),
	)
	go s.run(scanCtx)
	return nil
}

// Cancel cooperatively cancels the scan. Idempotent; the completion callback
// fires at most once, with ErrScanCancelled when this call wins.
func (s *Session) Cancel() {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	s.cancelled = true
	s.mu.Unlock()
	s.complete(ErrScanCancelled, nil)
}

func (s *Session) onWatchdog() {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	s.cancelled = true
	s.mu.Unlock()
	s.logger.Warn("scan exceeded watchdog deadline", logging.Duration("timeout", s.timeout))
	s.complete(fmt.Errorf("%w after %s", ErrScanTimeout, s.timeout), nil)
}

func (s *Session) run(ctx context.Context) {
	client, err := s.dialer.Dial(ctx)
	if err != nil {
		s.complete(fmt.Errorf("connect for scan: %w", err), nil)
		return
	}
	// The listing connection is exclusively owned by this scan and never
	// reused; teardown destroys it on every path.
	defer func() { _ = client.Destroy() }()

	entries, err := client.List(ctx, s.root)
	if err != nil {
		if s.isCancelled() {
			return
		}
		s.complete(fmt.Errorf("list %s: %w", s.root, err), nil)
		return
	}

	candidates := Flatten(entries, s.root, s.depth, s.includePlainFiles, s.logger)
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].ModTime.After(candidates[j].ModTime)
	})

	found := make([]*files.DiscoveredFile, 0, len(candidates))
	for _, candidate := range candidates {
		// Serialized on purpose: the remote connection budget does not allow
		// parallel resolution requests.
		if s.isCancelled() || ctx.Err() != nil {
			return
		}
		file := candidate.File
		if file.IsSymlink {
			if err := s.resolveTarget(ctx, client, file); err != nil {
				if s.isCancelled() {
					return
				}
				s.complete(err, nil)
				return
			}
		}
		if s.isCancelled() {
			return
		}
		found = append(found, file)
		s.emit(file)
	}

	s.logger.Info("scan finished",
		logging.Int("files", len(found)),
		logging.Duration("elapsed", time.Since(s.startedAt)),
	)
	s.complete(nil, found)
}

func (s *Session) resolveTarget(ctx context.Context, client remote.Client, file *files.DiscoveredFile) error {
	path := file.RemotePath()
	results, err := client.Stat(ctx, path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	if len(results) != 1 {
		return fmt.Errorf("resolve %s: expected exactly one listing entry, got %d", path, len(results))
	}
	file.Target = &files.TargetInfo{
		Size:    results[0].Size,
		ModTime: results[0].ModTime,
	}
	return nil
}

func (s *Session) emit(file *files.DiscoveredFile) {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	sink := s.sink
	s.mu.Unlock()
	if sink != nil {
		sink.FileFound(file)
	}
}

// complete tears the session down and fires the completion callback exactly
// once: the watchdog is disarmed, the context cancelled, and the sink
// replaced so no late event can reach a stale consumer.
func (s *Session) complete(err error, found []*files.DiscoveredFile) {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	s.done = true
	s.scanning = false
	sink := s.sink
	s.sink = nil
	if s.watchdog != nil {
		s.watchdog.Stop()
		s.watchdog = nil
	}
	cancel := s.cancelCtx
	s.cancelCtx = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if err != nil {
		s.logger.Warn("scan ended with error", logging.Error(err))
	}
	if sink != nil {
		sink.ScanComplete(err, found)
	}
}

func (s *Session) isCancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}
