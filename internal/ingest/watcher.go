// Package ingest watches the analyzer's auto-export directory and
// stores new measurement archives as they land. The instrument writes
// each .zmes file once and never renames it, so a file is ingested when
// its write events have settled past a debounce window; a periodic
// rescan picks up anything the event stream missed (network shares drop
// events). The export directory is treated as read-only: files are
// never moved, renamed, or deleted.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/lumen-data/particle.report/internal/db"
	"github.com/lumen-data/particle.report/internal/dls"
	"github.com/lumen-data/particle.report/internal/fsutil"
	"github.com/lumen-data/particle.report/internal/monitoring"
	"github.com/lumen-data/particle.report/internal/timeutil"
)

// ArchiveExt is the file extension the watcher reacts to.
const ArchiveExt = ".zmes"

// debouncePoll is how often settled events are swept. Kept well under
// any sane debounce window.
const debouncePoll = 100 * time.Millisecond

// Stats tracks watcher activity for the admin surface and tests.
type Stats struct {
	FilesSeen     int       `json:"filesSeen"`
	FilesIngested int       `json:"filesIngested"`
	FilesSkipped  int       `json:"filesSkipped"`
	Errors        int       `json:"errors"`
	LastFile      string    `json:"lastFile,omitempty"`
	LastIngestAt  time.Time `json:"lastIngestAt,omitempty"`
}

// Options configures a Watcher. Zero values get defaults; FS and Clock
// default to the real implementations.
type Options struct {
	Dir             string
	DebounceWindow  time.Duration
	ScanInterval    time.Duration
	MaxArchiveBytes int64
	FS              fsutil.FileSystem
	Clock           timeutil.Clock
}

// Watcher ingests measurement archives from one export directory.
type Watcher struct {
	mu       sync.RWMutex
	db       *db.DB
	fs       fsutil.FileSystem
	clock    timeutil.Clock
	dir      string
	debounce time.Duration
	rescan   time.Duration
	maxBytes int64

	watcher *fsnotify.Watcher

	// pending maps a path to its last write event; entries settle out
	// after the debounce window. seen maps a path to the mod time it
	// was last processed at, so unchanged files are not re-read.
	pending map[string]time.Time
	seen    map[string]time.Time

	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
	stats   Stats
}

// NewWatcher builds a watcher for the given directory. It does not
// touch the filesystem; Start does.
func NewWatcher(database *db.DB, opts Options) (*Watcher, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("ingest: watch directory is required")
	}
	if opts.DebounceWindow <= 0 {
		opts.DebounceWindow = 2 * time.Second
	}
	if opts.ScanInterval <= 0 {
		opts.ScanInterval = 30 * time.Second
	}
	if opts.MaxArchiveBytes <= 0 {
		opts.MaxArchiveBytes = 32 * 1024 * 1024
	}
	if opts.FS == nil {
		opts.FS = fsutil.OSFileSystem{}
	}
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}

	return &Watcher{
		db:       database,
		fs:       opts.FS,
		clock:    opts.Clock,
		dir:      opts.Dir,
		debounce: opts.DebounceWindow,
		rescan:   opts.ScanInterval,
		maxBytes: opts.MaxArchiveBytes,
		pending:  make(map[string]time.Time),
		seen:     make(map[string]time.Time),
	}, nil
}

// Start begins watching. Non-blocking: the event loop runs in its own
// goroutine until Stop or context cancellation. An initial rescan
// catches archives exported while the service was down. A stopped
// watcher may be started again.
func (w *Watcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("ingest: failed to create watcher: %w", err)
	}

	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		fw.Close()
		return nil
	}
	w.running = true
	w.watcher = fw
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	stopCh, doneCh := w.stopCh, w.doneCh
	w.mu.Unlock()

	if err := fw.Add(w.dir); err != nil {
		// The export share may mount after we start; the rescan ticker
		// still covers it.
		monitoring.Logf("ingest: watch failed for %s: %v (rescan will cover)", w.dir, err)
	} else {
		monitoring.Logf("ingest: watching %s", w.dir)
	}

	if n, err := w.Rescan(); err != nil {
		monitoring.Logf("ingest: initial scan of %s failed: %v", w.dir, err)
	} else if n > 0 {
		monitoring.Logf("ingest: initial scan stored %d archive(s)", n)
	}

	go w.run(ctx, fw, stopCh, doneCh)
	return nil
}

// Stop halts the event loop and closes the filesystem watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	stopCh, doneCh := w.stopCh, w.doneCh
	fw := w.watcher
	w.mu.Unlock()

	close(stopCh)
	<-doneCh

	if err := fw.Close(); err != nil {
		monitoring.Logf("ingest: error closing watcher: %v", err)
	}
}

// IsWatching reports whether the event loop is running.
func (w *Watcher) IsWatching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// Stats returns a snapshot of the watcher counters.
func (w *Watcher) Stats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

func (w *Watcher) run(ctx context.Context, fw *fsnotify.Watcher, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	pollTicker := w.clock.NewTicker(debouncePoll)
	defer pollTicker.Stop()
	rescanTicker := w.clock.NewTicker(w.rescan)
	defer rescanTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-stopCh:
			return

		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			monitoring.Logf("ingest: watch error: %v", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-pollTicker.C():
			w.processSettled()

		case <-rescanTicker.C():
			if _, err := w.Rescan(); err != nil {
				monitoring.Logf("ingest: rescan failed: %v", err)
			}
		}
	}
}

// handleEvent queues archive writes for debounced processing.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !strings.HasSuffix(event.Name, ArchiveExt) {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
		return
	}

	w.mu.Lock()
	if _, known := w.pending[event.Name]; !known {
		w.stats.FilesSeen++
	}
	w.pending[event.Name] = w.clock.Now()
	w.mu.Unlock()
}

// processSettled ingests every pending file whose last event is older
// than the debounce window.
func (w *Watcher) processSettled() {
	w.mu.Lock()
	now := w.clock.Now()
	var settled []string
	for path, last := range w.pending {
		if now.Sub(last) >= w.debounce {
			settled = append(settled, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	for _, path := range settled {
		w.IngestFile(path)
	}
}

// Rescan walks the export directory once and ingests every archive not
// already processed. Returns the number of archives stored.
func (w *Watcher) Rescan() (int, error) {
	entries, err := w.fs.ReadDir(w.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	stored := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ArchiveExt) {
			continue
		}
		if w.IngestFile(filepath.Join(w.dir, entry.Name())) {
			stored++
		}
	}
	return stored, nil
}

// IngestFile converts and stores one archive. Returns true when a new
// collection was written. Already-processed, oversized, or unreadable
// files are counted and skipped; a corrupt archive is retried only
// when its mod time changes.
func (w *Watcher) IngestFile(path string) bool {
	info, err := w.fs.Stat(path)
	if err != nil {
		// Deleted between event and processing; nothing to do.
		return false
	}

	w.mu.Lock()
	if prev, ok := w.seen[path]; ok && prev.Equal(info.ModTime()) {
		w.mu.Unlock()
		return false
	}
	w.seen[path] = info.ModTime()
	w.mu.Unlock()

	if info.Size() > w.maxBytes {
		monitoring.Logf("ingest: skipping %s: %d bytes exceeds limit %d", path, info.Size(), w.maxBytes)
		w.bumpSkipped()
		return false
	}

	exists, err := w.db.CollectionExistsForSource(path)
	if err != nil {
		monitoring.Logf("ingest: dedupe check failed for %s: %v", path, err)
		w.bumpErrors()
		return false
	}
	if exists {
		w.bumpSkipped()
		return false
	}

	data, err := w.fs.ReadFile(path)
	if err != nil {
		monitoring.Logf("ingest: failed to read %s: %v", path, err)
		w.bumpErrors()
		return false
	}

	label := strings.TrimSuffix(filepath.Base(path), ArchiveExt)
	a, err := dls.ConvertBytes(data, dls.ConvertOptions{Label: label})
	if err != nil {
		monitoring.Logf("ingest: %s is not a valid archive: %v", path, err)
		w.bumpErrors()
		return false
	}

	if err := w.db.SaveAnalysis(a, path); err != nil {
		monitoring.Logf("ingest: failed to store %s: %v", path, err)
		w.bumpErrors()
		return false
	}

	monitoring.Logf("ingest: stored %s as collection %s (%d spectra)", path, a.ID, a.Len())
	w.mu.Lock()
	w.stats.FilesIngested++
	w.stats.LastFile = path
	w.stats.LastIngestAt = w.clock.Now()
	w.mu.Unlock()
	return true
}

func (w *Watcher) bumpSkipped() {
	w.mu.Lock()
	w.stats.FilesSkipped++
	w.mu.Unlock()
}

func (w *Watcher) bumpErrors() {
	w.mu.Lock()
	w.stats.Errors++
	w.mu.Unlock()
}
