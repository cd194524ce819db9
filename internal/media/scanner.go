package media

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"raw-catalog/internal/logging"
	"raw-catalog/internal/mediatypes"
	"raw-catalog/internal/metrics"

	"github.com/fsnotify/fsnotify"
)

// DefaultWatchDebounce is how long a new file must stay quiet before Watch
// reports it, so that files still being copied are not decoded half-written.
const DefaultWatchDebounce = 2 * time.Second

// Scanner finds RAW files below a root directory.
type Scanner struct {
	root     string
	limit    int
	debounce time.Duration
}

// NewScanner creates a Scanner for root. A positive limit stops the walk
// once that many files have been reported.
func NewScanner(root string, limit int) *Scanner {
	return &Scanner{root: root, limit: limit, debounce: DefaultWatchDebounce}
}

// SetWatchDebounce changes how long Watch waits for a file to settle.
func (s *Scanner) SetWatchDebounce(d time.Duration) {
	if d > 0 {
		s.debounce = d
	}
}

// Root returns the scanned directory.
func (s *Scanner) Root() string {
	return s.root
}

// Walk calls fn for every RAW file below the root, in lexical order.
// Dot-prefixed directories are walked like any other. Unreadable
// subdirectories are logged and skipped. Walking stops early when the limit is reached, when ctx is
// cancelled, or when fn returns an error (which Walk returns). It returns
// the number of files reported.
func (s *Scanner) Walk(ctx context.Context, fn func(path string) error) (int, error) {
	start := time.Now()
	defer func() {
		metrics.ScannerWalkDuration.Observe(time.Since(start).Seconds())
	}()

	found := 0
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == s.root {
				return err
			}
			logging.Warn("Skipping unreadable path %s: %v", path, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}

		if !mediatypes.IsRawFile(d.Name()) {
			return nil
		}

		found++
		metrics.ScannerFilesFound.Inc()
		if err := fn(path); err != nil {
			return err
		}

		if s.limit > 0 && found >= s.limit {
			return fs.SkipAll
		}
		return nil
	})

	return found, err
}

// Collect returns every RAW file Walk would report.
func (s *Scanner) Collect(ctx context.Context) ([]string, error) {
	var paths []string
	_, err := s.Walk(ctx, func(path string) error {
		paths = append(paths, path)
		return nil
	})
	return paths, err
}

// Watch monitors the tree with fsnotify and calls fn for each RAW file that
// appears after the watch starts, once it has been quiet for the debounce
// interval. New subdirectories are watched as they appear and any RAW files
// already inside them are reported. Watch blocks until ctx is cancelled.
func (s *Scanner) Watch(ctx context.Context, fn func(path string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		metrics.ScannerWatcherErrors.Inc()
		return err
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			logging.Error("failed to close file watcher: %v", err)
		}
	}()

	watchCount := s.addDirectories(watcher, s.root)
	metrics.ScannerWatchedDirectories.Set(float64(watchCount))
	logging.Info("Watching %d directories under %s", watchCount, s.root)

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(s.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			s.handleEvent(watcher, event, pending)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Error("Watcher error: %v", err)
			metrics.ScannerWatcherErrors.Inc()

		case now := <-ticker.C:
			for path, last := range pending {
				if now.Sub(last) >= s.debounce {
					delete(pending, path)
					fn(path)
				}
			}
		}
	}
}

// addDirectories adds dir and every directory below it to the watcher and returns how many were added.
func (s *Scanner) addDirectories(watcher *fsnotify.Watcher, dir string) int {
	count := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if addErr := watcher.Add(path); addErr != nil {
			logging.Warn("failed to add path to watcher %s: %v", path, addErr)
			metrics.ScannerWatcherErrors.Inc()
			return nil
		}
		count++
		return nil
	})
	if err != nil {
		logging.Error("failed to walk %s for watcher: %v", dir, err)
		metrics.ScannerWatcherErrors.Inc()
	}
	return count
}

func (s *Scanner) handleEvent(watcher *fsnotify.Watcher, event fsnotify.Event, pending map[string]time.Time) {
	metrics.ScannerWatcherEventsTotal.WithLabelValues(eventType(event.Op)).Inc()

	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logging.Debug("stat %s: %v", event.Name, err)
		}
		return
	}

	if info.IsDir() {
		if event.Has(fsnotify.Create) {
			added := s.addDirectories(watcher, event.Name)
			metrics.ScannerWatchedDirectories.Add(float64(added))
			logging.Debug("Watching new directory %s", event.Name)
			sub := NewScanner(event.Name, 0)
			_, _ = sub.Walk(context.Background(), func(path string) error {
				pending[path] = time.Now()
				return nil
			})
		}
		return
	}

	if mediatypes.IsRawFile(event.Name) {
		pending[event.Name] = time.Now()
	}
}

func eventType(op fsnotify.Op) string {
	switch {
	case op.Has(fsnotify.Create):
		return "create"
	case op.Has(fsnotify.Write):
		return "write"
	case op.Has(fsnotify.Remove):
		return "remove"
	case op.Has(fsnotify.Rename):
		return "rename"
	case op.Has(fsnotify.Chmod):
		return "chmod"
	default:
		return "unknown"
	}
}
