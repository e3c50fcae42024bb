package corpus

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/docqa-cli/internal/logger"
)

// DefaultDebounce is how long the filesystem must stay quiet before a
// change batch is delivered.
const DefaultDebounce = 500 * time.Millisecond

// Watcher emits debounced batches of changed corpus paths. Hidden
// files and directories are ignored; directories created under a
// watched root are picked up automatically.
type Watcher struct {
	debounce time.Duration
}

// NewWatcher creates a watcher. A non-positive debounce falls back to
// DefaultDebounce.
func NewWatcher(debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{debounce: debounce}
}

// Watch streams batches of changed paths under the given files and
// directories. A batch is delivered once the filesystem has been quiet
// for the debounce interval. The channel closes when ctx is cancelled.
func (w *Watcher) Watch(ctx context.Context, paths []string) (<-chan []string, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	for _, path := range paths {
		if err := addRecursive(fsw, path); err != nil {
			fsw.Close()
			return nil, err
		}
	}

	changes := make(chan []string)
	go w.run(ctx, fsw, changes)
	return changes, nil
}

// addRecursive registers a path with the watcher, descending into
// non-hidden subdirectories.
func addRecursive(fsw *fsnotify.Watcher, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	if !info.IsDir() {
		return fsw.Add(path)
	}

	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != path && isHidden(d.Name()) {
			return fs.SkipDir
		}
		return fsw.Add(p)
	})
}

// run is the event loop: collect events, deliver a deduplicated batch
// once the debounce timer fires.
func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher, changes chan<- []string) {
	defer close(changes)
	defer fsw.Close()

	var (
		pending []string
		timer   *time.Timer
		fire    <-chan time.Time
	)

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if isHidden(filepath.Base(ev.Name)) {
				continue
			}
			if !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Write) &&
				!ev.Op.Has(fsnotify.Remove) && !ev.Op.Has(fsnotify.Rename) {
				continue
			}
			if ev.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					// New directories need their own watch.
					if err := fsw.Add(ev.Name); err != nil {
						logger.Warn("Watch %s: %v", ev.Name, err)
					}
				}
			}

			pending = append(pending, ev.Name)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				fire = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case <-fire:
			batch := dedupePaths(pending)
			pending = nil
			timer = nil
			fire = nil
			select {
			case changes <- batch:
			case <-ctx.Done():
				return
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("Watch error: %v", err)
		}
	}
}

// dedupePaths removes duplicates, preserving first-seen order.
func dedupePaths(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
