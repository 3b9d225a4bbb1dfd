// Package watchdog implements the Filesystem Watchdog (§4.G): it watches
// the music library root for changes and triggers a debounced reconcile
// callback, falling back to periodic polling when fsnotify can't be set up
// (missing kernel support, too many files, etc).
//
// Grounded on fsnotify's recursive-watch-plus-debounce idiom in
// other_examples/d41ba7e0_Aunali321-korus__internal-services-scanner.go.go's
// ScannerService.Watch, adapted from a single fixed debounce+trigger loop
// into one that also degrades to an mtime/size poll per spec §4.G.
package watchdog

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// Debounce is the minimum quiet period after the last filesystem event
// before a reconcile fires.
const Debounce = time.Second

// PollInterval is how often the fallback poller re-stats the tree when
// fsnotify is unavailable.
const PollInterval = 30 * time.Second

// Watchdog watches one root directory and calls Reconcile after a batch of
// changes settles.
type Watchdog struct {
	root      string
	reconcile func()
	logger    *log.Logger
}

// New creates a watchdog over root. reconcile is called (never
// concurrently) whenever a change is detected and the debounce period has
// elapsed.
func New(root string, reconcile func(), logger *log.Logger) *Watchdog {
	return &Watchdog{root: root, reconcile: reconcile, logger: logger}
}

// Run blocks until ctx is cancelled, using fsnotify when available and
// falling back to polling otherwise. It never returns an error: a failure
// to start fsnotify is logged and treated as "use the poll fallback".
func (w *Watchdog) Run(ctx context.Context) {
	if err := w.runNotify(ctx); err != nil {
		if w.logger != nil {
			w.logger.Warn("fsnotify unavailable, falling back to polling", "err", err, "root", w.root)
		}
		w.runPoll(ctx)
	}
}

func (w *Watchdog) runNotify(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	err = filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != w.root {
				return fs.SkipDir
			}
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	debounce := time.NewTimer(Debounce)
	if !debounce.Stop() {
		<-debounce.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if strings.Contains(ev.Name, string(filepath.Separator)+".") {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				debounce.Reset(Debounce)
				if ev.Op&fsnotify.Create != 0 {
					if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
						_ = watcher.Add(ev.Name)
					}
				}
			}
		case <-debounce.C:
			w.reconcile()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if w.logger != nil {
				w.logger.Warn("watcher error", "err", err)
			}
		}
	}
}

// runPoll periodically snapshots file mtimes and sizes under root and
// triggers a reconcile whenever that snapshot changes from the previous
// poll, per §4.G's fallback path.
func (w *Watchdog) runPoll(ctx context.Context) {
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	prev := w.snapshot()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cur := w.snapshot()
			if !equalSnapshots(prev, cur) {
				prev = cur
				w.reconcile()
			}
		}
	}
}

type fileStat struct {
	size    int64
	modTime time.Time
}

func (w *Watchdog) snapshot() map[string]fileStat {
	out := make(map[string]fileStat)
	_ = filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		out[path] = fileStat{size: info.Size(), modTime: info.ModTime()}
		return nil
	})
	return out
}

func equalSnapshots(a, b map[string]fileStat) bool {
	if len(a) != len(b) {
		return false
	}
	for path, sa := range a {
		sb, ok := b[path]
		if !ok || sa != sb {
			return false
		}
	}
	return true
}
