package preview

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/sitepress/internal/logfields"
)

// DefaultDebounce is the quiet period before a changed path is handled.
const DefaultDebounce = 300 * time.Millisecond

// HandleFunc receives one settled path change.
type HandleFunc func(ctx context.Context, path string)

// Watcher delivers fsnotify events with a per-path debounce.
type Watcher struct {
	w        *fsnotify.Watcher
	roots    []string
	files    map[string]struct{}
	debounce time.Duration
	handle   HandleFunc

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewWatcher watches every directory below roots. Missing roots are skipped.
func NewWatcher(roots []string, debounce time.Duration, handle HandleFunc) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w := &Watcher{w: fw, debounce: debounce, handle: handle, files: map[string]struct{}{}, timers: map[string]*time.Timer{}}
	for _, root := range roots {
		st, err := os.Stat(root)
		if err != nil {
			continue
		}
		if !st.IsDir() {
			// A single file such as the config is watched through its
			// directory; other entries of that directory are dropped.
			w.files[filepath.Clean(root)] = struct{}{}
			if err := fw.Add(filepath.Dir(root)); err != nil {
				slog.Warn("Watch add failed", logfields.Path(root), logfields.Error(err))
			}
			continue
		}
		w.roots = append(w.roots, root)
		w.addDirsRecursive(root)
	}
	return w, nil
}

// Run processes events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.stopTimers()
			return nil
		case ev, ok := <-w.w.Events:
			if !ok {
				return nil
			}
			w.onEvent(ctx, ev)
		case err, ok := <-w.w.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Watcher error", logfields.Error(err))
		}
	}
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	w.stopTimers()
	return w.w.Close()
}

func (w *Watcher) onEvent(ctx context.Context, ev fsnotify.Event) {
	if ev.Op&fsnotify.Create == fsnotify.Create {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			if w.underRoot(ev.Name) {
				w.addDirsRecursive(ev.Name)
			}
			return
		}
	}
	if ev.Op == fsnotify.Chmod || !w.watched(ev.Name) {
		return
	}
	slog.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
	w.schedule(ctx, ev.Name)
}

func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		w.handle(ctx, path)
	})
}

// watched reports whether path is a watched file or lies below a watched
// directory.
func (w *Watcher) watched(path string) bool {
	if _, ok := w.files[filepath.Clean(path)]; ok {
		return true
	}
	return w.underRoot(path)
}

func (w *Watcher) underRoot(path string) bool {
	for _, root := range w.roots {
		if _, ok := within(root, path); ok {
			return true
		}
	}
	return false
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for p, t := range w.timers {
		t.Stop()
		delete(w.timers, p)
	}
}

func (w *Watcher) addDirsRecursive(root string) {
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if err := w.w.Add(path); err != nil {
				slog.Warn("Watch add failed", logfields.Path(path), logfields.Error(err))
			}
		}
		return nil
	})
}
