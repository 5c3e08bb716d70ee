package preview

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/spf13/afero"

	"git.home.luguber.info/inful/sitepress/internal/logfields"
)

type fileState struct {
	size    int64
	modTime time.Time
}

// Poller detects changes by scanning modification times on an interval,
// for filesystems where fsnotify is unavailable.
type Poller struct {
	fs       afero.Fs
	roots    []string
	interval time.Duration
	handle   HandleFunc

	mu        sync.Mutex
	seen      map[string]fileState
	scheduler gocron.Scheduler
}

// NewPoller returns a poller over roots. Call Start to begin polling.
func NewPoller(fsys afero.Fs, roots []string, interval time.Duration, handle HandleFunc) *Poller {
	return &Poller{fs: fsys, roots: roots, interval: interval, handle: handle}
}

// Start records the current state of every root and schedules Scan.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	p.seen = p.snapshot()
	p.mu.Unlock()

	s, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	_, err = s.NewJob(
		gocron.DurationJob(p.interval),
		gocron.NewTask(func() { p.Scan(ctx) }),
		gocron.WithName("preview-poll"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return fmt.Errorf("failed to create poll job: %w", err)
	}
	p.scheduler = s
	s.Start()
	slog.Info("Polling for changes", slog.Duration("interval", p.interval))
	return nil
}

// Stop shuts the scheduler down.
func (p *Poller) Stop() error {
	if p.scheduler == nil {
		return nil
	}
	return p.scheduler.Shutdown()
}

// Scan compares the roots against the previous scan and calls the handler
// once per added, changed or removed file, in path order.
func (p *Poller) Scan(ctx context.Context) {
	p.mu.Lock()
	prev := p.seen
	cur := p.snapshot()
	p.seen = cur
	p.mu.Unlock()

	var changed []string
	for path, st := range cur {
		old, ok := prev[path]
		if !ok || old.size != st.size || !old.modTime.Equal(st.modTime) {
			changed = append(changed, path)
		}
	}
	for path := range prev {
		if _, ok := cur[path]; !ok {
			changed = append(changed, path)
		}
	}
	sort.Strings(changed)
	for _, path := range changed {
		if ctx.Err() != nil {
			return
		}
		p.handle(ctx, path)
	}
}

func (p *Poller) snapshot() map[string]fileState {
	out := map[string]fileState{}
	for _, root := range p.roots {
		info, err := p.fs.Stat(root)
		if err != nil {
			continue
		}
		if !info.IsDir() {
			out[root] = fileState{size: info.Size(), modTime: info.ModTime()}
			continue
		}
		err = afero.Walk(p.fs, root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return nil
			}
			if info.Mode().IsRegular() {
				out[path] = fileState{size: info.Size(), modTime: info.ModTime()}
			}
			return nil
		})
		if err != nil {
			slog.Warn("Poll scan failed", logfields.Path(root), logfields.Error(err))
		}
	}
	return out
}
