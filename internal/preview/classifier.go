// Package preview keeps the output of a running preview up to date. File
// events from the watcher or poller are classified into the cheapest action
// that brings the output back in sync.
package preview

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/afero"

	"git.home.luguber.info/inful/sitepress/internal/config"
	"git.home.luguber.info/inful/sitepress/internal/logfields"
	"git.home.luguber.info/inful/sitepress/internal/metrics"
	"git.home.luguber.info/inful/sitepress/internal/source"
)

// State is the classifier's lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateClassifying
	StateRebuilding
)

func (s State) String() string {
	switch s {
	case StateClassifying:
		return "classifying"
	case StateRebuilding:
		return "rebuilding"
	default:
		return "idle"
	}
}

// Action is the work a file change requires.
type Action int

const (
	ActionNone Action = iota
	ActionReloadConfig
	ActionRebuild
	ActionCopyStatic
	ActionBuildStyles
)

func (a Action) String() string {
	switch a {
	case ActionReloadConfig:
		return "reload_config"
	case ActionRebuild:
		return "rebuild"
	case ActionCopyStatic:
		return "copy_static"
	case ActionBuildStyles:
		return "build_styles"
	default:
		return "none"
	}
}

// Target carries out classified actions.
type Target interface {
	ReloadConfig(ctx context.Context) error
	Rebuild(ctx context.Context) error
	// CopyStatic copies path to the output, or removes its output copy when
	// path no longer exists.
	CopyStatic(ctx context.Context, path string) error
	BuildStyles(ctx context.Context) error
}

// StyleOwner reports whether a path is a stylesheet input.
type StyleOwner interface {
	Owns(path string) bool
}

// Status is a snapshot of the classifier's recent activity.
type Status struct {
	State      string    `json:"state"`
	LastPath   string    `json:"last_path,omitempty"`
	LastAction string    `json:"last_action,omitempty"`
	LastError  string    `json:"last_error,omitempty"`
	LastAt     time.Time `json:"last_at,omitempty"`
	Handled    int       `json:"handled"`
	Dropped    int       `json:"dropped"`
	Failed     int       `json:"failed"`
}

// Classifier maps changed paths to actions and runs them one at a time.
// Events arriving while an action is in progress are dropped.
type Classifier struct {
	fs       afero.Fs
	parser   source.Parser
	target   Target
	recorder metrics.Recorder
	state    atomic.Int32

	mu     sync.Mutex
	cfg    *config.Config
	styles StyleOwner
	status Status
}

// NewClassifier returns an idle classifier for cfg.
func NewClassifier(fsys afero.Fs, cfg *config.Config, styles StyleOwner, target Target, recorder metrics.Recorder) *Classifier {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Classifier{
		fs:       fsys,
		parser:   source.NewFileParser(fsys),
		target:   target,
		recorder: recorder,
		cfg:      cfg,
		styles:   styles,
	}
}

// SetConfig swaps the configuration used for classification.
func (c *Classifier) SetConfig(cfg *config.Config, styles StyleOwner) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg
	c.styles = styles
}

// State returns the current state.
func (c *Classifier) State() State { return State(c.state.Load()) }

// Status returns a snapshot of the recent activity.
func (c *Classifier) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.status
	st.State = c.State().String()
	return st
}

// Handle classifies path and runs the resulting action. It returns the
// action taken; ActionNone when the event was ignored or dropped. Action
// errors are logged and recorded in the status, never returned.
func (c *Classifier) Handle(ctx context.Context, path string) Action {
	if !c.state.CompareAndSwap(int32(StateIdle), int32(StateClassifying)) {
		slog.Debug("Classifier busy, dropping event", logfields.Path(path), slog.String("state", c.State().String()))
		c.mu.Lock()
		c.status.Dropped++
		c.mu.Unlock()
		return ActionNone
	}
	defer c.state.Store(int32(StateIdle))

	action := c.Classify(path)
	if action == ActionNone {
		return ActionNone
	}

	c.state.Store(int32(StateRebuilding))
	slog.Info("Preview change", logfields.Path(path), logfields.Action(action.String()))
	c.recorder.IncPreviewAction(action.String())
	err := c.run(ctx, action, path)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.status.Handled++
	c.status.LastPath = path
	c.status.LastAction = action.String()
	c.status.LastAt = time.Now()
	c.status.LastError = ""
	if err != nil {
		slog.Error("Preview action failed", logfields.Path(path), logfields.Action(action.String()), logfields.Error(err))
		c.status.Failed++
		c.status.LastError = err.Error()
	}
	return action
}

func (c *Classifier) run(ctx context.Context, action Action, path string) error {
	switch action {
	case ActionReloadConfig:
		return c.target.ReloadConfig(ctx)
	case ActionRebuild:
		return c.target.Rebuild(ctx)
	case ActionCopyStatic:
		return c.target.CopyStatic(ctx, path)
	case ActionBuildStyles:
		return c.target.BuildStyles(ctx)
	default:
		return nil
	}
}

// Classify decides the action for path without running it. Checks run in a
// fixed order: config file, template dir, asset dirs, source dirs, styles.
func (c *Classifier) Classify(path string) Action {
	c.mu.Lock()
	cfg, styles := c.cfg, c.styles
	c.mu.Unlock()

	path = filepath.Clean(path)
	if cfg.File != "" && path == filepath.Clean(cfg.File) {
		return ActionReloadConfig
	}
	if ignoredName(filepath.Base(path)) {
		return ActionNone
	}
	filter := source.Filter{Includes: cfg.Includes, Excludes: cfg.Excludes}

	if _, ok := within(cfg.TemplatePath(), path); ok {
		return ActionRebuild
	}
	for _, dir := range cfg.AssetPaths() {
		if rel, ok := within(dir, path); ok {
			if !accepted(filter, rel) {
				return ActionNone
			}
			return ActionCopyStatic
		}
	}
	for _, dir := range cfg.SourcePaths() {
		if rel, ok := within(dir, path); ok {
			if !accepted(filter, rel) {
				return ActionNone
			}
			return c.classifySource(cfg, dir, rel)
		}
	}
	if styles != nil && styles.Owns(path) {
		return ActionBuildStyles
	}
	slog.Warn("Change outside of any site directory ignored", logfields.Path(path))
	return ActionNone
}

func (c *Classifier) classifySource(cfg *config.Config, root, rel string) Action {
	info, err := c.fs.Stat(filepath.Join(root, rel))
	if errors.Is(err, os.ErrNotExist) {
		return ActionRebuild
	}
	if err != nil || info.IsDir() {
		return ActionNone
	}
	entry, err := source.NewEntry(c.fs, root, rel, nil)
	if err != nil {
		return ActionRebuild
	}
	src, err := c.parser.Parse(entry)
	switch {
	case errors.Is(err, source.ErrNotAContentSource):
		return ActionCopyStatic
	case err != nil:
		// The build reports the parse error.
		return ActionRebuild
	}
	if !src.Meta().Bool("published", true) && !cfg.ShowDrafts {
		slog.Debug("Draft changed while drafts are hidden", logfields.Path(entry.AbsPath))
		return ActionNone
	}
	return ActionRebuild
}

// within returns path relative to dir when path lies below dir.
func within(dir, path string) (string, bool) {
	if dir == "" {
		return "", false
	}
	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}

// accepted applies the walk filter to every segment of rel.
func accepted(f source.Filter, rel string) bool {
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if !f.Accept(part) {
			return false
		}
	}
	return true
}

// ignoredName reports editor swap files and OS metadata files.
func ignoredName(base string) bool {
	switch {
	case strings.HasSuffix(base, ".swp"), strings.HasSuffix(base, ".swx"):
		return true
	case strings.HasPrefix(base, ".#"):
		return true
	case base == ".DS_Store", base == "Thumbs.db":
		return true
	}
	return false
}
