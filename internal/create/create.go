// Package create writes new post and page sources.
package create

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"git.home.luguber.info/inful/sitepress/internal/config"
	foundationerrors "git.home.luguber.info/inful/sitepress/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepress/internal/frontmatter"
	"git.home.luguber.info/inful/sitepress/internal/pattern"
	"git.home.luguber.info/inful/sitepress/internal/slug"
)

// ErrFileExists is returned instead of overwriting an existing source.
var ErrFileExists = errors.New("file already exists")

// Options describes a new source.
type Options struct {
	Title string
	// Name is the file name stem; derived from Title when empty.
	Name string
	// Format is the file extension without the dot, "md" by default.
	Format     string
	Date       time.Time
	Categories []string
	Tags       []string
	Draft      bool
	Body       string
	// Extra holds additional header fields.
	Extra map[string]any
}

// Creator writes new sources below the site's base directory.
type Creator struct {
	fs      afero.Fs
	cfg     *config.Config
	slugger slug.Helper
}

// New returns a creator for cfg.
func New(fsys afero.Fs, cfg *config.Config) *Creator {
	return &Creator{fs: fsys, cfg: cfg, slugger: slug.ForLocale(cfg.Locale)}
}

// NewPost writes a post using the new_post pattern and returns its path.
func (c *Creator) NewPost(opts Options) (string, error) {
	return c.create("post", c.cfg.NewPost, opts)
}

// NewPage writes a page using the new_page pattern and returns its path.
func (c *Creator) NewPage(opts Options) (string, error) {
	return c.create("page", c.cfg.NewPage, opts)
}

// Document renders the complete source text for opts.
func (c *Creator) Document(layout string, opts Options) ([]byte, error) {
	opts = c.withDefaults(opts)
	fields := map[string]any{}
	for k, v := range opts.Extra {
		fields[k] = v
	}
	fields["title"] = opts.Title
	fields["date"] = opts.Date
	fields["layout"] = layout
	fields["comments"] = layout == "post"
	fields["published"] = !opts.Draft
	if layout == "post" {
		fields["categories"] = nonNil(opts.Categories)
		fields["tags"] = nonNil(opts.Tags)
	}
	body := opts.Body
	if body != "" && !strings.HasSuffix(body, "\n") {
		body += "\n"
	}
	return frontmatter.Render(fields, body)
}

// Path returns the site-relative path a source would be written to.
func (c *Creator) Path(patternText string, opts Options) (string, error) {
	opts = c.withDefaults(opts)
	name := opts.Name
	if name == "" {
		s, err := c.slugger.Slug(opts.Title)
		if err != nil {
			return "", foundationerrors.WrapError(err, foundationerrors.CategoryValidation, "cannot derive file name from title").
				WithContext("title", opts.Title).
				Build()
		}
		name = s
	}
	params := map[string]any{"name": name, "format": opts.Format, "title": opts.Title}
	pattern.AddDateParams(params, opts.Date)
	rel, err := pattern.Render("new_file", patternText, params)
	if err != nil {
		return "", foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "invalid new file pattern").
			WithContext("pattern", patternText).
			Build()
	}
	return rel, nil
}

func (c *Creator) withDefaults(opts Options) Options {
	if opts.Format == "" {
		opts.Format = "md"
	}
	if opts.Format == "markdown" {
		opts.Format = "md"
	}
	if opts.Date.IsZero() {
		opts.Date = time.Now().Truncate(time.Second)
	}
	return opts
}

func (c *Creator) create(layout, patternText string, opts Options) (string, error) {
	if strings.TrimSpace(opts.Title) == "" {
		return "", foundationerrors.ValidationError("title is required").Build()
	}
	opts = c.withDefaults(opts)
	rel, err := c.Path(patternText, opts)
	if err != nil {
		return "", err
	}
	doc, err := c.Document(layout, opts)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", layout, err)
	}
	return c.write(rel, doc)
}

// write creates baseDir/rel exclusively. rel must stay below baseDir.
func (c *Creator) write(rel string, content []byte) (string, error) {
	cleanRel := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleanRel) || cleanRel == ".." || strings.HasPrefix(cleanRel, ".."+string(filepath.Separator)) {
		return "", foundationerrors.ValidationError("output path must be relative to the site directory").
			WithContext("path", rel).
			Build()
	}
	full := filepath.Join(c.cfg.BaseDir, cleanRel)

	if err := c.fs.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return "", foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "create output directory").Build()
	}
	f, err := c.fs.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", foundationerrors.WrapError(ErrFileExists, foundationerrors.CategoryAlreadyExists, "refusing to overwrite").
				WithContext("path", full).
				Build()
		}
		return "", foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "write output file").Build()
	}
	defer func() { _ = f.Close() }()
	if _, err := f.Write(content); err != nil {
		return "", foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "write output file").Build()
	}
	return full, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
