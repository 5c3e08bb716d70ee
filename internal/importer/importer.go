// Package importer turns RSS, Atom and WordPress export feeds into posts.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"
	"github.com/spf13/afero"

	"git.home.luguber.info/inful/sitepress/internal/config"
	"git.home.luguber.info/inful/sitepress/internal/create"
	foundationerrors "git.home.luguber.info/inful/sitepress/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepress/internal/frontmatter"
	"git.home.luguber.info/inful/sitepress/internal/logfields"
	"git.home.luguber.info/inful/sitepress/internal/source"
)

// Options controls an import run.
type Options struct {
	// Limit caps the number of items read from the feed; 0 means all.
	Limit int
	Draft bool
}

// Result lists the files written and the items skipped as duplicates.
type Result struct {
	Imported []string
	Skipped  []string
}

// Importer writes one post per feed item, skipping items whose content
// fingerprint matches an existing source.
type Importer struct {
	fs      afero.Fs
	cfg     *config.Config
	creator *create.Creator
	client  *http.Client
}

// New returns an importer for cfg.
func New(fsys afero.Fs, cfg *config.Config) *Importer {
	return &Importer{
		fs:      fsys,
		cfg:     cfg,
		creator: create.New(fsys, cfg),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Import reads the feed at location, a file path or an http(s) URL.
func (im *Importer) Import(ctx context.Context, location string, opts Options) (*Result, error) {
	feed, err := im.load(ctx, location)
	if err != nil {
		return nil, err
	}
	known, err := im.existingFingerprints(ctx)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for i, item := range feed.Items {
		if opts.Limit > 0 && i >= opts.Limit {
			break
		}
		postOpts := itemOptions(item, opts.Draft)
		fp, err := im.fingerprint(postOpts)
		if err != nil {
			return nil, err
		}
		if _, dup := known[fp]; dup {
			slog.Debug("Skipping imported item", slog.String("title", postOpts.Title), logfields.Outcome("duplicate"))
			res.Skipped = append(res.Skipped, postOpts.Title)
			continue
		}
		path, err := im.creator.NewPost(postOpts)
		if errors.Is(err, create.ErrFileExists) {
			res.Skipped = append(res.Skipped, postOpts.Title)
			continue
		}
		if err != nil {
			return nil, err
		}
		known[fp] = struct{}{}
		res.Imported = append(res.Imported, path)
		slog.Info("Imported post", logfields.Path(path))
	}
	return res, nil
}

func (im *Importer) load(ctx context.Context, location string) (*gofeed.Feed, error) {
	var r io.ReadCloser
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
		if err != nil {
			return nil, foundationerrors.WrapError(err, foundationerrors.CategoryValidation, "invalid feed URL").Build()
		}
		resp, err := im.client.Do(req)
		if err != nil {
			return nil, foundationerrors.WrapError(err, foundationerrors.CategoryNetwork, "failed to fetch feed").
				WithContext("url", location).
				Retryable().
				Build()
		}
		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			return nil, foundationerrors.NetworkError(fmt.Sprintf("feed request returned %d", resp.StatusCode)).
				WithContext("url", location).
				Build()
		}
		r = resp.Body
	} else {
		f, err := im.fs.Open(location)
		if err != nil {
			return nil, foundationerrors.WrapError(err, foundationerrors.CategoryNotFound, "cannot open feed").
				WithContext("path", location).
				Build()
		}
		r = f
	}
	defer func() { _ = r.Close() }()

	feed, err := gofeed.NewParser().Parse(r)
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryValidation, "cannot parse feed").
			WithContext("location", location).
			Build()
	}
	return feed, nil
}

func itemOptions(it *gofeed.Item, draft bool) create.Options {
	body := it.Content
	if strings.TrimSpace(body) == "" {
		body = it.Description
	}
	extra := map[string]any{"uid": uuid.NewString()}
	if it.Link != "" {
		extra["source_url"] = strings.TrimSpace(it.Link)
	}
	if it.Author != nil && it.Author.Name != "" {
		extra["author"] = it.Author.Name
	}
	return create.Options{
		Title:      strings.TrimSpace(it.Title),
		Format:     "html",
		Date:       pickTime(it.PublishedParsed, it.UpdatedParsed),
		Categories: it.Categories,
		Draft:      draft,
		Body:       strings.TrimSpace(body),
		Extra:      extra,
	}
}

func pickTime(a, b *time.Time) time.Time {
	if a != nil {
		return *a
	}
	if b != nil {
		return *b
	}
	return time.Time{}
}

// fingerprint hashes the document the creator would write, parsed back the
// way the source parser reads it.
func (im *Importer) fingerprint(opts create.Options) (string, error) {
	doc, err := im.creator.Document("post", opts)
	if err != nil {
		return "", err
	}
	header, body, _, err := frontmatter.Split(doc)
	if err != nil {
		return "", err
	}
	meta, err := frontmatter.ParseYAML(header)
	if err != nil {
		return "", err
	}
	return source.FingerprintParts(meta, string(body))
}

func (im *Importer) existingFingerprints(ctx context.Context) (map[string]struct{}, error) {
	known := map[string]struct{}{}
	parser := source.NewFileParser(im.fs)
	walker := source.NewWalker(im.fs, source.Filter{Includes: im.cfg.Includes, Excludes: im.cfg.Excludes})
	for _, dir := range im.cfg.SourcePaths() {
		exists, err := afero.DirExists(im.fs, dir)
		if err != nil || !exists {
			continue
		}
		err = walker.Walk(dir, func(e *source.Entry) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			src, err := parser.Parse(e)
			if errors.Is(err, source.ErrNotAContentSource) {
				return nil
			}
			if err != nil {
				slog.Warn("Skipping unreadable source", logfields.Path(e.AbsPath), logfields.Error(err))
				return nil
			}
			fp, err := source.Fingerprint(src)
			if err != nil {
				return err
			}
			known[fp] = struct{}{}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return known, nil
}
