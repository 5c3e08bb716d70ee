// Package render renders pages through html/template layouts loaded from the
// site's template directory.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"maps"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"

	foundationerrors "git.home.luguber.info/inful/sitepress/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepress/internal/site"
	"git.home.luguber.info/inful/sitepress/internal/slug"
)

// Renderer executes named templates against a model.
type Renderer interface {
	Render(name string, model map[string]any) (string, error)
	Prepare() error
}

// TemplateRenderer loads every *.html file below a directory into one
// template set. Templates are named by their slash-separated relative path,
// e.g. "post.html" or "partials/header.html".
type TemplateRenderer struct {
	fs     afero.Fs
	dir    string
	funcs  template.FuncMap
	mu     sync.RWMutex
	tmpl   *template.Template
	loaded int
}

// Options configures the template helpers.
type Options struct {
	// Root is the path prefix the site is served under.
	Root string
	// BaseURL is the absolute site URL.
	BaseURL    string
	DateFormat string
	Locale     string
}

// NewTemplateRenderer returns a renderer over dir on fsys. Call Prepare before
// rendering.
func NewTemplateRenderer(fsys afero.Fs, dir string, opts Options) *TemplateRenderer {
	return &TemplateRenderer{fs: fsys, dir: dir, funcs: funcMap(opts)}
}

func funcMap(opts Options) template.FuncMap {
	root := strings.TrimSuffix(opts.Root, "/")
	return template.FuncMap{
		"safeHTML": func(s string) template.HTML { return template.HTML(s) }, // #nosec G203 -- converted page content
		"relURL": func(u string) string {
			if strings.HasPrefix(u, "/") {
				return root + u
			}
			return u
		},
		"absURL": func(u string) string {
			return strings.TrimSuffix(opts.BaseURL, "/") + root + "/" + strings.TrimPrefix(u, "/")
		},
		"date": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format(opts.DateFormat)
		},
		"dateFormat": func(layout string, t time.Time) string { return t.Format(layout) },
		"title":      func(s string) string { return slug.Title(opts.Locale, s) },
		"lower":      strings.ToLower,
		"join":       strings.Join,
	}
}

// Prepare (re)loads all templates. A failed load keeps the previous set.
func (r *TemplateRenderer) Prepare() error {
	set := template.New("").Funcs(r.funcs)
	count := 0
	exists, err := afero.DirExists(r.fs, r.dir)
	if err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "cannot access template directory").
			WithContext("path", r.dir).
			Build()
	}
	if exists {
		err = afero.Walk(r.fs, r.dir, func(path string, info fs.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() || !strings.HasSuffix(info.Name(), ".html") {
				return nil
			}
			rel, err := filepath.Rel(r.dir, path)
			if err != nil {
				return err
			}
			data, err := afero.ReadFile(r.fs, path)
			if err != nil {
				return err
			}
			if _, err := set.New(filepath.ToSlash(rel)).Parse(string(data)); err != nil {
				return foundationerrors.WrapError(err, foundationerrors.CategoryTemplate, "cannot parse template").
					WithContext("template", filepath.ToSlash(rel)).
					Build()
			}
			count++
			return nil
		})
		if err != nil {
			if _, ok := foundationerrors.AsClassified(err); ok {
				return err
			}
			return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "cannot load templates").
				WithContext("path", r.dir).
				Build()
		}
	}

	r.mu.Lock()
	r.tmpl = set
	r.loaded = count
	r.mu.Unlock()
	return nil
}

// Len returns the number of loaded templates.
func (r *TemplateRenderer) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}

// Has reports whether a template with the given name is loaded.
func (r *TemplateRenderer) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tmpl != nil && r.tmpl.Lookup(name) != nil
}

func (r *TemplateRenderer) Render(name string, model map[string]any) (string, error) {
	r.mu.RLock()
	set := r.tmpl
	r.mu.RUnlock()
	if set == nil {
		return "", foundationerrors.InternalError("renderer used before Prepare").Build()
	}
	t := set.Lookup(name)
	if t == nil {
		return "", foundationerrors.TemplateError("template not found").
			WithContext("template", name).
			Build()
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, model); err != nil {
		return "", foundationerrors.WrapError(err, foundationerrors.CategoryTemplate, "cannot render template").
			WithContext("template", name).
			Build()
	}
	return buf.String(), nil
}

// PageModel merges the site model with the page model. Page content is marked
// as trusted HTML; it was produced by a converter.
func PageModel(siteModel map[string]any, p *site.Page) map[string]any {
	m := maps.Clone(siteModel)
	if m == nil {
		m = map[string]any{}
	}
	page := p.Model()
	page["content"] = template.HTML(p.Content) // #nosec G203 -- converter output
	if suffix, ok := p.Get("title_suffix").(string); ok {
		page["full_title"] = p.Title + suffix
	} else {
		page["full_title"] = p.Title
	}
	m["page"] = page
	m["content"] = page["content"]
	return m
}

// RenderPage renders p with its template. Pages without a template keep their
// converted content as output.
func RenderPage(r Renderer, siteModel map[string]any, p *site.Page) (string, error) {
	if p.Template == "" {
		return p.Content, nil
	}
	out, err := r.Render(p.Template, PageModel(siteModel, p))
	if err != nil {
		return "", fmt.Errorf("render %s: %w", p.URL, err)
	}
	return out, nil
}
