package site

import (
	"fmt"
	"maps"
	"path"
	"regexp"
	"strings"
	"time"

	foundationerrors "git.home.luguber.info/inful/sitepress/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepress/internal/pattern"
	"git.home.luguber.info/inful/sitepress/internal/source"
)

// Kind distinguishes content units.
type Kind int

const (
	KindPage Kind = iota
	KindPost
	// KindGenerated marks pages created by generators or pagination.
	KindGenerated
)

func (k Kind) String() string {
	switch k {
	case KindPost:
		return "post"
	case KindGenerated:
		return "generated"
	default:
		return "page"
	}
}

// DraftTitlePrefix is prepended to the titles of unpublished pages.
const DraftTitlePrefix = "[Draft] "

// postFilePattern matches "YYYY-MM-DD-name" base names.
var postFilePattern = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})-(.+)$`)

// Page is one content unit: a page, a post or a generated listing.
//
// The read stage fills identity fields. Content is replaced by the convert
// stage and then by the render stage; URL and Pager are only assigned by the
// read, generate and pagination steps.
type Page struct {
	Kind   Kind
	Source source.Source
	// Layout selects the constructor and the default template.
	Layout   string
	Template string
	Title    string
	URL      string
	// OutputExt is the extension produced by the converter, e.g. ".html".
	OutputExt string
	Content   string
	Converted bool

	Date      time.Time
	Updated   time.Time
	Published bool

	// Post fields.
	ID         string
	Categories []string
	Tags       []string
	Comments   bool
	Excerpt    string

	Pager *Pager

	// Attrs holds values set by extensions and generators.
	Attrs map[string]any
}

// Meta returns the source metadata, or an empty map for generated pages.
func (p *Page) Meta() source.Meta {
	if p.Source == nil {
		return source.Meta{}
	}
	return p.Source.Meta()
}

// Get returns an attribute, falling back to source metadata.
func (p *Page) Get(key string) any {
	if v, ok := p.Attrs[key]; ok {
		return v
	}
	return p.Meta()[key]
}

// Set stores an attribute.
func (p *Page) Set(key string, value any) {
	if p.Attrs == nil {
		p.Attrs = map[string]any{}
	}
	p.Attrs[key] = value
}

// IsPost reports whether the page is a dated post.
func (p *Page) IsPost() bool { return p.Kind == KindPost }

// Clone copies the page for pagination. Attrs is copied; Pager is not.
func (p *Page) Clone() *Page {
	cp := *p
	cp.Attrs = maps.Clone(p.Attrs)
	cp.Categories = append([]string(nil), p.Categories...)
	cp.Tags = append([]string(nil), p.Tags...)
	cp.Pager = nil
	return &cp
}

// OutputPath returns the file path of the page below the destination
// directory, always "/"-separated. URLs ending in "/" map to index.html.
func (p *Page) OutputPath() string {
	return urlToFile(p.URL)
}

func urlToFile(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	if u == "" || strings.HasSuffix(u, "/") {
		u += "index.html"
	}
	return strings.TrimPrefix(path.Clean("/"+u), "/")
}

// SourceKey identifies the page's origin for stable ordering.
func (p *Page) SourceKey() string {
	if p.Source == nil {
		return p.URL
	}
	return p.Source.Entry().AbsPath
}

// newSourcePage fills the fields shared by pages and posts.
func newSourcePage(s *Site, src source.Source, kind Kind, outputExt string) *Page {
	meta := src.Meta()
	published := meta.Bool("published", true)
	title := meta.String("title")
	if !published {
		title = DraftTitlePrefix + title
	}
	layout := meta.String("layout")
	p := &Page{
		Kind:      kind,
		Source:    src,
		Layout:    layout,
		Template:  meta.String("template"),
		Title:     title,
		OutputExt: outputExt,
		Content:   src.Body(),
		Published: published,
		Attrs:     map[string]any{},
	}
	if p.Template == "" && layout != "" {
		p.Template = layout + ".html"
	}
	if d, ok := meta.Time("date"); ok {
		p.Date = d
	}
	if u, ok := meta.Time("updated"); ok {
		p.Updated = u
	}
	return p
}

// NewPage is the constructor for every layout except "post".
func NewPage(s *Site, src source.Source, outputExt string) (*Page, error) {
	p := newSourcePage(s, src, KindPage, outputExt)
	if err := assignURL(s, p); err != nil {
		return nil, err
	}
	return p, nil
}

// NewPost builds a dated post. The date comes from the `date` header or,
// failing that, from a YYYY-MM-DD- file name prefix.
func NewPost(s *Site, src source.Source, outputExt string) (*Page, error) {
	p := newSourcePage(s, src, KindPost, outputExt)
	meta := src.Meta()
	if p.Date.IsZero() {
		if m := postFilePattern.FindStringSubmatch(src.Entry().BaseName()); m != nil {
			p.Date, _ = source.ParseTime(m[1])
		}
	}
	if p.Date.IsZero() {
		return nil, foundationerrors.SourceError("date is required in post front matter").
			WithContext("path", src.Entry().AbsPath).
			Build()
	}
	p.Comments = meta.Bool("comments", true)
	p.Categories = firstNonEmpty(meta.Strings("categories"), meta.Strings("category"))
	p.Tags = firstNonEmpty(meta.Strings("tags"), meta.Strings("tag"))
	if err := assignURL(s, p); err != nil {
		return nil, err
	}
	p.ID = meta.String("id")
	if p.ID == "" {
		p.ID = p.URL
	}
	p.Excerpt = meta.String("excerpt")
	return p, nil
}

func firstNonEmpty(lists ...[]string) []string {
	for _, l := range lists {
		if len(l) > 0 {
			return l
		}
	}
	return nil
}

// assignURL sets p.URL from the `url` header, else from the permalink pattern
// for the page's layout, else from the source location.
func assignURL(s *Site, p *Page) error {
	meta := p.Meta()
	if u := meta.String("url"); u != "" {
		p.URL = u
		return nil
	}

	entry := p.Source.Entry()
	base := entry.BaseName()
	name := base
	if m := postFilePattern.FindStringSubmatch(base); m != nil {
		name = m[2]
	}

	permalink := meta.String("permalink")
	if permalink == "" && s != nil && s.Config != nil {
		layout := p.Layout
		if layout == "" && p.Kind == KindPost {
			layout = "post"
		}
		permalink = s.Config.PermalinkFor(layout)
	}

	if permalink == "" {
		if base == "index" && p.OutputExt == ".html" {
			p.URL = entry.Path + "/"
		} else {
			p.URL = entry.Path + "/" + name + p.OutputExt
		}
		return nil
	}

	params := map[string]any(meta.Clone())
	params["pathToFile"] = entry.Path
	params["path"] = strings.TrimPrefix(entry.Path, "/")
	params["fileName"] = entry.Name
	params["name"] = name
	params["ext"] = p.OutputExt
	pattern.AddDateParams(params, p.Date)
	u, err := pattern.Render("permalink", permalink, params)
	if err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "invalid permalink").
			WithContext("path", entry.AbsPath).
			WithContext("permalink", permalink).
			Build()
	}
	p.URL = u
	return nil
}

// Model returns the template view of the page.
func (p *Page) Model() map[string]any {
	m := map[string]any{
		"kind":       p.Kind.String(),
		"layout":     p.Layout,
		"title":      p.Title,
		"url":        p.URL,
		"content":    p.Content,
		"date":       p.Date,
		"updated":    p.Updated,
		"published":  p.Published,
		"id":         p.ID,
		"categories": p.Categories,
		"tags":       p.Tags,
		"comments":   p.Comments,
		"excerpt":    p.Excerpt,
		"meta":       map[string]any(p.Meta()),
	}
	if p.Pager != nil {
		m["pager"] = p.Pager
	}
	for k, v := range p.Attrs {
		if _, exists := m[k]; !exists {
			m[k] = v
		}
	}
	return m
}

func (p *Page) String() string {
	return fmt.Sprintf("%s(%s)", p.Kind, p.URL)
}
