// Package site holds the in-memory content model built by one build pass:
// pages, posts, static files, categories, tags and collections.
package site

import (
	"path"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"git.home.luguber.info/inful/sitepress/internal/config"
	"git.home.luguber.info/inful/sitepress/internal/slug"
	"git.home.luguber.info/inful/sitepress/internal/source"
)

// StaticFile is a file copied to the output unchanged.
type StaticFile struct {
	Entry *source.Entry
	URL   string
}

// NewStaticFile builds a static file whose URL mirrors its location.
func NewStaticFile(entry *source.Entry) *StaticFile {
	return &StaticFile{Entry: entry, URL: entry.RelPath()}
}

// OutputPath returns the "/"-separated path below the destination directory.
func (f *StaticFile) OutputPath() string {
	return strings.TrimPrefix(path.Clean(f.URL), "/")
}

// Collection is a named, ordered list of pages.
type Collection struct {
	Name  string
	Pages []*Page
}

// Site is the content model of one build. A Site is populated by the build
// stages and published through a Holder once complete; it is never mutated
// after publication.
type Site struct {
	Config    *config.Config
	Slugger   slug.Helper
	BuildTime time.Time
	Taxonomy  *Taxonomy

	mu          sync.Mutex
	pages       []*Page
	static      []*StaticFile
	collections map[string]*Collection
	attrs       map[string]any
}

// New returns an empty site for cfg.
func New(cfg *config.Config) *Site {
	h := slug.ForLocale(cfg.Locale)
	return &Site{
		Config:      cfg,
		Slugger:     h,
		BuildTime:   time.Now(),
		Taxonomy:    NewTaxonomy(h),
		collections: map[string]*Collection{},
		attrs:       map[string]any{},
	}
}

// AddPage appends a page. Safe for concurrent use.
func (s *Site) AddPage(p *Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages = append(s.pages, p)
}

// AddStatic appends a static file. Safe for concurrent use.
func (s *Site) AddStatic(f *StaticFile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.static = append(s.static, f)
}

// Pages returns a snapshot of all pages.
func (s *Site) Pages() []*Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Page(nil), s.pages...)
}

// StaticFiles returns a snapshot of all static files.
func (s *Site) StaticFiles() []*StaticFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*StaticFile(nil), s.static...)
}

// Posts returns all posts, newest first.
func (s *Site) Posts() []*Page {
	var posts []*Page
	for _, p := range s.Pages() {
		if p.Kind == KindPost {
			posts = append(posts, p)
		}
	}
	SortPosts(posts)
	return posts
}

// SortPosts orders posts newest first; ties are broken by URL.
func SortPosts(posts []*Page) {
	sort.SliceStable(posts, func(i, j int) bool {
		if !posts[i].Date.Equal(posts[j].Date) {
			return posts[i].Date.After(posts[j].Date)
		}
		return posts[i].URL < posts[j].URL
	})
}

// Normalize sorts pages and static files into a deterministic order. The read
// stage adds them from parallel walkers.
func (s *Site) Normalize() {
	s.mu.Lock()
	defer s.mu.Unlock()
	sort.SliceStable(s.pages, func(i, j int) bool { return s.pages[i].SourceKey() < s.pages[j].SourceKey() })
	sort.SliceStable(s.static, func(i, j int) bool { return s.static[i].Entry.AbsPath < s.static[j].Entry.AbsPath })
}

// BuildCollections rebuilds the "post" and "page" collections.
func (s *Site) BuildCollections() {
	posts := s.Posts()
	var pages []*Page
	for _, p := range s.Pages() {
		if p.Kind == KindPage {
			pages = append(pages, p)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections["post"] = &Collection{Name: "post", Pages: posts}
	s.collections["page"] = &Collection{Name: "page", Pages: pages}
}

// Collection returns the named collection, or nil.
func (s *Site) Collection(name string) *Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collections[name]
}

// SetCollection registers or replaces a collection.
func (s *Site) SetCollection(c *Collection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[c.Name] = c
}

// PageByURL returns the page served at u, or nil.
func (s *Site) PageByURL(u string) *Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.pages {
		if p.URL == u {
			return p
		}
	}
	return nil
}

// Set stores a site-level attribute visible to templates.
func (s *Site) Set(key string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attrs[key] = v
}

// Get returns a site-level attribute.
func (s *Site) Get(key string) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attrs[key]
}

// Model returns the root template model shared by every page.
func (s *Site) Model() map[string]any {
	s.mu.Lock()
	attrs := make(map[string]any, len(s.attrs))
	for k, v := range s.attrs {
		attrs[k] = v
	}
	s.mu.Unlock()

	site := map[string]any{
		"title":       s.Config.Title,
		"description": s.Config.Description,
		"url":         s.Config.URL,
		"root":        s.Config.Root,
		"locale":      s.Config.Locale,
		"date_format": s.Config.DateFormat,
		"time":        s.BuildTime,
		"posts":       s.Posts(),
		"categories":  s.Taxonomy.Categories(),
		"tags":        s.Taxonomy.Tags(),
		"config":      s.Config.Raw(),
	}
	for k, v := range attrs {
		site[k] = v
	}
	return map[string]any{
		"site":     site,
		"root_url": s.Config.Root,
		"basedir":  s.Config.BaseDir,
	}
}

// Holder publishes the most recently completed Site.
type Holder struct {
	current atomic.Pointer[Site]
}

// Load returns the published site, or nil before the first build.
func (h *Holder) Load() *Site { return h.current.Load() }

// Publish replaces the published site.
func (h *Holder) Publish(s *Site) { h.current.Store(s) }
