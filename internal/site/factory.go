package site

import (
	"sync"

	"git.home.luguber.info/inful/sitepress/internal/source"
)

// Constructor builds a page for a source. outputExt is the extension the
// matching converter produces.
type Constructor func(s *Site, src source.Source, outputExt string) (*Page, error)

// Factory maps layouts to page constructors.
type Factory struct {
	mu       sync.RWMutex
	ctors    map[string]Constructor
	fallback Constructor
}

// NewFactory returns a factory building posts for layout "post" and plain
// pages for everything else.
func NewFactory() *Factory {
	return &Factory{
		ctors:    map[string]Constructor{"post": NewPost},
		fallback: NewPage,
	}
}

// Register installs ctor for layout, replacing any previous one.
func (f *Factory) Register(layout string, ctor Constructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ctors[layout] = ctor
}

// Create builds the page for src using its `layout` header.
func (f *Factory) Create(s *Site, src source.Source, outputExt string) (*Page, error) {
	f.mu.RLock()
	ctor, ok := f.ctors[src.Meta().String("layout")]
	f.mu.RUnlock()
	if !ok {
		ctor = f.fallback
	}
	return ctor(s, src, outputExt)
}
