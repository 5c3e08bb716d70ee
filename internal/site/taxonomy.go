package site

import (
	"errors"
	"path"
	"slices"
	"sort"
	"strings"
	"sync"

	foundationerrors "git.home.luguber.info/inful/sitepress/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepress/internal/slug"
)

// ErrParentCategoryNotFound is returned when a declared category's parent
// path has not been declared.
var ErrParentCategoryNotFound = errors.New("parent category not found")

// NoParent is the Parent index of top-level categories.
const NoParent = -1

// Category groups posts. Categories form a tree through Parent indices into
// the owning Taxonomy; a parent is always created before its children.
type Category struct {
	Slug   string
	Path   string
	Name   string
	Parent int
	URL    string
	Posts  []*Page
}

// Tag groups posts without hierarchy.
type Tag struct {
	Slug  string
	Name  string
	URL   string
	Posts []*Page
}

// Taxonomy owns the categories and tags of a site. Entries are merged by
// slug: asking twice for the same slug yields the same instance.
type Taxonomy struct {
	mu         sync.Mutex
	slugger    slug.Helper
	categories []*Category
	byPath     map[string]int
	tags       []*Tag
	tagBySlug  map[string]int
}

// NewTaxonomy returns an empty taxonomy using h to derive slugs.
func NewTaxonomy(h slug.Helper) *Taxonomy {
	return &Taxonomy{
		slugger:   h,
		byPath:    map[string]int{},
		tagBySlug: map[string]int{},
	}
}

// DeclareCategories creates configured categories in sorted path order, so
// every parent path is processed before its children.
func (t *Taxonomy) DeclareCategories(decl map[string]string) error {
	paths := make([]string, 0, len(decl))
	for p := range decl {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		if _, err := t.DeclareCategory(p, decl[p]); err != nil {
			return err
		}
	}
	return nil
}

// DeclareCategory creates or renames the category at path ("java/spring").
// Its slug is the last path segment; the parent path must already exist.
func (t *Taxonomy) DeclareCategory(catPath, name string) (*Category, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	catPath = strings.Trim(catPath, "/")
	if catPath == "" {
		return nil, foundationerrors.ConfigError("category path is empty").Build()
	}
	if i, ok := t.byPath[catPath]; ok {
		if name != "" {
			t.categories[i].Name = name
		}
		return t.categories[i], nil
	}

	parent := NoParent
	if dir := path.Dir(catPath); dir != "." {
		i, ok := t.byPath[dir]
		if !ok {
			return nil, foundationerrors.WrapError(ErrParentCategoryNotFound, foundationerrors.CategoryConfig, "invalid category declaration").
				WithContext("category", catPath).
				WithContext("parent", dir).
				Build()
		}
		parent = i
	}
	if name == "" {
		name = path.Base(catPath)
	}
	return t.add(&Category{Slug: path.Base(catPath), Path: catPath, Name: name, Parent: parent}), nil
}

func (t *Taxonomy) add(c *Category) *Category {
	c.URL = "/category/" + c.Path + "/"
	t.byPath[c.Path] = len(t.categories)
	t.categories = append(t.categories, c)
	return c
}

// Category returns the category matching nameOrSlug by name, slug or path,
// creating a top-level category when none matches.
func (t *Taxonomy) Category(nameOrSlug string) (*Category, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if c := t.findCategory(nameOrSlug); c != nil {
		return c, nil
	}
	s, err := t.slugger.Slug(nameOrSlug)
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "cannot derive category slug").
			WithContext("category", nameOrSlug).
			Build()
	}
	if c := t.findCategory(s); c != nil {
		return c, nil
	}
	return t.add(&Category{Slug: s, Path: s, Name: nameOrSlug, Parent: NoParent}), nil
}

func (t *Taxonomy) findCategory(key string) *Category {
	if i, ok := t.byPath[strings.Trim(key, "/")]; ok {
		return t.categories[i]
	}
	for _, c := range t.categories {
		if c.Slug == key || strings.EqualFold(c.Name, key) {
			return c
		}
	}
	return nil
}

// Tag returns the tag matching nameOrSlug, creating it when needed.
func (t *Taxonomy) Tag(nameOrSlug string) (*Tag, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if i, ok := t.tagBySlug[nameOrSlug]; ok {
		return t.tags[i], nil
	}
	for _, tag := range t.tags {
		if strings.EqualFold(tag.Name, nameOrSlug) {
			return tag, nil
		}
	}
	s, err := t.slugger.Slug(nameOrSlug)
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "cannot derive tag slug").
			WithContext("tag", nameOrSlug).
			Build()
	}
	if i, ok := t.tagBySlug[s]; ok {
		return t.tags[i], nil
	}
	tag := &Tag{Slug: s, Name: nameOrSlug, URL: "/tag/" + s + "/"}
	t.tagBySlug[s] = len(t.tags)
	t.tags = append(t.tags, tag)
	return tag, nil
}

// Classify attaches post to its categories and tags and rewrites the post's
// Categories and Tags fields to the canonical paths and slugs.
func (t *Taxonomy) Classify(post *Page) error {
	paths := make([]string, 0, len(post.Categories))
	for _, name := range post.Categories {
		c, err := t.Category(name)
		if err != nil {
			return err
		}
		t.attach(&c.Posts, post)
		paths = append(paths, c.Path)
	}
	slugs := make([]string, 0, len(post.Tags))
	for _, name := range post.Tags {
		tag, err := t.Tag(name)
		if err != nil {
			return err
		}
		t.attach(&tag.Posts, post)
		slugs = append(slugs, tag.Slug)
	}
	post.Categories = paths
	post.Tags = slugs
	return nil
}

func (t *Taxonomy) attach(list *[]*Page, post *Page) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !slices.Contains(*list, post) {
		*list = append(*list, post)
	}
}

// Categories returns all categories in creation order.
func (t *Taxonomy) Categories() []*Category {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.categories)
}

// Tags returns all tags in creation order.
func (t *Taxonomy) Tags() []*Tag {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.tags)
}

// CategoryByPath returns the category at path, or nil.
func (t *Taxonomy) CategoryByPath(p string) *Category {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i, ok := t.byPath[p]; ok {
		return t.categories[i]
	}
	return nil
}

// Parent returns c's parent, or nil for top-level categories.
func (t *Taxonomy) Parent(c *Category) *Category {
	if c.Parent == NoParent {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.categories[c.Parent]
}

// Ancestors returns c's parents from the root down, excluding c.
func (t *Taxonomy) Ancestors(c *Category) []*Category {
	var out []*Category
	for p := t.Parent(c); p != nil; p = t.Parent(p) {
		out = append([]*Category{p}, out...)
	}
	return out
}
