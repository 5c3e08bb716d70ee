// Package generator provides the built-in page generators: category and tag
// listings and pagination of listing pages.
package generator

import (
	"context"
	"errors"
	"log/slog"

	"git.home.luguber.info/inful/sitepress/internal/config"
	"git.home.luguber.info/inful/sitepress/internal/logfields"
	"git.home.luguber.info/inful/sitepress/internal/pagination"
	"git.home.luguber.info/inful/sitepress/internal/plugin"
	"git.home.luguber.info/inful/sitepress/internal/site"
)

const (
	CategoryPriority   = 200
	TagPriority        = 300
	PaginationPriority = 2000
)

// Defaults returns the built-in generators.
func Defaults() []plugin.Extension {
	return []plugin.Extension{NewCategoryGenerator(), NewTagGenerator(), NewPaginationGenerator()}
}

// CategoryGenerator adds one listing page per non-empty category.
type CategoryGenerator struct{ plugin.Base }

func NewCategoryGenerator() *CategoryGenerator {
	return &CategoryGenerator{plugin.Base{ID: "category-generator", Order: CategoryPriority}}
}

func (g *CategoryGenerator) OnGenerate(ctx context.Context, s *site.Site) error {
	cfg := s.Config
	for _, c := range s.Taxonomy.Categories() {
		if len(c.Posts) == 0 {
			continue
		}
		page := listingPage(cfg.CategoryTitlePrefix+c.Name, c.URL, cfg.CategoryTemplate, c.Posts)
		page.Set("category", c)
		page.Set("ancestors", s.Taxonomy.Ancestors(c))
		if err := addListing(s, page); err != nil {
			return err
		}
	}
	return nil
}

// TagGenerator adds one listing page per non-empty tag.
type TagGenerator struct{ plugin.Base }

func NewTagGenerator() *TagGenerator {
	return &TagGenerator{plugin.Base{ID: "tag-generator", Order: TagPriority}}
}

func (g *TagGenerator) OnGenerate(ctx context.Context, s *site.Site) error {
	cfg := s.Config
	for _, t := range s.Taxonomy.Tags() {
		if len(t.Posts) == 0 {
			continue
		}
		page := listingPage(cfg.TagTitlePrefix+t.Name, t.URL, cfg.TagTemplate, t.Posts)
		page.Set("tag", t)
		if err := addListing(s, page); err != nil {
			return err
		}
	}
	return nil
}

func listingPage(title, url, template string, posts []*site.Page) *site.Page {
	sorted := append([]*site.Page(nil), posts...)
	site.SortPosts(sorted)
	page := &site.Page{
		Kind:      site.KindGenerated,
		Title:     title,
		URL:       url,
		Template:  template,
		OutputExt: ".html",
		Converted: true,
		Published: true,
	}
	page.Set("posts", sorted)
	return page
}

// addListing adds page and, when the site paginates, its follow-up pages.
func addListing(s *site.Site, page *site.Page) error {
	s.AddPage(page)
	size := s.Config.Paginate
	if size <= 0 {
		return nil
	}
	posts, _ := page.Get("posts").([]*site.Page)
	extra, err := pagination.Paginate(page, posts, size, paginationOptions(s.Config, nil))
	if err != nil {
		return err
	}
	for _, p := range extra {
		s.AddPage(p)
	}
	return nil
}

// PaginationGenerator paginates every page whose front matter carries
// `paginate` or `pagination`.
type PaginationGenerator struct{ plugin.Base }

func NewPaginationGenerator() *PaginationGenerator {
	return &PaginationGenerator{plugin.Base{ID: "pagination-generator", Order: PaginationPriority}}
}

func (g *PaginationGenerator) OnGenerate(ctx context.Context, s *site.Site) error {
	for _, page := range s.Pages() {
		if page.Kind == site.KindGenerated {
			continue
		}
		meta := page.Meta()
		_, hasPaginate := meta["paginate"]
		opts := meta.Map("pagination")
		if !hasPaginate && opts == nil {
			continue
		}

		size := meta.Int("paginate", 0)
		if size <= 0 {
			size = opts.Int("size", 0)
		}
		if size <= 0 {
			size = s.Config.Paginate
		}
		if size <= 0 {
			size = s.Config.Pagination.Size
		}

		name := opts.String("collection")
		if name == "" {
			name = s.Config.Pagination.Collection
		}
		coll := s.Collection(name)
		if coll == nil {
			slog.Warn("Pagination collection not found", logfields.URL(page.URL), slog.String("collection", name))
			continue
		}

		page.Set("collection", coll.Name)
		extra, err := pagination.Paginate(page, coll.Pages, size, paginationOptions(s.Config, opts))
		if errors.Is(err, pagination.ErrEmptySource) {
			slog.Debug("Nothing to paginate", logfields.URL(page.URL), slog.String("collection", name))
			continue
		}
		if err != nil {
			return err
		}
		for _, p := range extra {
			s.AddPage(p)
		}
		slog.Debug("Paginated page", logfields.URL(page.URL), logfields.Count(len(extra)+1))
	}
	return nil
}

func paginationOptions(cfg *config.Config, pageOpts map[string]any) pagination.Options {
	opts := pagination.Options{
		Permalink:         cfg.Pagination.Permalink,
		TitleSuffixFormat: cfg.Pagination.TitleSuffixFormat,
	}
	if p, ok := pageOpts["permalink"].(string); ok && p != "" {
		opts.Permalink = p
	}
	return opts
}
