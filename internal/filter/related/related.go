// Package related finds related posts with an in-memory full text index.
package related

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"git.home.luguber.info/inful/sitepress/internal/logfields"
	"git.home.luguber.info/inful/sitepress/internal/plugin"
	"git.home.luguber.info/inful/sitepress/internal/site"
)

const (
	Priority = 600
	// Attr is the page attribute holding related post URLs.
	Attr = "related_posts"
)

type document struct {
	Title   string
	Tags    string
	Content string
}

// Filter stores up to related_posts.count similar post URLs on every post.
type Filter struct{ plugin.Base }

func New() *Filter {
	return &Filter{plugin.Base{ID: "related-posts", Order: Priority}}
}

func indexMapping() mapping.IndexMapping {
	title := bleve.NewTextFieldMapping()
	title.Analyzer = "en"
	content := bleve.NewTextFieldMapping()
	content.Analyzer = "en"
	content.Store = false
	tags := bleve.NewTextFieldMapping()

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("Title", title)
	doc.AddFieldMappingsAt("Tags", tags)
	doc.AddFieldMappingsAt("Content", content)

	m := bleve.NewIndexMapping()
	m.AddDocumentMapping("_default", doc)
	return m
}

func (f *Filter) OnPreRender(_ context.Context, s *site.Site) error {
	cfg := s.Config.RelatedPosts
	if !cfg.Enabled || cfg.Count <= 0 {
		return nil
	}
	posts := s.Posts()
	if len(posts) < 2 {
		return nil
	}

	idx, err := bleve.NewMemOnly(indexMapping())
	if err != nil {
		return fmt.Errorf("create related posts index: %w", err)
	}
	defer func() { _ = idx.Close() }()

	batch := idx.NewBatch()
	for _, p := range posts {
		if err := batch.Index(p.URL, document{Title: p.Title, Tags: strings.Join(p.Tags, " "), Content: plainText(p.Content)}); err != nil {
			return fmt.Errorf("index %s: %w", p.URL, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		return fmt.Errorf("index posts: %w", err)
	}

	for _, p := range posts {
		q := similarQuery(p)
		if q == nil {
			continue
		}
		req := bleve.NewSearchRequestOptions(q, cfg.Count+1, 0, false)
		res, err := idx.Search(req)
		if err != nil {
			return fmt.Errorf("search related posts for %s: %w", p.URL, err)
		}
		urls := make([]string, 0, cfg.Count)
		for _, hit := range res.Hits {
			if hit.ID == p.URL {
				continue
			}
			if len(urls) == cfg.Count {
				break
			}
			urls = append(urls, hit.ID)
		}
		p.Set(Attr, urls)
	}
	slog.Debug("Related posts computed", logfields.Count(len(posts)))
	return nil
}

func similarQuery(p *site.Page) query.Query {
	var qs []query.Query
	if strings.TrimSpace(p.Title) != "" {
		title := bleve.NewMatchQuery(p.Title)
		title.SetField("Title")
		title.SetBoost(2)
		qs = append(qs, title)

		body := bleve.NewMatchQuery(p.Title)
		body.SetField("Content")
		qs = append(qs, body)
	}
	if len(p.Tags) > 0 {
		tags := bleve.NewMatchQuery(strings.Join(p.Tags, " "))
		tags.SetField("Tags")
		tags.SetBoost(3)
		qs = append(qs, tags)
	}
	if len(qs) == 0 {
		return nil
	}
	return bleve.NewDisjunctionQuery(qs...)
}

func plainText(content string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return content
	}
	return doc.Text()
}
