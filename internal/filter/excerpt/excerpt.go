// Package excerpt extracts post excerpts from converted content.
package excerpt

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"git.home.luguber.info/inful/sitepress/internal/plugin"
	"git.home.luguber.info/inful/sitepress/internal/site"
)

// Priority places the filter after conversion hooks of lower priority.
const Priority = 500

// Filter sets Page.Excerpt on posts that do not declare one. The excerpt is
// the content before the configured separator, or the first paragraph.
type Filter struct{ plugin.Base }

func New() *Filter {
	return &Filter{plugin.Base{ID: "excerpt", Order: Priority}}
}

func (f *Filter) OnPageConvert(_ context.Context, s *site.Site, p *site.Page) error {
	if !p.IsPost() || !s.Config.ExcerptsEnabled() {
		return nil
	}
	if p.Excerpt != "" {
		p.Set("excerpted", true)
		return nil
	}
	excerpt, more, err := Extract(p.Content, s.Config.ExcerptSeparator)
	if err != nil {
		return err
	}
	p.Excerpt = excerpt
	p.Set("excerpted", more)
	return nil
}

// Extract returns the excerpt of an HTML fragment and whether the fragment
// has content beyond it.
func Extract(content, separator string) (string, bool, error) {
	if separator != "" {
		if i := strings.Index(content, separator); i >= 0 {
			return strings.TrimSpace(content[:i]), true, nil
		}
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return "", false, err
	}
	first := doc.Find("p").First()
	if first.Length() == 0 {
		return "", false, nil
	}
	html, err := goquery.OuterHtml(first)
	if err != nil {
		return "", false, err
	}
	more := strings.TrimSpace(doc.Find("body").Text()) != strings.TrimSpace(first.Text())
	return html, more, nil
}
