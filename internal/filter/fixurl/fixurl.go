// Package fixurl prefixes root-relative links in rendered HTML with the site
// root, so a site served below a path prefix keeps working links.
package fixurl

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/sitepress/internal/plugin"
	"git.home.luguber.info/inful/sitepress/internal/site"
)

const Priority = 1000

var linkAttrs = map[string]bool{"href": true, "src": true, "action": true, "poster": true}

// Filter rewrites href and src attributes of rendered HTML pages.
type Filter struct{ plugin.Base }

func New() *Filter {
	return &Filter{plugin.Base{ID: "fix-url", Order: Priority}}
}

func (f *Filter) OnPageRender(_ context.Context, s *site.Site, p *site.Page) error {
	root := strings.TrimSuffix(s.Config.Root, "/")
	if root == "" || p.OutputExt != ".html" {
		return nil
	}
	out, err := Rewrite(p.Content, root)
	if err != nil {
		return err
	}
	p.Content = out
	return nil
}

// Rewrite prefixes root-relative link attributes in content with root.
// Everything except rewritten tags is copied byte for byte.
func Rewrite(content, root string) (string, error) {
	z := html.NewTokenizer(strings.NewReader(content))
	var buf bytes.Buffer
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return buf.String(), nil
			}
			return "", z.Err()
		case html.StartTagToken, html.SelfClosingTagToken:
			raw := append([]byte(nil), z.Raw()...)
			tok := z.Token()
			if fixAttrs(tok.Attr, root) {
				buf.WriteString(tok.String())
			} else {
				buf.Write(raw)
			}
		default:
			buf.Write(z.Raw())
		}
	}
}

func fixAttrs(attrs []html.Attribute, root string) bool {
	changed := false
	for i, a := range attrs {
		if !linkAttrs[a.Key] || !needsRoot(a.Val, root) {
			continue
		}
		attrs[i].Val = root + a.Val
		changed = true
	}
	return changed
}

func needsRoot(v, root string) bool {
	if !strings.HasPrefix(v, "/") || strings.HasPrefix(v, "//") {
		return false
	}
	return v != root && !strings.HasPrefix(v, root+"/")
}
