// Package converter provides the built-in markup converters.
package converter

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"

	"git.home.luguber.info/inful/sitepress/internal/plugin"
	"git.home.luguber.info/inful/sitepress/internal/source"
)

const (
	MarkdownPriority = 100
	HTMLPriority     = 200
)

// Defaults returns the built-in converters.
func Defaults() []plugin.Extension {
	return []plugin.Extension{NewMarkdown(), NewHTML()}
}

// Markdown converts GitHub flavoured Markdown to HTML. Raw HTML in the source
// is kept, so markers like <!--more--> survive conversion.
type Markdown struct {
	plugin.Base
	md         goldmark.Markdown
	extensions []string
}

// NewMarkdown returns the Markdown converter for .md, .markdown and .mkd files.
func NewMarkdown() *Markdown {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Footnote),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)
	return &Markdown{
		Base:       plugin.Base{ID: "markdown", Order: MarkdownPriority},
		md:         md,
		extensions: []string{".md", ".markdown", ".mkd"},
	}
}

func (m *Markdown) Matches(src source.Source) bool {
	return hasExt(src, m.extensions)
}

func (m *Markdown) Convert(body string) (string, error) {
	var buf bytes.Buffer
	if err := m.md.Convert([]byte(body), &buf); err != nil {
		return "", fmt.Errorf("markdown: %w", err)
	}
	return buf.String(), nil
}

func (m *Markdown) OutputExtension(source.Source) string { return ".html" }

// HTML passes HTML sources through unchanged.
type HTML struct {
	plugin.Base
}

// NewHTML returns the pass-through converter for .html and .htm files.
func NewHTML() *HTML {
	return &HTML{Base: plugin.Base{ID: "html", Order: HTMLPriority}}
}

func (h *HTML) Matches(src source.Source) bool {
	return hasExt(src, []string{".html", ".htm"})
}

func (h *HTML) Convert(body string) (string, error) { return body, nil }

func (h *HTML) OutputExtension(source.Source) string { return ".html" }

func hasExt(src source.Source, exts []string) bool {
	ext := strings.ToLower(src.Entry().Ext())
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
