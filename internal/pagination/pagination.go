// Package pagination splits a listing page into numbered pages and links
// them together.
package pagination

import (
	"errors"
	"fmt"
	"path"
	"strings"

	foundationerrors "git.home.luguber.info/inful/sitepress/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepress/internal/pattern"
	"git.home.luguber.info/inful/sitepress/internal/site"
)

var (
	// ErrInvalidPageSize is returned for page sizes below 1.
	ErrInvalidPageSize = errors.New("page size must be positive")
	// ErrEmptySource is returned when there is nothing to paginate.
	ErrEmptySource = errors.New("no items to paginate")
)

// TitleSuffixAttr is the page attribute holding " - Part N" style suffixes.
const TitleSuffixAttr = "title_suffix"

// Options customizes clone URLs and titles.
type Options struct {
	// Permalink is a text/template receiving url, number, basename, dir and ext.
	Permalink string
	// TitleSuffixFormat is a fmt format receiving the page number.
	TitleSuffixFormat string
}

// TotalPages returns ceil(items/size).
func TotalPages(items, size int) int {
	if size <= 0 {
		return 0
	}
	return (items + size - 1) / size
}

// Paginate splits items across ceil(len(items)/size) pages. The host becomes
// page 1; the returned slice holds only the new pages 2..N, in order.
func Paginate(host *site.Page, items []*site.Page, size int, opts Options) ([]*site.Page, error) {
	if size <= 0 {
		return nil, foundationerrors.WrapError(ErrInvalidPageSize, foundationerrors.CategoryConfig, "invalid pagination").
			WithContext("url", host.URL).
			WithContext("size", size).
			Build()
	}
	if len(items) == 0 {
		return nil, ErrEmptySource
	}

	total := TotalPages(len(items), size)
	pages := make([]*site.Page, total)
	pagers := make([]*site.Pager, total)
	for i := range total {
		from := i * size
		to := min(from+size, len(items))
		pager := &site.Pager{
			Number:     i + 1,
			TotalPages: total,
			TotalItems: len(items),
			PageSize:   size,
			Items:      items[from:to:to],
		}
		pagers[i] = pager

		if i == 0 {
			pages[i] = host
			continue
		}
		clone := host.Clone()
		clone.Kind = site.KindGenerated
		clone.Pager = pager
		u, err := pageURL(host.URL, pager.Number, opts.Permalink)
		if err != nil {
			return nil, err
		}
		clone.URL = u
		clone.Set(TitleSuffixAttr, titleSuffix(host.Title, pager.Number, opts.TitleSuffixFormat))
		pages[i] = clone
	}

	host.Pager = pagers[0]
	for i, pager := range pagers {
		if i > 0 {
			pager.PreviousNumber = pagers[i-1].Number
			pager.PreviousURL = pages[i-1].URL
		}
		if i < total-1 {
			pager.NextNumber = pagers[i+1].Number
			pager.NextURL = pages[i+1].URL
		}
	}
	return pages[1:], nil
}

// PageURL returns the URL of page n of a listing served at u:
// "/a/name.html" becomes "/a/name-p2.html" and "/a/" becomes "/a/page/2/".
func PageURL(u string, n int) string {
	if strings.HasSuffix(u, "/") || u == "" {
		return fmt.Sprintf("%spage/%d/", u, n)
	}
	ext := path.Ext(u)
	if strings.Contains(ext, "/") {
		ext = ""
	}
	return fmt.Sprintf("%s-p%d%s", strings.TrimSuffix(u, ext), n, ext)
}

func pageURL(u string, n int, permalink string) (string, error) {
	if permalink == "" {
		return PageURL(u, n), nil
	}
	ext := path.Ext(u)
	params := map[string]any{
		"url":      u,
		"number":   n,
		"basename": strings.TrimSuffix(path.Base(u), ext),
		"dir":      path.Dir(u),
		"ext":      ext,
	}
	out, err := pattern.Render("pagination", permalink, params)
	if err != nil {
		return "", foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "invalid pagination permalink").
			WithContext("permalink", permalink).
			Build()
	}
	return out, nil
}

func titleSuffix(title string, n int, format string) string {
	if format != "" {
		return fmt.Sprintf(format, n)
	}
	if title != "" {
		return fmt.Sprintf(" - Part %d", n)
	}
	return fmt.Sprintf(" - Page %d", n)
}
