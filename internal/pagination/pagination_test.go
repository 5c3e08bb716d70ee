package pagination

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	foundationerrors "git.home.luguber.info/inful/sitepress/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepress/internal/site"
)

func posts(n int) []*site.Page {
	out := make([]*site.Page, n)
	for i := range out {
		// newest first: P{n} .. P1
		out[i] = &site.Page{Kind: site.KindPost, Title: fmt.Sprintf("P%d", n-i), URL: fmt.Sprintf("/p%d.html", n-i)}
	}
	return out
}

func TestPaginateFivePostsByTwo(t *testing.T) {
	host := &site.Page{Title: "Blog", URL: "/index.html"}
	items := posts(5)

	extra, err := Paginate(host, items, 2, Options{})
	require.NoError(t, err)
	require.Len(t, extra, 2)

	all := append([]*site.Page{host}, extra...)
	titles := func(p *site.Page) []string {
		var out []string
		for _, it := range p.Pager.Items {
			out = append(out, it.Title)
		}
		return out
	}
	assert.Equal(t, []string{"P5", "P4"}, titles(all[0]))
	assert.Equal(t, []string{"P3", "P2"}, titles(all[1]))
	assert.Equal(t, []string{"P1"}, titles(all[2]))

	assert.Equal(t, "/index.html", all[0].URL)
	assert.Equal(t, "/index-p2.html", all[1].URL)
	assert.Equal(t, "/index-p3.html", all[2].URL)

	assert.False(t, all[0].Pager.HasPrevious())
	assert.Equal(t, "/index-p2.html", all[0].Pager.NextURL)
	assert.Equal(t, 1, all[1].Pager.PreviousNumber)
	assert.Equal(t, "/index.html", all[1].Pager.PreviousURL)
	assert.False(t, all[2].Pager.HasNext())

	assert.Equal(t, " - Part 2", all[1].Get(TitleSuffixAttr))
	assert.Equal(t, site.KindGenerated, all[2].Kind)
}

func TestPaginateProperties(t *testing.T) {
	for n := 1; n <= 11; n++ {
		for size := 1; size <= 4; size++ {
			t.Run(fmt.Sprintf("n=%d/size=%d", n, size), func(t *testing.T) {
				host := &site.Page{URL: "/list/"}
				items := posts(n)
				extra, err := Paginate(host, items, size, Options{})
				require.NoError(t, err)

				all := append([]*site.Page{host}, extra...)
				require.Len(t, all, (n+size-1)/size)

				var seen []*site.Page
				for i, p := range all {
					require.NotNil(t, p.Pager)
					assert.Equal(t, i+1, p.Pager.Number)
					assert.Equal(t, len(all), p.Pager.TotalPages)
					assert.LessOrEqual(t, len(p.Pager.Items), size)
					seen = append(seen, p.Pager.Items...)
				}
				assert.Equal(t, items, seen)

				assert.False(t, all[0].Pager.HasPrevious())
				assert.False(t, all[len(all)-1].Pager.HasNext())
				for i := 1; i < len(all); i++ {
					assert.Equal(t, all[i].URL, all[i-1].Pager.NextURL)
					assert.Equal(t, all[i-1].URL, all[i].Pager.PreviousURL)
				}
			})
		}
	}
}

func TestPaginateErrors(t *testing.T) {
	host := &site.Page{URL: "/"}
	_, err := Paginate(host, posts(3), 0, Options{})
	require.ErrorIs(t, err, ErrInvalidPageSize)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryConfig))

	_, err = Paginate(host, nil, 2, Options{})
	require.ErrorIs(t, err, ErrEmptySource)
}

func TestPageURL(t *testing.T) {
	assert.Equal(t, "/a/b/name-p2.html", PageURL("/a/b/name.html", 2))
	assert.Equal(t, "/a/b/page/3/", PageURL("/a/b/", 3))
	assert.Equal(t, "/page/2/", PageURL("/", 2))
	assert.Equal(t, "/a/b-p2", PageURL("/a/b", 2))
}

func TestPaginateOptions(t *testing.T) {
	host := &site.Page{URL: "/news/index.html"}
	extra, err := Paginate(host, posts(3), 1, Options{
		Permalink:         "{{.dir}}/{{.number}}/",
		TitleSuffixFormat: " (page %d)",
	})
	require.NoError(t, err)
	require.Len(t, extra, 2)
	assert.Equal(t, "/news/2/", extra[0].URL)
	assert.Equal(t, " (page 3)", extra[1].Get(TitleSuffixAttr))
	assert.Equal(t, " - Page 2", titleSuffix("", 2, ""))
}

func TestPaginateLeavesHostUntouchedOnError(t *testing.T) {
	host := &site.Page{URL: "/news/index.html"}
	_, err := Paginate(host, posts(3), 1, Options{Permalink: "{{.dir}}/{{.missing}}/"})
	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryConfig))
	assert.Nil(t, host.Pager)
}
