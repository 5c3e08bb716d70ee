package site

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitepress/internal/config"
	foundationerrors "git.home.luguber.info/inful/sitepress/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepress/internal/source"
)

func testSite() *Site {
	return New(config.Default("/site"))
}

func srcAt(dir, name string, meta source.Meta) source.Source {
	entry := &source.Entry{Root: "/site/src", AbsPath: "/site/src" + dir + "/" + name, Path: dir, Name: name}
	return source.NewParsed(entry, meta, "body")
}

func TestPageURLRules(t *testing.T) {
	s := testSite()
	tests := []struct {
		name string
		dir  string
		file string
		meta source.Meta
		want string
	}{
		{"explicit url wins", "/docs", "a.md", source.Meta{"url": "/custom/"}, "/custom/"},
		{"index maps to directory", "/docs", "index.md", source.Meta{}, "/docs/"},
		{"root index", "", "index.md", source.Meta{}, "/"},
		{"plain page", "/docs", "about.md", source.Meta{}, "/docs/about.html"},
		{"permalink header", "", "about.md", source.Meta{"permalink": "/{{.name}}/"}, "/about/"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, err := NewPage(s, srcAt(tc.dir, tc.file, tc.meta), ".html")
			require.NoError(t, err)
			assert.Equal(t, tc.want, p.URL)
		})
	}
}

func TestPostURLUsesPermalinkAndFileDate(t *testing.T) {
	s := testSite()
	p, err := NewPost(s, srcAt("", "2024-03-07-hello-world.md", source.Meta{"layout": "post", "title": "Hello"}), ".html")
	require.NoError(t, err)

	assert.Equal(t, "/article/2024/03/hello-world.html", p.URL)
	assert.Equal(t, p.URL, p.ID)
	assert.True(t, p.Comments)
	assert.Equal(t, 2024, p.Date.Year())
	assert.Equal(t, "article/2024/03/hello-world.html", p.OutputPath())
}

func TestPostRequiresDate(t *testing.T) {
	_, err := NewPost(testSite(), srcAt("", "undated.md", source.Meta{"layout": "post"}), ".html")
	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategorySource))
}

func TestDraftTitle(t *testing.T) {
	p, err := NewPage(testSite(), srcAt("", "wip.md", source.Meta{"title": "WIP", "published": false}), ".html")
	require.NoError(t, err)
	assert.False(t, p.Published)
	assert.Equal(t, "[Draft] WIP", p.Title)
}

func TestFactoryDispatchesOnLayout(t *testing.T) {
	s := testSite()
	f := NewFactory()
	date := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

	post, err := f.Create(s, srcAt("", "x.md", source.Meta{"layout": "post", "date": date}), ".html")
	require.NoError(t, err)
	assert.Equal(t, KindPost, post.Kind)

	page, err := f.Create(s, srcAt("", "y.md", source.Meta{"layout": "page"}), ".html")
	require.NoError(t, err)
	assert.Equal(t, KindPage, page.Kind)
	assert.Equal(t, "page.html", page.Template)
}

func TestCategoriesMergeBySlug(t *testing.T) {
	tax := NewTaxonomy(testSite().Slugger)
	a, err := tax.Category("Java Spring")
	require.NoError(t, err)
	b, err := tax.Category("java-spring")
	require.NoError(t, err)
	c, err := tax.Category("JAVA SPRING")
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Same(t, a, c)
	assert.Len(t, tax.Categories(), 1)
}

func TestDeclaredCategoryTree(t *testing.T) {
	tax := NewTaxonomy(testSite().Slugger)
	require.NoError(t, tax.DeclareCategories(map[string]string{
		"java/spring": "Spring",
		"java":        "Java",
	}))

	spring := tax.CategoryByPath("java/spring")
	require.NotNil(t, spring)
	parent := tax.Parent(spring)
	require.NotNil(t, parent)
	assert.Equal(t, "Java", parent.Name)
	assert.Equal(t, []*Category{parent}, tax.Ancestors(spring))

	found, err := tax.Category("spring")
	require.NoError(t, err)
	assert.Same(t, spring, found)
}

func TestDeclareCategoryMissingParent(t *testing.T) {
	tax := NewTaxonomy(testSite().Slugger)
	_, err := tax.DeclareCategory("go/generics", "Generics")
	require.ErrorIs(t, err, ErrParentCategoryNotFound)
}

func TestClassifyRewritesToCanonicalKeys(t *testing.T) {
	s := testSite()
	post := &Page{Kind: KindPost, Categories: []string{"Web Dev"}, Tags: []string{"Go", "go"}}
	require.NoError(t, s.Taxonomy.Classify(post))

	assert.Equal(t, []string{"web-dev"}, post.Categories)
	assert.Equal(t, []string{"go", "go"}, post.Tags)
	require.Len(t, s.Taxonomy.Tags(), 1)
	assert.Len(t, s.Taxonomy.Tags()[0].Posts, 1)
}

func TestPostsNewestFirst(t *testing.T) {
	s := testSite()
	older := &Page{Kind: KindPost, URL: "/a", Date: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)}
	newer := &Page{Kind: KindPost, URL: "/b", Date: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)}
	s.AddPage(older)
	s.AddPage(&Page{Kind: KindPage, URL: "/about.html"})
	s.AddPage(newer)

	assert.Equal(t, []*Page{newer, older}, s.Posts())
	s.BuildCollections()
	assert.Len(t, s.Collection("page").Pages, 1)
	assert.Same(t, newer, s.PageByURL("/b"))
}

func TestHolderPublish(t *testing.T) {
	var h Holder
	assert.Nil(t, h.Load())
	s1, s2 := testSite(), testSite()
	h.Publish(s1)
	assert.Same(t, s1, h.Load())
	h.Publish(s2)
	assert.Same(t, s2, h.Load())
}
