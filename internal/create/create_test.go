package create

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitepress/internal/config"
	foundationerrors "git.home.luguber.info/inful/sitepress/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepress/internal/source"
)

func TestNewPostRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := config.Default("/site")
	c := New(fs, cfg)
	date := time.Date(2024, 2, 9, 8, 30, 0, 0, time.UTC)

	path, err := c.NewPost(Options{
		Title:      "Hello, Wörld!",
		Date:       date,
		Categories: []string{"News"},
		Tags:       []string{"go", "web"},
		Body:       "First post.",
	})
	require.NoError(t, err)
	assert.Equal(t, "/site/posts/2024-02-09-hello-world.md", path)

	entry, err := source.NewEntry(fs, "/site/posts", "2024-02-09-hello-world.md", nil)
	require.NoError(t, err)
	src, err := source.NewFileParser(fs).Parse(entry)
	require.NoError(t, err)

	meta := src.Meta()
	assert.Equal(t, "Hello, Wörld!", meta.String("title"))
	assert.Equal(t, "post", meta.String("layout"))
	assert.Equal(t, []string{"News"}, meta.Strings("categories"))
	assert.Equal(t, []string{"go", "web"}, meta.Strings("tags"))
	assert.True(t, meta.Bool("comments", false))
	assert.True(t, meta.Bool("published", false))
	got, ok := meta.Time("date")
	require.True(t, ok)
	assert.True(t, date.Equal(got))
	assert.Equal(t, "First post.\n", src.Body())
}

func TestNewPageNeverOverwrites(t *testing.T) {
	fs := afero.NewMemMapFs()
	c := New(fs, config.Default("/site"))

	path, err := c.NewPage(Options{Title: "About", Draft: true})
	require.NoError(t, err)
	assert.Equal(t, "/site/pages/about.md", path)

	_, err = c.NewPage(Options{Title: "About"})
	require.ErrorIs(t, err, ErrFileExists)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryAlreadyExists))

	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "published: false")
}

func TestCreateValidation(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := config.Default("/site")
	c := New(fs, cfg)

	_, err := c.NewPost(Options{})
	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryValidation))

	cfg.NewPage = "../{{.name}}.{{.format}}"
	_, err = c.NewPage(Options{Title: "Escape"})
	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryValidation))
}
