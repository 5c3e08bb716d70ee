package importer

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitepress/internal/config"
	foundationerrors "git.home.luguber.info/inful/sitepress/internal/foundation/errors"
)

const rss = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Old blog</title>
  <item>
    <title>First steps</title>
    <link>https://old.example.org/first</link>
    <pubDate>Mon, 02 Jan 2023 10:00:00 +0000</pubDate>
    <category>Notes</category>
    <description><![CDATA[<p>Hello there</p>]]></description>
  </item>
  <item>
    <title>Second thoughts</title>
    <link>https://old.example.org/second</link>
    <pubDate>Tue, 03 Jan 2023 10:00:00 +0000</pubDate>
    <description><![CDATA[<p>More</p>]]></description>
  </item>
</channel>
</rss>`

func TestImportIsIdempotent(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/feeds/old.xml", []byte(rss), 0o644))
	cfg := config.Default("/site")
	im := New(fs, cfg)

	res, err := im.Import(context.Background(), "/feeds/old.xml", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/site/posts/2023-01-02-first-steps.html",
		"/site/posts/2023-01-03-second-thoughts.html",
	}, res.Imported)

	data, err := afero.ReadFile(fs, "/site/posts/2023-01-02-first-steps.html")
	require.NoError(t, err)
	assert.Contains(t, string(data), "source_url: https://old.example.org/first")
	assert.Contains(t, string(data), "<p>Hello there</p>")

	again, err := New(fs, cfg).Import(context.Background(), "/feeds/old.xml", Options{})
	require.NoError(t, err)
	assert.Empty(t, again.Imported)
	assert.Equal(t, []string{"First steps", "Second thoughts"}, again.Skipped)
}

func TestImportLimitAndMissingFeed(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/feed.xml", []byte(rss), 0o644))
	res, err := New(fs, config.Default("/site")).Import(context.Background(), "/feed.xml", Options{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, res.Imported, 1)

	_, err = New(fs, config.Default("/site")).Import(context.Background(), "/nope.xml", Options{})
	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryNotFound))
}
