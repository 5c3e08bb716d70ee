package source

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterAccept(t *testing.T) {
	f := Filter{Includes: []string{".htaccess"}, Excludes: []string{"README.md"}}

	assert.True(t, f.Accept("index.md"))
	assert.True(t, f.Accept(".htaccess"))
	assert.False(t, f.Accept("README.md"))
	assert.False(t, f.Accept(".git"))
	assert.False(t, f.Accept("_drafts"))
	assert.False(t, f.Accept("#autosave#"))
	assert.False(t, f.Accept("post.md~"))
}

func TestWalkerSkipsRejectedDirectories(t *testing.T) {
	fs := afero.NewMemMapFs()
	now := time.Now()
	for _, p := range []string{
		"/s/index.md",
		"/s/blog/2024-01-01-a.md",
		"/s/blog/img/logo.png",
		"/s/_private/secret.md",
		"/s/blog/.hidden",
	} {
		writeFile(t, fs, p, "x", now)
	}

	var got []string
	err := NewWalker(fs, Filter{}).Walk("/s", func(e *Entry) error {
		got = append(got, e.RelPath())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"/blog/2024-01-01-a.md", "/blog/img/logo.png", "/index.md"}, got)
}

func TestWalkerLinksParents(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/s/blog/img/logo.png", "x", time.Now())

	var entry *Entry
	require.NoError(t, NewWalker(fs, Filter{}).Walk("/s", func(e *Entry) error {
		entry = e
		return nil
	}))
	require.NotNil(t, entry.Parent)
	assert.Equal(t, "img", entry.Parent.Name)
	require.NotNil(t, entry.Parent.Parent)
	assert.Equal(t, "blog", entry.Parent.Parent.Name)
	assert.Nil(t, entry.Parent.Parent.Parent)
}
