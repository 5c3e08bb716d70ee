package fixurl

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitepress/internal/config"
	"git.home.luguber.info/inful/sitepress/internal/site"
)

func TestRewrite(t *testing.T) {
	in := `<p>Hi <a href="/about.html">about</a> <a href="https://x.org/">ext</a> <a href="//cdn/x">cdn</a></p><img src="/blog/img.png"/><IMG SRC="/img.png">`
	out, err := Rewrite(in, "/blog")
	require.NoError(t, err)
	assert.Equal(t, `<p>Hi <a href="/blog/about.html">about</a> <a href="https://x.org/">ext</a> <a href="//cdn/x">cdn</a></p><img src="/blog/img.png"/><img src="/blog/img.png">`, out)
}

func TestFilterSkipsWithoutRoot(t *testing.T) {
	cfg := config.Default("/site")
	s := site.New(cfg)
	p := &site.Page{OutputExt: ".html", Content: `<a href="/x">x</a>`}

	require.NoError(t, New().OnPageRender(context.Background(), s, p))
	assert.Equal(t, `<a href="/x">x</a>`, p.Content)

	cfg.Root = "/r"
	require.NoError(t, New().OnPageRender(context.Background(), s, p))
	assert.Equal(t, `<a href="/r/x">x</a>`, p.Content)
}
