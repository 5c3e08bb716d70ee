package plugin

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitepress/internal/site"
	"git.home.luguber.info/inful/sitepress/internal/source"
)

// recorder appends its name to a shared log whenever a hook runs.
type recorder struct {
	Base
	log  *[]string
	fail error
}

func (r *recorder) OnSetup(context.Context, *site.Site) error {
	*r.log = append(*r.log, r.ID)
	return r.fail
}

func (r *recorder) OnPageRender(_ context.Context, _ *site.Site, p *site.Page) error {
	*r.log = append(*r.log, r.ID+":"+p.URL)
	return r.fail
}

type mdConverter struct{ Base }

func (mdConverter) Matches(src source.Source) bool { return strings.HasSuffix(src.Entry().Name, ".md") }
func (mdConverter) Convert(body string) (string, error) { return "<p>" + body + "</p>", nil }
func (mdConverter) OutputExtension(source.Source) string { return ".html" }

func TestRegistryOrdersByPriorityThenRegistration(t *testing.T) {
	var log []string
	r := NewRegistry()
	r.MustRegister(
		&recorder{Base: Base{ID: "late", Order: 100}, log: &log},
		&recorder{Base: Base{ID: "first-tie", Order: 10}, log: &log},
		&recorder{Base: Base{ID: "second-tie", Order: 10}, log: &log},
		&recorder{Base: Base{ID: "early", Order: -5}, log: &log},
	)

	require.NoError(t, NewPipeline(r).Setup(context.Background(), nil))
	assert.Equal(t, []string{"early", "first-tie", "second-tie", "late"}, log)
}

func TestRegistryRejectsDuplicatesAndNil(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Base{ID: "a"}))
	require.Error(t, r.Register(Base{ID: "a"}))
	require.Error(t, r.Register(nil))
	require.Error(t, r.Register(Base{}))
	assert.True(t, r.Has("a"))
}

func TestPipelineFailFast(t *testing.T) {
	var log []string
	boom := errors.New("boom")
	r := NewRegistry()
	r.MustRegister(
		&recorder{Base: Base{ID: "ok", Order: 1}, log: &log},
		&recorder{Base: Base{ID: "bad", Order: 2}, log: &log, fail: boom},
		&recorder{Base: Base{ID: "never", Order: 3}, log: &log},
	)

	page := &site.Page{URL: "/x.html"}
	err := NewPipeline(r).PageRender(context.Background(), nil, page)
	require.ErrorIs(t, err, boom)

	var extErr *ExtensionError
	require.ErrorAs(t, err, &extErr)
	assert.Equal(t, "bad", extErr.Extension)
	assert.Equal(t, StagePageRender, extErr.Stage)
	assert.Equal(t, "/x.html", extErr.Page)
	assert.Equal(t, []string{"ok:/x.html", "bad:/x.html"}, log)
}

func TestCompositeRunsChildrenInOrder(t *testing.T) {
	var log []string
	c := NewComposite("group", 50,
		&recorder{Base: Base{ID: "b", Order: 2}, log: &log},
		&recorder{Base: Base{ID: "a", Order: 1}, log: &log},
	)
	assert.True(t, IsFilter(c))

	r := NewRegistry()
	r.MustRegister(c)
	require.NoError(t, NewPipeline(r).Setup(context.Background(), nil))
	assert.Equal(t, []string{"a", "b"}, log)
}

func TestConverterLookup(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(mdConverter{Base{ID: "markdown"}})

	md := source.NewParsed(&source.Entry{Name: "a.md"}, source.Meta{}, "")
	txt := source.NewParsed(&source.Entry{Name: "a.txt"}, source.Meta{}, "")

	c, err := r.Converter(md)
	require.NoError(t, err)
	assert.Equal(t, "markdown", c.Name())

	_, err = r.Converter(txt)
	require.ErrorIs(t, err, ErrNoConverterFound)
	assert.False(t, IsFilter(mdConverter{}))
}

func TestConverterLookupDescendsIntoComposites(t *testing.T) {
	var log []string
	r := NewRegistry()
	r.MustRegister(NewComposite("markup", 10,
		&recorder{Base: Base{ID: "hooks", Order: 1}, log: &log},
		mdConverter{Base{ID: "markdown", Order: 2}},
	))

	md := source.NewParsed(&source.Entry{Name: "a.md"}, source.Meta{}, "")
	c, err := r.Converter(md)
	require.NoError(t, err)
	assert.Equal(t, "markdown", c.Name())
	assert.Len(t, r.Converters(), 1)
}
