package preview

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitepress/internal/config"
	"git.home.luguber.info/inful/sitepress/internal/metrics"
)

func get(t *testing.T, h http.Handler, path string) (int, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	return rec.Code, string(body)
}

func serverFixture(t *testing.T) (afero.Fs, *config.Config) {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/site/target/public/about.html", []byte("<p>about</p>"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/site/target/public/blog/index.html", []byte("<p>blog</p>"), 0o644))
	return fs, config.Default("/site")
}

func TestServerServesDestination(t *testing.T) {
	fs, cfg := serverFixture(t)
	srv := NewServer(fs, cfg, func() Status { return Status{} }, nil)

	code, body := get(t, srv.Handler(), "/about.html")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "<p>about</p>", body)

	code, body = get(t, srv.Handler(), "/blog/")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "<p>blog</p>", body)

	code, _ = get(t, srv.Handler(), "/missing.html")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestServerStripsRoot(t *testing.T) {
	fs, cfg := serverFixture(t)
	cfg.Root = "/docs"
	srv := NewServer(fs, cfg, func() Status { return Status{} }, nil)

	code, body := get(t, srv.Handler(), "/docs/about.html")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "<p>about</p>", body)

	code, _ = get(t, srv.Handler(), "/about.html")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestServerStatus(t *testing.T) {
	fs, cfg := serverFixture(t)
	srv := NewServer(fs, cfg, func() Status {
		return Status{State: "idle", LastAction: "rebuild", Handled: 3}
	}, nil)

	code, body := get(t, srv.Handler(), StatusPath)
	require.Equal(t, http.StatusOK, code)
	var st Status
	require.NoError(t, json.Unmarshal([]byte(body), &st))
	assert.Equal(t, "idle", st.State)
	assert.Equal(t, "rebuild", st.LastAction)
	assert.Equal(t, 3, st.Handled)
}

func TestServerMetrics(t *testing.T) {
	fs, cfg := serverFixture(t)
	reg := prometheus.NewRegistry()
	rec := metrics.NewPrometheusRecorder(reg)
	rec.IncPreviewAction("copy_static")

	srv := NewServer(fs, cfg, func() Status { return Status{} }, metrics.HTTPHandler(reg))
	code, _ := get(t, srv.Handler(), "/metrics")
	assert.Equal(t, http.StatusNotFound, code)

	cfg.Metrics.Enabled = true
	cfg.Metrics.Path = "/metrics"
	srv = NewServer(fs, cfg, func() Status { return Status{} }, metrics.HTTPHandler(reg))
	code, body := get(t, srv.Handler(), "/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "copy_static")
}
