package errors

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderProducesClassifiedError(t *testing.T) {
	cause := stderrors.New("disk full")
	err := WrapError(cause, CategoryFileSystem, "write output").
		Warning().
		WithContext("path", "target/public/index.html").
		Build()

	assert.Equal(t, CategoryFileSystem, err.Category())
	assert.Equal(t, SeverityWarning, err.Severity())
	assert.ErrorIs(t, err, cause)
	path, ok := err.Context().GetString("path")
	require.True(t, ok)
	assert.Equal(t, "target/public/index.html", path)
	assert.Contains(t, err.Error(), "[filesystem:warning] write output: disk full")
}

func TestAsClassifiedFindsWrappedError(t *testing.T) {
	inner := ConfigError("missing parent category").Build()
	wrapped := fmt.Errorf("load site: %w", inner)

	got, ok := AsClassified(wrapped)
	require.True(t, ok)
	assert.Same(t, inner, got)
	assert.True(t, HasCategory(wrapped, CategoryConfig))
	assert.Equal(t, CategoryInternal, GetCategory(stderrors.New("plain")))
}

func TestWithContextDoesNotMutateOriginal(t *testing.T) {
	base := SourceError("bad header").Build()
	derived := base.WithContext("path", "posts/a.md")

	_, ok := base.Context().Get("path")
	assert.False(t, ok)
	v, ok := derived.Context().GetString("path")
	require.True(t, ok)
	assert.Equal(t, "posts/a.md", v)
}

func TestConvenienceConstructors(t *testing.T) {
	assert.True(t, ConfigError("x").Build().IsFatal())
	assert.False(t, ConfigError("x").Build().CanRetry())
	assert.True(t, FileSystemError("x").Build().CanRetry())
	assert.Equal(t, SeverityWarning, PreviewError("x").Build().Severity())
}

func TestCLIErrorAdapterExitCodes(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"validation", ValidationError("bad flag").Build(), 2},
		{"config", ConfigError("bad config").Build(), 7},
		{"network", NetworkError("feed unreachable").Build(), 8},
		{"internal", InternalError("bug").Build(), 10},
		{"build", BuildError("stage failed").Build(), 11},
		{"wrapped source", fmt.Errorf("read: %w", SourceError("bad yaml").Build()), 11},
		{"preview", PreviewError("rebuild failed").Build(), 12},
		{"unclassified", stderrors.New("boom"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, adapter.ExitCodeFor(tt.err))
		})
	}
}

func TestCLIErrorAdapterFormat(t *testing.T) {
	quiet := NewCLIErrorAdapter(false, nil)
	verbose := NewCLIErrorAdapter(true, nil)
	err := ConfigError("destination overlaps source").WithContext("dest_dir", "pages").Build()

	assert.Equal(t, "Error: destination overlaps source", quiet.FormatError(err))
	assert.Contains(t, verbose.FormatError(err), "dest_dir: pages")
	assert.Equal(t, "Internal error occurred (use -v for details)", quiet.FormatError(InternalError("x").Build()))
	assert.Equal(t, "Error: boom", quiet.FormatError(stderrors.New("boom")))
}
