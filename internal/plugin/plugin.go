// Package plugin provides the extension system of the build pipeline.
//
// An extension declares a name and a priority and implements any subset of
// the hook interfaces below. Converters and generators are extensions with
// additional capabilities.
package plugin

import (
	"context"
	"errors"
	"fmt"

	"git.home.luguber.info/inful/sitepress/internal/site"
	"git.home.luguber.info/inful/sitepress/internal/source"
)

// Stage names a pipeline stage that extensions can hook into.
type Stage string

const (
	StageSetup       Stage = "setup"
	StageRead        Stage = "read"
	StagePageRead    Stage = "page_read"
	StageGenerate    Stage = "generate"
	StagePageConvert Stage = "page_convert"
	StageConvert     Stage = "convert"
	StagePreRender   Stage = "pre_render"
	StagePageRender  Stage = "page_render"
	StageRender      Stage = "render"
	StageCleanup     Stage = "cleanup"
	StageWrite       Stage = "write"
)

// ErrNoConverterFound is returned when no converter matches a source.
var ErrNoConverterFound = errors.New("no converter found")

// Extension is the identity every extension carries.
type Extension interface {
	// Name identifies the extension in logs and errors.
	Name() string
	// Priority orders extensions; lower values run first.
	Priority() int
}

// Base implements Extension for embedding.
type Base struct {
	ID    string
	Order int
}

func (b Base) Name() string  { return b.ID }
func (b Base) Priority() int { return b.Order }

// SetupHook runs once before sources are read.
type SetupHook interface {
	OnSetup(ctx context.Context, s *site.Site) error
}

// ReadHook runs after all sources have been read.
type ReadHook interface {
	OnRead(ctx context.Context, s *site.Site) error
}

// PageReadHook runs for every page created by the read stage.
type PageReadHook interface {
	OnPageRead(ctx context.Context, s *site.Site, p *site.Page) error
}

// GenerateHook adds pages derived from the site, such as listings.
type GenerateHook interface {
	OnGenerate(ctx context.Context, s *site.Site) error
}

// PageConvertHook runs for every page after its content was converted.
type PageConvertHook interface {
	OnPageConvert(ctx context.Context, s *site.Site, p *site.Page) error
}

// ConvertHook runs once after all pages were converted.
type ConvertHook interface {
	OnConvert(ctx context.Context, s *site.Site) error
}

// PreRenderHook runs once before rendering starts.
type PreRenderHook interface {
	OnPreRender(ctx context.Context, s *site.Site) error
}

// PageRenderHook runs for every page after it was rendered.
type PageRenderHook interface {
	OnPageRender(ctx context.Context, s *site.Site, p *site.Page) error
}

// RenderHook runs once after all pages were rendered.
type RenderHook interface {
	OnRender(ctx context.Context, s *site.Site) error
}

// CleanupHook runs before output is written.
type CleanupHook interface {
	OnCleanup(ctx context.Context, s *site.Site) error
}

// WriteHook runs after output has been written.
type WriteHook interface {
	OnWrite(ctx context.Context, s *site.Site) error
}

// Generator is an extension that contributes pages in the generate stage.
type Generator interface {
	Extension
	GenerateHook
}

// Converter turns page bodies of one markup language into HTML.
type Converter interface {
	Extension
	Matches(src source.Source) bool
	Convert(body string) (string, error)
	OutputExtension(src source.Source) string
}

// IsFilter reports whether ext implements at least one hook.
func IsFilter(ext Extension) bool {
	switch ext.(type) {
	case SetupHook, ReadHook, PageReadHook, GenerateHook, PageConvertHook, ConvertHook,
		PreRenderHook, PageRenderHook, RenderHook, CleanupHook, WriteHook:
		return true
	}
	return false
}

// ExtensionError reports a failing extension and the stage it failed in.
type ExtensionError struct {
	Extension string
	Stage     Stage
	Page      string
	Err       error
}

func (e *ExtensionError) Error() string {
	if e.Page != "" {
		return fmt.Sprintf("extension %s failed in %s for %s: %v", e.Extension, e.Stage, e.Page, e.Err)
	}
	return fmt.Sprintf("extension %s failed in %s: %v", e.Extension, e.Stage, e.Err)
}

func (e *ExtensionError) Unwrap() error { return e.Err }
