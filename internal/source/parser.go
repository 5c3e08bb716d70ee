package source

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/afero"

	foundationerrors "git.home.luguber.info/inful/sitepress/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepress/internal/frontmatter"
	"git.home.luguber.info/inful/sitepress/internal/logfields"
)

// Parser turns an Entry into a Source.
type Parser interface {
	Parse(entry *Entry) (Source, error)
}

// FileParser reads entries from an afero filesystem.
type FileParser struct {
	fs afero.Fs
}

// NewFileParser returns a parser reading from fs.
func NewFileParser(fs afero.Fs) *FileParser {
	return &FileParser{fs: fs}
}

// Parse reads the entry and splits its header from the body.
//
// A file whose first line is not `---`, or whose header is never closed,
// yields ErrNotAContentSource. Invalid YAML inside a closed header is an error.
func (p *FileParser) Parse(entry *Entry) (Source, error) {
	content, err := afero.ReadFile(p.fs, entry.AbsPath)
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to read source").
			WithContext("path", entry.AbsPath).
			Build()
	}

	header, body, _, err := frontmatter.Split(content)
	switch {
	case errors.Is(err, frontmatter.ErrNoFrontMatter):
		return nil, fmt.Errorf("%w: %s", ErrNotAContentSource, entry.AbsPath)
	case errors.Is(err, frontmatter.ErrMissingClosingDelimiter):
		slog.Debug("Unterminated front matter, treating file as static", logfields.Path(entry.AbsPath))
		return nil, fmt.Errorf("%w: %s", ErrNotAContentSource, entry.AbsPath)
	case err != nil:
		return nil, err
	}

	fields, err := frontmatter.ParseYAML(header)
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategorySource, "invalid front matter").
			WithContext("path", entry.AbsPath).
			UserAction().
			Build()
	}
	return NewParsed(entry, Meta(fields), string(body)), nil
}
