package frontmatter

import (
	"bytes"
	"errors"

	"gopkg.in/yaml.v3"
)

const delimiter = "---"

var bom = []byte{0xEF, 0xBB, 0xBF}

var (
	// ErrNoFrontMatter means the first line is not the opening delimiter.
	ErrNoFrontMatter = errors.New("document does not start with a front matter delimiter")
	// ErrMissingClosingDelimiter means the header was opened but never closed.
	ErrMissingClosingDelimiter = errors.New("front matter start delimiter found but closing delimiter is missing")
)

// Style records the newline convention of a document so Join can reproduce it.
type Style struct {
	Newline string
}

// Split separates the `---` delimited header from the body.
//
// The first line must be exactly the delimiter, optionally preceded by a UTF-8
// byte-order mark. The header ends at the next line consisting only of the
// delimiter; that line may be the last one in the file. Everything after it is
// returned verbatim as body.
func Split(content []byte) (header []byte, body []byte, style Style, err error) {
	style = detectStyle(content)
	content = bytes.TrimPrefix(content, bom)

	first, rest, _ := cutLine(content)
	if string(first) != delimiter {
		return nil, nil, style, ErrNoFrontMatter
	}

	offset := 0
	for offset <= len(rest) {
		line, remainder, found := cutLine(rest[offset:])
		if string(line) == delimiter {
			return rest[:offset], remainder, style, nil
		}
		if !found {
			break
		}
		offset = len(rest) - len(remainder)
	}
	return nil, nil, style, ErrMissingClosingDelimiter
}

// cutLine returns the first line without its terminator, the rest of the
// input after the terminator, and whether a terminator was present.
func cutLine(b []byte) (line []byte, rest []byte, found bool) {
	i := bytes.IndexByte(b, '\n')
	if i < 0 {
		return bytes.TrimSuffix(b, []byte("\r")), nil, false
	}
	return bytes.TrimSuffix(b[:i], []byte("\r")), b[i+1:], true
}

// Join reassembles a document from a serialized header and a body.
func Join(header []byte, body []byte, style Style) []byte {
	nl := style.Newline
	if nl == "" {
		nl = "\n"
	}
	out := make([]byte, 0, len(header)+len(body)+2*(len(delimiter)+len(nl)))
	out = append(out, delimiter+nl...)
	out = append(out, header...)
	if len(header) > 0 && !bytes.HasSuffix(header, []byte(nl)) {
		out = append(out, nl...)
	}
	out = append(out, delimiter+nl...)
	out = append(out, body...)
	return out
}

// ParseYAML parses a raw header (without delimiters) into a map.
// An empty header yields an empty map.
func ParseYAML(header []byte) (map[string]any, error) {
	fields := map[string]any{}
	if len(bytes.TrimSpace(header)) == 0 {
		return fields, nil
	}
	if err := yaml.Unmarshal(header, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}

func detectStyle(content []byte) Style {
	if i := bytes.IndexByte(content, '\n'); i > 0 && content[i-1] == '\r' {
		return Style{Newline: "\r\n"}
	}
	return Style{Newline: "\n"}
}
