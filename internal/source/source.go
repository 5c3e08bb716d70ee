package source

import (
	"errors"
	"strings"

	"github.com/inful/mdfp"

	"git.home.luguber.info/inful/sitepress/internal/frontmatter"
)

// ErrNotAContentSource marks a file without a front matter header. It is a
// classification result, not a failure.
var ErrNotAContentSource = errors.New("not a content source")

// Source is a parsed content file: its entry, header metadata and raw body.
type Source interface {
	Entry() *Entry
	Meta() Meta
	Body() string
}

// Parsed is an immutable Source produced by a Parser.
type Parsed struct {
	entry *Entry
	meta  Meta
	body  string
}

// NewParsed builds a Source. meta is not copied; callers must not mutate it afterwards.
func NewParsed(entry *Entry, meta Meta, body string) *Parsed {
	if meta == nil {
		meta = Meta{}
	}
	return &Parsed{entry: entry, meta: meta, body: body}
}

func (p *Parsed) Entry() *Entry { return p.entry }
func (p *Parsed) Meta() Meta    { return p.meta }
func (p *Parsed) Body() string  { return p.body }

// Keys excluded from the content fingerprint because they change without
// the content changing.
var volatileKeys = map[string]struct{}{
	mdfp.FingerprintField: {},
	"lastmod":             {},
	"uid":                 {},
	"aliases":             {},
	"updated":             {},
}

// Fingerprint returns the canonical content hash of a source's header and body.
func Fingerprint(src Source) (string, error) {
	return FingerprintParts(src.Meta(), src.Body())
}

// FingerprintParts hashes a header map and body the same way Fingerprint does.
func FingerprintParts(meta map[string]any, body string) (string, error) {
	fields := make(map[string]any, len(meta))
	for k, v := range meta {
		if _, skip := volatileKeys[k]; skip {
			continue
		}
		fields[k] = v
	}
	header := ""
	if len(fields) > 0 {
		serialized, err := frontmatter.SerializeYAML(fields, frontmatter.Style{Newline: "\n"})
		if err != nil {
			return "", err
		}
		header = strings.TrimSuffix(string(serialized), "\n")
	}
	return mdfp.CalculateFingerprintFromParts(header, body), nil
}
