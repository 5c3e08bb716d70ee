// Package slug turns titles and category names into URL path segments.
package slug

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrSlugGeneration is returned when text reduces to an empty slug.
var ErrSlugGeneration = errors.New("cannot generate slug")

// Helper converts free text into a slug.
type Helper interface {
	Slug(text string) (string, error)
}

// HelperFunc adapts a function to Helper.
type HelperFunc func(string) (string, error)

func (f HelperFunc) Slug(text string) (string, error) { return f(text) }

// Simple removes characters that are not allowed in file names and trims
// surrounding dots and spaces. Everything else is kept as written, with inner
// whitespace folded to '-'.
type Simple struct{}

func (Simple) Slug(text string) (string, error) {
	var b strings.Builder
	for _, r := range text {
		switch r {
		case '\\', '/', ':', '*', '?', '"', '<', '>', '|':
			continue
		}
		if unicode.IsSpace(r) {
			r = '-'
		}
		b.WriteRune(r)
	}
	out := strings.Trim(b.String(), ". -")
	if out == "" {
		return "", fmt.Errorf("%w from %q", ErrSlugGeneration, text)
	}
	return out, nil
}

// Transliterating folds accents, lowercases with locale rules and joins
// letter/digit runs with '-'. Letters outside the Latin script are kept.
type Transliterating struct {
	lower cases.Caser
}

// NewTransliterating returns a helper using the casing rules of locale.
func NewTransliterating(locale language.Tag) *Transliterating {
	return &Transliterating{lower: cases.Lower(locale)}
}

func (t *Transliterating) Slug(text string) (string, error) {
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, text)
	if err != nil {
		return "", fmt.Errorf("%w from %q: %v", ErrSlugGeneration, text, err)
	}
	folded = t.lower.String(folded)

	var b strings.Builder
	dash := false
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
			continue
		}
		dash = true
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("%w from %q", ErrSlugGeneration, text)
	}
	return b.String(), nil
}

// Chain tries each helper in order and returns the first slug produced.
type Chain []Helper

func (c Chain) Slug(text string) (string, error) {
	err := fmt.Errorf("%w from %q", ErrSlugGeneration, text)
	for _, h := range c {
		s, herr := h.Slug(text)
		if herr == nil {
			return s, nil
		}
		err = herr
	}
	return "", err
}

// ForLocale returns the default helper chain for a locale string such as
// "en" or "de-DE". Unknown locales fall back to language.Und.
func ForLocale(locale string) Helper {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Und
	}
	return Chain{NewTransliterating(tag), Simple{}}
}

// Title renders a slug as a display name, e.g. "web-dev" becomes "Web Dev".
func Title(locale, slug string) string {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Und
	}
	return cases.Title(tag).String(strings.ReplaceAll(slug, "-", " "))
}
