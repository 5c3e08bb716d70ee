package config

import (
	"fmt"
	"strings"
)

// NormalizationResult captures coercions made before defaults are applied.
type NormalizationResult struct{ Warnings []string }

// NormalizeConfig canonicalizes enumerations and bounds in place.
func NormalizeConfig(c *Config) (*NormalizationResult, error) {
	if c == nil {
		return nil, fmt.Errorf("config nil")
	}
	res := &NormalizationResult{}

	if lvl, err := logLevelNormalizer.NormalizeWithValidation(string(c.Logging.Level)); err != nil {
		res.warnUnknown("logging.level", string(c.Logging.Level), string(LogLevelInfo))
		c.Logging.Level = LogLevelInfo
	} else if string(lvl) != string(c.Logging.Level) && c.Logging.Level != "" {
		res.warnChanged("logging.level", c.Logging.Level, lvl)
		c.Logging.Level = lvl
	}

	if f, err := logFormatNormalizer.NormalizeWithValidation(string(c.Logging.Format)); err != nil {
		res.warnUnknown("logging.format", string(c.Logging.Format), string(LogFormatText))
		c.Logging.Format = LogFormatText
	} else if string(f) != string(c.Logging.Format) && c.Logging.Format != "" {
		res.warnChanged("logging.format", c.Logging.Format, f)
		c.Logging.Format = f
	}

	if b, err := cacheBackendNormalizer.NormalizeWithValidation(string(c.Cache.Backend)); err != nil {
		res.warnUnknown("cache.backend", string(c.Cache.Backend), string(CacheMemory))
		c.Cache.Backend = CacheMemory
	} else if string(b) != string(c.Cache.Backend) && c.Cache.Backend != "" {
		res.warnChanged("cache.backend", c.Cache.Backend, b)
		c.Cache.Backend = b
	}

	if c.Threads < 0 {
		res.warnChanged("threads", c.Threads, 1)
		c.Threads = 1
	}
	if c.Paginate < 0 {
		res.warnChanged("paginate", c.Paginate, 0)
		c.Paginate = 0
	}
	if c.Pagination.Size < 0 {
		res.warnChanged("pagination.size", c.Pagination.Size, 0)
		c.Pagination.Size = 0
	}

	if df := normalizeDateFormat(c.DateFormat); df != c.DateFormat {
		res.warnChanged("date_format", c.DateFormat, df)
		c.DateFormat = df
	}

	if r := normalizeRoot(c.Root); r != c.Root {
		c.Root = r
	}
	return res, nil
}

var javaDateTokens = strings.NewReplacer(
	"yyyy", "2006",
	"MMM", "Jan",
	"MM", "01",
	"dd", "02",
	"HH", "15",
	"mm", "04",
	"ss", "05",
	"d", "2",
)

// normalizeDateFormat accepts Go layouts unchanged, maps "ordinal" to a long
// form and rewrites yyyy/MM/dd style patterns into Go layouts.
func normalizeDateFormat(raw string) string {
	switch strings.TrimSpace(raw) {
	case "":
		return ""
	case "ordinal":
		return "Jan 2 2006"
	}
	if strings.Contains(raw, "yyyy") {
		return javaDateTokens.Replace(raw)
	}
	return raw
}

// normalizeRoot strips trailing slashes and ensures a leading one.
func normalizeRoot(raw string) string {
	r := strings.TrimRight(strings.TrimSpace(raw), "/")
	if r != "" && !strings.HasPrefix(r, "/") {
		r = "/" + r
	}
	return r
}

func (r *NormalizationResult) warnChanged(field string, from, to any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf("normalized %s from '%v' to '%v'", field, from, to))
}

func (r *NormalizationResult) warnUnknown(field, value, def string) {
	r.Warnings = append(r.Warnings, fmt.Sprintf("unknown %s '%s', defaulting to %s", field, value, def))
}
