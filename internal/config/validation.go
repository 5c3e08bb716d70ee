package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	foundationerrors "git.home.luguber.info/inful/sitepress/internal/foundation/errors"
)

// ValidateConfig checks a normalized, defaulted configuration.
func ValidateConfig(cfg *Config) error {
	v := &configurationValidator{config: cfg}
	for _, check := range []func() error{
		v.validatePaths,
		v.validatePatterns,
		v.validatePagination,
		v.validateCache,
		v.validatePreview,
	} {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

type configurationValidator struct {
	config *Config
}

func (cv *configurationValidator) validatePaths() error {
	if len(cv.config.SourceDirs) == 0 {
		return foundationerrors.ConfigError("at least one source directory is required").Build()
	}
	dest, err := filepath.Abs(cv.config.DestPath())
	if err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "invalid dest_dir").Build()
	}
	for _, src := range cv.config.SourcePaths() {
		abs, err := filepath.Abs(src)
		if err != nil {
			return foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "invalid source directory").Build()
		}
		if within(abs, dest) || within(dest, abs) {
			return foundationerrors.ConfigError("destination directory overlaps a source directory").
				WithContext("dest_dir", dest).
				WithContext("source_dir", abs).
				Build()
		}
	}
	return nil
}

// within reports whether p equals dir or is nested below it.
func within(p, dir string) bool {
	rel, err := filepath.Rel(dir, p)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func (cv *configurationValidator) validatePatterns() error {
	patterns := map[string]string{
		"permalink":            cv.config.Permalink,
		"new_post":             cv.config.NewPost,
		"new_page":             cv.config.NewPage,
		"pagination.permalink": cv.config.Pagination.Permalink,
	}
	for layout, p := range cv.config.Permalinks {
		patterns["permalinks."+layout] = p
	}
	for name, p := range patterns {
		if p == "" {
			continue
		}
		if _, err := template.New(name).Option("missingkey=error").Parse(p); err != nil {
			return foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "invalid pattern").
				WithContext("field", name).
				Build()
		}
	}
	return nil
}

func (cv *configurationValidator) validatePagination() error {
	if f := cv.config.Pagination.TitleSuffixFormat; f != "" && !strings.Contains(f, "%d") {
		return foundationerrors.ConfigError("pagination.title_suffix_format must contain %d").Build()
	}
	return nil
}

func (cv *configurationValidator) validateCache() error {
	if cv.config.Cache.Backend == CacheRedis && cv.config.Cache.RedisAddr == "" {
		return foundationerrors.ConfigError("cache.redis_addr is required for the redis backend").Build()
	}
	return nil
}

func (cv *configurationValidator) validatePreview() error {
	for field, raw := range map[string]string{
		"preview.debounce":      cv.config.Preview.Debounce,
		"preview.poll_interval": cv.config.Preview.PollInterval,
	} {
		if raw == "" {
			continue
		}
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return foundationerrors.ConfigError(fmt.Sprintf("%s must be a positive duration", field)).
				WithContext("value", raw).
				Build()
		}
	}
	return nil
}
