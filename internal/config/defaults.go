package config

import (
	"fmt"
	"path/filepath"
)

// DefaultApplier applies defaults for one configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

// CompositeDefaultApplier applies defaults across all configuration domains.
type CompositeDefaultApplier struct {
	appliers []DefaultApplier
}

// NewDefaultApplier creates a composite applier with every domain applier.
func NewDefaultApplier() *CompositeDefaultApplier {
	return &CompositeDefaultApplier{
		appliers: []DefaultApplier{
			&SiteDefaultApplier{},
			&PathsDefaultApplier{},
			&ContentDefaultApplier{},
			&TaxonomyDefaultApplier{},
			&CacheDefaultApplier{},
			&IntegrationDefaultApplier{},
		},
	}
}

// ApplyDefaults applies defaults for all configuration domains.
func (c *CompositeDefaultApplier) ApplyDefaults(cfg *Config) error {
	for _, applier := range c.appliers {
		if err := applier.ApplyDefaults(cfg); err != nil {
			return fmt.Errorf("applying defaults for %s: %w", applier.Domain(), err)
		}
	}
	return nil
}

// GetApplierByDomain returns a specific domain applier.
func (c *CompositeDefaultApplier) GetApplierByDomain(domain string) DefaultApplier {
	for _, applier := range c.appliers {
		if applier.Domain() == domain {
			return applier
		}
	}
	return nil
}

// SiteDefaultApplier handles locale, dates and logging.
type SiteDefaultApplier struct{}

func (SiteDefaultApplier) Domain() string { return "site" }

func (SiteDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Locale == "" {
		cfg.Locale = "en"
	}
	if cfg.DateFormat == "" {
		cfg.DateFormat = "2006-01-02"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = LogLevelInfo
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = LogFormatText
	}
	if cfg.Threads == 0 {
		cfg.Threads = 1
	}
	return nil
}

// PathsDefaultApplier handles the directory layout.
type PathsDefaultApplier struct{}

func (PathsDefaultApplier) Domain() string { return "paths" }

func (PathsDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.BaseDir == "" {
		cfg.BaseDir = "."
	}
	if len(cfg.SourceDirs) == 0 {
		cfg.SourceDirs = []string{"pages", "posts"}
	}
	if cfg.AssetDirs == nil {
		cfg.AssetDirs = []string{"assets"}
	}
	if cfg.TemplateDir == "" {
		cfg.TemplateDir = "templates"
	}
	if cfg.DestDir == "" {
		cfg.DestDir = filepath.Join("target", "public")
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = filepath.Join("target", "work")
	}
	return nil
}

// ContentDefaultApplier handles permalinks, new file patterns, pagination and excerpts.
type ContentDefaultApplier struct{}

func (ContentDefaultApplier) Domain() string { return "content" }

func (ContentDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Permalink == "" {
		cfg.Permalink = "/article/{{.year}}/{{.month}}/{{.name}}.html"
	}
	if cfg.NewPost == "" {
		cfg.NewPost = "posts/{{.year}}-{{.month}}-{{.day}}-{{.name}}.{{.format}}"
	}
	if cfg.NewPage == "" {
		cfg.NewPage = "pages/{{.name}}.{{.format}}"
	}
	if cfg.Pagination.Collection == "" {
		cfg.Pagination.Collection = "post"
	}
	if cfg.ExcerptSeparator == "" {
		cfg.ExcerptSeparator = "<!--more-->"
	}
	return nil
}

// TaxonomyDefaultApplier handles category and tag listing pages.
type TaxonomyDefaultApplier struct{}

func (TaxonomyDefaultApplier) Domain() string { return "taxonomy" }

func (TaxonomyDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.CategoryTemplate == "" {
		cfg.CategoryTemplate = "category.html"
	}
	if cfg.TagTemplate == "" {
		cfg.TagTemplate = "tag.html"
	}
	return nil
}

// CacheDefaultApplier handles the source cache backend.
type CacheDefaultApplier struct{}

func (CacheDefaultApplier) Domain() string { return "cache" }

func (CacheDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = CacheMemory
	}
	if cfg.Cache.Backend == CacheSQLite && cfg.Cache.Path == "" {
		cfg.Cache.Path = filepath.Join(cfg.WorkDir, "sources.db")
	}
	if cfg.Cache.RedisPrefix == "" {
		cfg.Cache.RedisPrefix = "sitepress:"
	}
	return nil
}

// IntegrationDefaultApplier handles related posts, notifications, metrics,
// styles and the preview server.
type IntegrationDefaultApplier struct{}

func (IntegrationDefaultApplier) Domain() string { return "integration" }

func (IntegrationDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.RelatedPosts.Count <= 0 {
		cfg.RelatedPosts.Count = 5
	}
	if cfg.Notify.Subject == "" {
		cfg.Notify.Subject = "sitepress.builds"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Styles.Source != "" && cfg.Styles.Output == "" {
		cfg.Styles.Output = "css/style.css"
	}
	if cfg.Preview.Listen == "" {
		cfg.Preview.Listen = "127.0.0.1:8080"
	}
	if cfg.Preview.Debounce == "" {
		cfg.Preview.Debounce = "300ms"
	}
	return nil
}
