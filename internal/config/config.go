package config

import (
	"path/filepath"
	"strings"
)

// Config is the site configuration loaded from sitepress.yaml.
type Config struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description,omitempty"`
	URL         string `yaml:"url"`
	// Root is the path prefix under which the site is served, e.g. "/blog".
	Root       string `yaml:"root"`
	Locale     string `yaml:"locale"`
	DateFormat string `yaml:"date_format"`

	SourceDirs  []string `yaml:"source_dirs"`
	AssetDirs   []string `yaml:"asset_dirs"`
	TemplateDir string   `yaml:"template_dir"`
	DestDir     string   `yaml:"dest_dir"`
	WorkDir     string   `yaml:"work_dir"`
	Includes    []string `yaml:"includes,omitempty"`
	Excludes    []string `yaml:"excludes,omitempty"`

	Threads    int  `yaml:"threads"`
	ShowDrafts bool `yaml:"show_drafts"`

	// Permalink is the URL pattern for posts. Permalinks overrides it per layout.
	Permalink  string            `yaml:"permalink"`
	Permalinks map[string]string `yaml:"permalinks,omitempty"`
	NewPost    string            `yaml:"new_post"`
	NewPage    string            `yaml:"new_page"`

	Paginate   int              `yaml:"paginate"`
	Pagination PaginationConfig `yaml:"pagination"`

	// Categories declares a category tree as path -> display name, e.g.
	// {"java": "Java", "java/spring": "Spring"}.
	Categories          map[string]string `yaml:"categories,omitempty"`
	CategoryTitlePrefix string            `yaml:"category_title_prefix"`
	TagTitlePrefix      string            `yaml:"tag_title_prefix"`
	CategoryTemplate    string            `yaml:"category_template"`
	TagTemplate         string            `yaml:"tag_template"`

	ExcerptSeparator string `yaml:"excerpt_separator"`
	Excerptable      *bool  `yaml:"excerptable,omitempty"`

	Cache        CacheConfig   `yaml:"cache"`
	Styles       StylesConfig  `yaml:"styles"`
	RelatedPosts RelatedConfig `yaml:"related_posts"`
	Notify       NotifyConfig  `yaml:"notify"`
	Metrics      MetricsConfig `yaml:"metrics"`
	Preview      PreviewConfig `yaml:"preview"`
	Logging      LoggingConfig `yaml:"logging"`
	GitInfo      bool          `yaml:"git_info"`

	// BaseDir is the directory relative paths are resolved against.
	BaseDir string `yaml:"-"`
	// File is the path the configuration was loaded from, if any.
	File string `yaml:"-"`

	raw map[string]any
}

// PaginationConfig controls the pagination generator.
type PaginationConfig struct {
	Size       int    `yaml:"size"`
	Collection string `yaml:"collection"`
	// Permalink is a text/template for page N URLs; empty uses the built-in rule.
	Permalink string `yaml:"permalink,omitempty"`
	// TitleSuffixFormat is a fmt format receiving the page number.
	TitleSuffixFormat string `yaml:"title_suffix_format,omitempty"`
}

// CacheConfig selects where parsed sources are cached between builds.
type CacheConfig struct {
	Backend     CacheBackend `yaml:"backend"`
	Path        string       `yaml:"path,omitempty"`
	RedisAddr   string       `yaml:"redis_addr,omitempty"`
	RedisPrefix string       `yaml:"redis_prefix,omitempty"`
}

// StylesConfig configures the stylesheet bundler.
type StylesConfig struct {
	// Source is a directory of *.css files, relative to BaseDir.
	Source string `yaml:"source,omitempty"`
	// Output is the bundle path relative to the destination directory.
	Output string `yaml:"output,omitempty"`
}

// RelatedConfig configures related post lookup.
type RelatedConfig struct {
	Enabled bool `yaml:"enabled"`
	Count   int  `yaml:"count"`
}

// NotifyConfig configures build event publishing.
type NotifyConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// PreviewConfig configures the preview server and watcher.
type PreviewConfig struct {
	Listen       string `yaml:"listen"`
	Debounce     string `yaml:"debounce"`
	PollInterval string `yaml:"poll_interval,omitempty"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// Resolve returns p joined to BaseDir unless it is already absolute.
func (c *Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.BaseDir, p)
}

func (c *Config) resolveAll(ps []string) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, c.Resolve(p))
	}
	return out
}

// SourcePaths returns the resolved content directories.
func (c *Config) SourcePaths() []string { return c.resolveAll(c.SourceDirs) }

// AssetPaths returns the resolved static asset directories.
func (c *Config) AssetPaths() []string { return c.resolveAll(c.AssetDirs) }

// TemplatePath returns the resolved template directory.
func (c *Config) TemplatePath() string { return c.Resolve(c.TemplateDir) }

// DestPath returns the resolved output directory.
func (c *Config) DestPath() string { return c.Resolve(c.DestDir) }

// WorkPath returns the resolved working directory.
func (c *Config) WorkPath() string { return c.Resolve(c.WorkDir) }

// PermalinkFor returns the URL pattern for pages with the given layout, or ""
// when the layout has none. permalinks.<layout> wins over a top-level
// permalink_<layout> key; posts fall back to Permalink.
func (c *Config) PermalinkFor(layout string) string {
	if p, ok := c.Permalinks[layout]; ok {
		return p
	}
	if p, ok := c.Get("permalink_" + layout).(string); ok {
		return p
	}
	if layout == "post" {
		return c.Permalink
	}
	return ""
}

// ExcerptsEnabled reports whether post excerpts are extracted.
func (c *Config) ExcerptsEnabled() bool {
	return c.Excerptable == nil || *c.Excerptable
}

// Get looks up a dotted key in the raw configuration document, so extensions
// and templates can read settings that have no typed field.
func (c *Config) Get(key string) any {
	var cur any = c.raw
	for _, part := range strings.Split(key, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		if cur, ok = m[part]; !ok {
			return nil
		}
	}
	return cur
}

// Raw returns the raw configuration document.
func (c *Config) Raw() map[string]any {
	return c.raw
}

// SetRaw replaces the raw document used by Get.
func (c *Config) SetRaw(raw map[string]any) {
	c.raw = raw
}
