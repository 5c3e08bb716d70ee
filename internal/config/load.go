package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	foundationerrors "git.home.luguber.info/inful/sitepress/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepress/internal/logfields"
)

// DefaultFile is the configuration file name looked up in the site directory.
const DefaultFile = "sitepress.yaml"

// Load reads, expands, normalizes, defaults and validates a configuration file.
// Relative paths in the file are resolved against the file's directory.
func Load(configPath string) (*Config, error) {
	baseDir := filepath.Dir(configPath)
	loadEnvFiles(baseDir)

	data, err := os.ReadFile(configPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, foundationerrors.ConfigError("configuration file not found").
			WithContext("path", configPath).
			Build()
	}
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to read config file").Build()
	}
	cfg, err := Parse([]byte(os.ExpandEnv(string(data))), baseDir)
	if err != nil {
		return nil, err
	}
	cfg.File = configPath
	return cfg, nil
}

// Parse builds a configuration from YAML. Environment variables are not expanded.
func Parse(data []byte, baseDir string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "failed to parse config").Build()
	}
	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "failed to parse config").Build()
	}
	cfg.raw = raw
	cfg.BaseDir = baseDir
	return finish(&cfg)
}

// Default returns a configuration with every default applied, rooted at baseDir.
func Default(baseDir string) *Config {
	cfg := &Config{BaseDir: baseDir, raw: map[string]any{}}
	_ = NewDefaultApplier().ApplyDefaults(cfg)
	return cfg
}

func finish(cfg *Config) (*Config, error) {
	nres, err := NormalizeConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	for _, w := range nres.Warnings {
		slog.Warn("config normalization", "detail", w)
	}
	if err := NewDefaultApplier().ApplyDefaults(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadEnvFiles loads .env and .env.local from dir. Variables already present
// in the process environment are kept.
func loadEnvFiles(dir string) {
	for _, name := range []string{".env", ".env.local"} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			slog.Warn("Failed to load env file", logfields.Path(p), logfields.Error(err))
			continue
		}
		slog.Debug("Loaded environment variables", logfields.Path(p))
	}
}

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return foundationerrors.NewError(foundationerrors.CategoryAlreadyExists, "configuration file already exists (use --force to overwrite)").
			WithContext("path", configPath).
			Build()
	}

	example := Default(".")
	example.Title = "My Site"
	example.URL = "https://example.com"
	example.Paginate = 10
	example.Categories = map[string]string{"notes": "Notes"}
	example.CategoryTitlePrefix = "Category: "
	example.TagTitlePrefix = "Tag: "
	example.Styles = StylesConfig{Source: "styles", Output: "css/style.css"}
	example.RelatedPosts = RelatedConfig{Enabled: true, Count: 5}
	example.Metrics = MetricsConfig{Enabled: false, Path: "/metrics"}
	example.Cache = CacheConfig{Backend: CacheSQLite, Path: filepath.Join("target", "work", "sources.db")}

	data, err := yaml.Marshal(example)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	header := "# sitepress site configuration\n# Environment variables such as ${NATS_URL} are expanded on load.\n"
	if err := os.MkdirAll(filepath.Dir(configPath), 0o750); err != nil {
		return err
	}
	if err := os.WriteFile(configPath, append([]byte(header), data...), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
