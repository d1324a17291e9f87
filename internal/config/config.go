// Package config handles configuration loading from TOML files and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/phobologic/jssuggest/internal/encode"
	"github.com/phobologic/jssuggest/internal/lang"
	"github.com/phobologic/jssuggest/internal/parse"
)

// FileName is the config file looked up in the scanned directory.
const FileName = ".jssuggest.toml"

// DefaultMaxFileSize is the size above which files are skipped.
const DefaultMaxFileSize = 1_000_000 // 1 MB

// Config is the root configuration structure.
type Config struct {
	// ECMAVersion accepts 3, 5, 6-16, 2015-2025 or "latest".
	ECMAVersion Version     `toml:"ecma_version"`
	Format      string      `toml:"format"`
	Edition     int         `toml:"edition"`
	Inherited   bool        `toml:"inherited"`
	MaxFileSize int64       `toml:"max_file_size"`
	MaxFiles    int         `toml:"max_files"`
	Languages   []string    `toml:"languages"`
	SkipTests   bool        `toml:"skip_tests"`
	Workers     int         `toml:"workers"`
	Debug       bool        `toml:"debug"`
	Watch       WatchConfig `toml:"watch"`
}

// WatchConfig holds settings for the watch command.
type WatchConfig struct {
	DebounceMS int `toml:"debounce_ms"`
}

// DebounceOrDefault returns the configured debounce or 200ms if unset.
func (w WatchConfig) DebounceOrDefault() time.Duration {
	if w.DebounceMS <= 0 {
		return 200 * time.Millisecond
	}
	return time.Duration(w.DebounceMS) * time.Millisecond
}

// Version is an ecma_version value. TOML may spell it as an integer or a
// string.
type Version string

// UnmarshalTOML implements toml.Unmarshaler.
func (v *Version) UnmarshalTOML(data any) error {
	switch d := data.(type) {
	case int64:
		*v = Version(strconv.FormatInt(d, 10))
	case string:
		*v = Version(d)
	default:
		return fmt.Errorf("ecma_version: expected integer or string, got %T", data)
	}
	return nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Format:      string(encode.JSON),
		MaxFileSize: DefaultMaxFileSize,
	}
}

// Find returns the path of the config file in dir, or "" if there is none.
func Find(dir string) string {
	path := filepath.Join(dir, FileName)
	if fi, err := os.Stat(path); err == nil && !fi.IsDir() {
		return path
	}
	return ""
}

// Load reads configuration from a TOML file and applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		return nil, fmt.Errorf("config path is required")
	}

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown config key %q in %s", undecoded[0].String(), path)
	}

	return finish(cfg)
}

// Resolve loads path when it is set and the defaults otherwise, then applies
// environment variable overrides.
func Resolve(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}
	return finish(Default())
}

func finish(cfg *Config) (*Config, error) {
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate returns an error if the configuration is invalid.
func (c *Config) Validate() error {
	var errs []error

	if _, err := parse.ParseECMAVersion(string(c.ECMAVersion)); err != nil {
		errs = append(errs, fmt.Errorf("ecma_version=%q: %w", c.ECMAVersion, err))
	}
	if _, err := encode.ParseFormat(c.Format); err != nil {
		errs = append(errs, fmt.Errorf("format: %w", err))
	}
	if c.Edition != 0 && (c.Edition < 5 || c.Edition > int(parse.LatestECMAVersion)) {
		errs = append(errs, fmt.Errorf("edition=%d must be 0 or between 5 and %d", c.Edition, parse.LatestECMAVersion))
	}
	if c.MaxFileSize < 0 {
		errs = append(errs, fmt.Errorf("max_file_size=%d must not be negative", c.MaxFileSize))
	}
	if c.MaxFiles < 0 {
		errs = append(errs, fmt.Errorf("max_files=%d must not be negative", c.MaxFiles))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers=%d must not be negative", c.Workers))
	}
	for _, name := range c.Languages {
		if _, err := lang.Lookup(name); err != nil {
			errs = append(errs, fmt.Errorf("languages: %w", err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Version returns the parsed ecma_version. It must only be called on a
// validated Config.
func (c *Config) Version() parse.ECMAVersion {
	v, err := parse.ParseECMAVersion(string(c.ECMAVersion))
	if err != nil {
		return parse.DefaultECMAVersion
	}
	return v
}

// OutputFormat returns the parsed format, JSON when unset or invalid.
func (c *Config) OutputFormat() encode.Format {
	f, err := encode.ParseFormat(c.Format)
	if err != nil {
		return encode.JSON
	}
	return f
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) error {
	var errs []error
	for _, setter := range []struct {
		env   string
		apply func(string)
	}{
		{"JSSUGGEST_ECMA_VERSION", func(v string) {
			if v != "" {
				cfg.ECMAVersion = Version(v)
			}
		}},
		{"JSSUGGEST_FORMAT", func(v string) {
			if v != "" {
				cfg.Format = v
			}
		}},
		{"JSSUGGEST_DEBUG", func(v string) {
			if v == "" {
				return
			}
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("JSSUGGEST_DEBUG=%q: %w", v, err))
				return
			}
			cfg.Debug = b
		}},
	} {
		setter.apply(os.Getenv(setter.env))
	}
	return errors.Join(errs...)
}

// Starter is the commented config written by `jssuggest init`.
const Starter = `# Parse profile: 3, 5, 6-16, 2015-2025 or "latest".
ecma_version = 2020

# Output format: json, yaml or toon.
format = "json"

# Restrict method catalogs to an ECMAScript edition (0 = no restriction).
edition = 0

# Append Object.prototype members to every suggestion.
inherited = false

# Skip files larger than this many bytes.
max_file_size = 1000000

# Keep only the first N files of a directory scan (0 = all).
max_files = 0

# Languages to scan (empty = all of javascript, typescript, tsx).
languages = []

skip_tests = false

[watch]
debounce_ms = 200`
