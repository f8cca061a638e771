// Package config loads the site configuration: built-in defaults, then an
// optional project-local YAML file, then SITEBUILDER_* environment variables,
// then the development override from the command line.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	derrors "git.home.luguber.info/inful/sitebuilder/internal/errors"
)

// DefaultPath is the project-local configuration file looked up when no
// explicit path is given.
const DefaultPath = "sitebuilder.yaml"

const (
	defaultDatabase    = "blog.db"
	defaultDevDatabase = "blog.dev.db"
	envPrefix          = "SITEBUILDER"
)

// Config is the fully resolved site configuration.
type Config struct {
	// URL is the site base URL. The trailing slash is significant.
	URL          string   `mapstructure:"url" yaml:"url"`
	Root         string   `mapstructure:"root" yaml:"root"`
	OutputPath   string   `mapstructure:"output_path" yaml:"output_path"`
	LogPath      string   `mapstructure:"log_path" yaml:"log_path"`
	Development  bool     `mapstructure:"development" yaml:"development"`
	SpecialPages []string `mapstructure:"special_pages" yaml:"special_pages"`
	// Theme names the syntax highlighting style.
	Theme    string `mapstructure:"theme" yaml:"theme"`
	Database string `mapstructure:"database" yaml:"database,omitempty"`
	Listen   string `mapstructure:"listen" yaml:"listen"`
	Minify   bool   `mapstructure:"minify" yaml:"minify"`
	GitInfo  bool   `mapstructure:"git_info" yaml:"git_info"`

	SassBinary string `mapstructure:"sass_binary" yaml:"sass_binary"`

	// RebuildSchedule is a Go duration; empty disables scheduled rebuilds.
	RebuildSchedule string `mapstructure:"rebuild_schedule" yaml:"rebuild_schedule,omitempty"`

	NATSURL     string `mapstructure:"nats_url" yaml:"nats_url,omitempty"`
	NATSSubject string `mapstructure:"nats_subject" yaml:"nats_subject"`

	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		URL:          "http://127.0.0.1:8000/",
		Root:         "blog/",
		OutputPath:   "public/",
		LogPath:      "log/",
		SpecialPages: []string{"index.md", "search.md", "about.md", "500.md", "404.md"},
		Theme:        "monokai",
		Listen:       "127.0.0.1:8000",
		Minify:       true,
		GitInfo:      true,
		SassBinary:   "sass",
		NATSSubject:  "sitebuilder.builds",
		LogFormat:    "pretty",
		LogLevel:     "info",
	}
}

// LoadOptions controls where configuration is read from.
type LoadOptions struct {
	// Path of the YAML file. Empty means DefaultPath, which may be absent.
	Path string
	// Development forces development mode when true.
	Development bool
}

// Load resolves the configuration from defaults, file, environment and options.
func Load(opts LoadOptions) (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, err
	}

	v := viper.New()
	applyDefaults(v, Defaults())

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("database")
	_ = v.BindEnv("nats_url")
	_ = v.BindEnv("rebuild_schedule")

	path := opts.Path
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) || explicit {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, derrors.ConfigNotFound(path)
			}
			return nil, derrors.Wrap(err, derrors.CategoryConfig, derrors.SeverityFatal, "read configuration "+path)
		}
	}

	if opts.Development {
		v.Set("development", true)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, derrors.Wrap(err, derrors.CategoryConfig, derrors.SeverityFatal, "decode configuration")
	}

	if cfg.Database == "" {
		cfg.Database = defaultDatabase
		if cfg.Development {
			cfg.Database = defaultDevDatabase
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(v *viper.Viper, d Config) {
	v.SetDefault("url", d.URL)
	v.SetDefault("root", d.Root)
	v.SetDefault("output_path", d.OutputPath)
	v.SetDefault("log_path", d.LogPath)
	v.SetDefault("development", d.Development)
	v.SetDefault("special_pages", d.SpecialPages)
	v.SetDefault("theme", d.Theme)
	v.SetDefault("listen", d.Listen)
	v.SetDefault("minify", d.Minify)
	v.SetDefault("git_info", d.GitInfo)
	v.SetDefault("sass_binary", d.SassBinary)
	v.SetDefault("nats_subject", d.NATSSubject)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("log_level", d.LogLevel)
}

// Validate checks required fields and value formats.
func (c *Config) Validate() error {
	if c.URL == "" {
		return derrors.ConfigRequired("url")
	}
	u, err := url.Parse(c.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return derrors.ConfigInvalid("url", "must be an absolute URL")
	}
	if !strings.HasSuffix(c.URL, "/") {
		return derrors.ConfigInvalid("url", "must end with a slash")
	}
	if c.Root == "" {
		return derrors.ConfigRequired("root")
	}
	if c.OutputPath == "" {
		return derrors.ConfigRequired("output_path")
	}
	if c.RebuildSchedule != "" {
		d, err := time.ParseDuration(c.RebuildSchedule)
		if err != nil || d <= 0 {
			return derrors.ConfigInvalid("rebuild_schedule", "must be a positive duration")
		}
	}
	return nil
}

// RebuildInterval returns the parsed rebuild schedule, zero when disabled.
func (c *Config) RebuildInterval() time.Duration {
	d, err := time.ParseDuration(c.RebuildSchedule)
	if err != nil {
		return 0
	}
	return d
}

// IsSpecial reports whether path ends with one of the configured special page names.
func (c *Config) IsSpecial(path string) bool {
	return IsSpecialPath(path, c.SpecialPages)
}

// IsSpecialPath matches path against special suffixes on path-component boundaries,
// so "blog/index.md" matches "index.md" but "blog/myindex.md" does not.
func IsSpecialPath(path string, special []string) bool {
	path = strings.ReplaceAll(path, "\\", "/")
	for _, s := range special {
		if s == "" {
			continue
		}
		if path == s || strings.HasSuffix(path, "/"+strings.TrimPrefix(s, "/")) {
			return true
		}
	}
	return false
}

// Init writes a default configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	data, err := yaml.Marshal(Defaults())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := "# sitebuilder configuration\n# Environment variables SITEBUILDER_<KEY> override these values.\n"
	// #nosec G306 -- config file is not secret
	if err := os.WriteFile(configPath, append([]byte(header), data...), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
