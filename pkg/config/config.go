// Package config loads songvocab settings from defaults, TOML files and the
// environment, in that order (last wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override. A double underscore
// separates nesting levels: SONGVOCAB_RATE_LIMIT__AGENT_PER_MINUTE.
const EnvPrefix = "SONGVOCAB_"

type Config struct {
	HTTP      HTTPConfig      `koanf:"http"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Timeouts  TimeoutsConfig  `koanf:"timeouts"`
	Database  DatabaseConfig  `koanf:"database"`
	Storage   StorageConfig   `koanf:"storage"`
	Lyrics    LyricsConfig    `koanf:"lyrics"`
	Extractor ExtractorConfig `koanf:"extractor"`
	Session   SessionConfig   `koanf:"session"`
	Log       LogConfig       `koanf:"log"`
	Traces    TracesConfig    `koanf:"traces"`
	Batch     BatchConfig     `koanf:"batch"`
}

type HTTPConfig struct {
	Addr       string `koanf:"addr"`
	TrustProxy bool   `koanf:"trust_proxy"` // key callers by X-Forwarded-For
}

type RateLimitConfig struct {
	AgentPerMinute    int           `koanf:"agent_per_minute"`
	ThoughtsPerMinute int           `koanf:"thoughts_per_minute"`
	IdleTTL           time.Duration `koanf:"idle_ttl"`
}

type TimeoutsConfig struct {
	Lyrics     time.Duration `koanf:"lyrics"`
	Vocabulary time.Duration `koanf:"vocabulary"`
}

type DatabaseConfig struct {
	Driver string `koanf:"driver"` // "sqlite3" (cgo) or "sqlite" (pure Go)
	Path   string `koanf:"path"`
}

type StorageConfig struct {
	Root string `koanf:"root"`
}

type LyricsConfig struct {
	Provider string `koanf:"provider"` // "lrclib", "web" or "static"
	BaseURL  string `koanf:"base_url"`
	APIKey   string `koanf:"api_key"`
}

type ExtractorConfig struct {
	Kind     string `koanf:"kind"` // "gemini", "openai", "tokens" or "sample"
	Model    string `koanf:"model"`
	APIKey   string `koanf:"api_key"`
	BaseURL  string `koanf:"base_url"`
	MaxItems int    `koanf:"max_items"`
}

// SessionConfig controls study-session creation for requests that name a
// study activity but no group.
type SessionConfig struct {
	DefaultGroupID int64 `koanf:"default_group_id"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // "json" or "console"
}

type TracesConfig struct {
	Capacity int `koanf:"capacity"`
}

type BatchConfig struct {
	Workers int `koanf:"workers"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		HTTP:      HTTPConfig{Addr: ":8000"},
		RateLimit: RateLimitConfig{AgentPerMinute: 5, ThoughtsPerMinute: 10, IdleTTL: 10 * time.Minute},
		Timeouts:  TimeoutsConfig{Lyrics: 30 * time.Second, Vocabulary: 60 * time.Second},
		Database:  DatabaseConfig{Driver: "sqlite3", Path: "songvocab.db"},
		Storage:   StorageConfig{Root: "data"},
		Lyrics:    LyricsConfig{Provider: "lrclib"},
		Extractor: ExtractorConfig{Kind: "tokens", MaxItems: 5},
		Session:   SessionConfig{DefaultGroupID: 1},
		Log:       LogConfig{Level: "info", Format: "json"},
		Traces:    TracesConfig{Capacity: 1024},
		Batch:     BatchConfig{Workers: 4},
	}
}

// Load reads the configuration. With an explicit path only that file is
// read and it must exist; otherwise the user and working-directory files are
// tried in order. Environment variables are applied last.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	} else {
		for _, p := range configPaths() {
			if _, err := os.Stat(p); err == nil {
				if err := k.Load(file.Provider(p), toml.Parser()); err != nil {
					return nil, fmt.Errorf("load %s: %w", p, err)
				}
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}
	cfg.Storage.Root = expandPath(cfg.Storage.Root)
	cfg.Database.Path = expandPath(cfg.Database.Path)
	cfg.Lyrics.BaseURL = strings.TrimSuffix(cfg.Lyrics.BaseURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envKey maps SONGVOCAB_RATE_LIMIT__IDLE_TTL to rate_limit.idle_ttl.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func configPaths() []string {
	var paths []string
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "songvocab", "config.toml"))
	}
	// ./songvocab.toml has the highest priority.
	return append(paths, "songvocab.toml")
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.RateLimit.AgentPerMinute <= 0 {
		errs = append(errs, errors.New("rate_limit.agent_per_minute must be positive"))
	}
	if c.RateLimit.ThoughtsPerMinute <= 0 {
		errs = append(errs, errors.New("rate_limit.thoughts_per_minute must be positive"))
	}
	if c.RateLimit.IdleTTL <= 0 {
		errs = append(errs, errors.New("rate_limit.idle_ttl must be positive"))
	}
	if c.Timeouts.Lyrics <= 0 {
		errs = append(errs, errors.New("timeouts.lyrics must be positive"))
	}
	if c.Timeouts.Vocabulary <= 0 {
		errs = append(errs, errors.New("timeouts.vocabulary must be positive"))
	}
	switch c.Database.Driver {
	case "sqlite3", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("database.driver %q: want sqlite3 or sqlite", c.Database.Driver))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path must be set"))
	}
	if c.Storage.Root == "" {
		errs = append(errs, errors.New("storage.root must be set"))
	}
	switch c.Lyrics.Provider {
	case "lrclib", "static":
	case "web":
		if c.Lyrics.APIKey == "" {
			errs = append(errs, errors.New("lyrics.api_key is required for the web provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("lyrics.provider %q: want lrclib, web or static", c.Lyrics.Provider))
	}
	switch c.Extractor.Kind {
	case "gemini", "openai", "tokens", "sample":
	default:
		errs = append(errs, fmt.Errorf("extractor.kind %q: want gemini, openai, tokens or sample", c.Extractor.Kind))
	}
	if c.Extractor.MaxItems <= 0 {
		errs = append(errs, errors.New("extractor.max_items must be positive"))
	}
	if c.Session.DefaultGroupID <= 0 {
		errs = append(errs, errors.New("session.default_group_id must be positive"))
	}
	if c.Traces.Capacity <= 0 {
		errs = append(errs, errors.New("traces.capacity must be positive"))
	}
	if c.Batch.Workers <= 0 {
		errs = append(errs, errors.New("batch.workers must be positive"))
	}
	return errors.Join(errs...)
}
