// Package config loads run settings for haunted-dates.
//
// Settings are layered: built-in defaults, then an optional YAML file, then
// environment overrides. Command-line flags are applied last by the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pfrederiksen/haunted-dates/internal/cache"
	"github.com/pfrederiksen/haunted-dates/internal/fetch"
	"github.com/pfrederiksen/haunted-dates/internal/record"
	"github.com/pfrederiksen/haunted-dates/internal/resolve"
	"github.com/pfrederiksen/haunted-dates/internal/websearch"
	"github.com/pfrederiksen/haunted-dates/internal/wiki"
)

// Environment variables read by Load.
const (
	EnvConfig   = "HAUNTED_DATES_CONFIG"
	EnvCacheDir = "HAUNTED_DATES_CACHE_DIR"
	EnvLogLevel = "HAUNTED_DATES_LOG_LEVEL"
)

// DefaultCacheDir is where the store lives unless overridden.
const DefaultCacheDir = "~/.haunted-dates/cache"

// Endpoint describes one remote service and how politely to use it.
type Endpoint struct {
	URL        string        `yaml:"url"`
	PerSecond  float64       `yaml:"per_second"`
	MinDelay   time.Duration `yaml:"min_delay"`
	MaxDelay   time.Duration `yaml:"max_delay"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// Options returns fetch options with this endpoint's politeness policy.
func (e Endpoint) Options() fetch.Options {
	return fetch.Options{
		Timeout:    e.Timeout,
		MaxRetries: e.MaxRetries,
		Policy:     fetch.NewPolicy(e.PerSecond, e.MinDelay, e.MaxDelay),
	}
}

// Config holds every setting of a run.
type Config struct {
	Input        string `yaml:"input"`
	Output       string `yaml:"output"`
	MergedOutput string `yaml:"merged_output"`
	CacheDir     string `yaml:"cache_dir"`

	BatchSize     int `yaml:"batch_size"`
	Workers       int `yaml:"workers"`
	FlushEvery    int `yaml:"flush_every"`
	FlushBatches  int `yaml:"flush_batches"`
	SkipThreshold int `yaml:"skip_threshold"`

	SentinelDate string `yaml:"sentinel_date"`
	LogLevel     string `yaml:"log_level"`

	Wikipedia Endpoint `yaml:"wikipedia"`
	Search    Endpoint `yaml:"search"`
	// Pages has no URL; it governs fetches of search result pages.
	Pages Endpoint `yaml:"pages"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Input:         "haunted_places.tsv",
		Output:        "haunted_places_evidence_date.tsv",
		CacheDir:      DefaultCacheDir,
		BatchSize:     resolve.DefaultBatchSize,
		Workers:       resolve.DefaultWorkers,
		FlushEvery:    cache.DefaultFlushEvery,
		FlushBatches:  resolve.DefaultFlushBatches,
		SkipThreshold: resolve.DefaultSkipThreshold,
		SentinelDate:  record.SentinelDate,
		LogLevel:      "info",
		Wikipedia: Endpoint{
			URL:        wiki.APIURL,
			MinDelay:   wiki.MinDelay,
			MaxDelay:   wiki.MaxDelay,
			Timeout:    fetch.DefaultTimeout,
			MaxRetries: fetch.DefaultMaxRetries,
		},
		Search: Endpoint{
			URL:        websearch.SearchURL,
			MinDelay:   websearch.MinDelay,
			MaxDelay:   websearch.MaxDelay,
			Timeout:    fetch.DefaultTimeout,
			MaxRetries: fetch.DefaultMaxRetries,
		},
		Pages: Endpoint{
			MinDelay:   websearch.PageMinDelay,
			MaxDelay:   websearch.PageMaxDelay,
			Timeout:    fetch.DefaultTimeout,
			MaxRetries: fetch.DefaultMaxRetries,
		},
	}
}

// Load returns the defaults overlaid with the YAML file at path and the
// environment. An empty path falls back to $HAUNTED_DATES_CONFIG; when
// both are empty no file is read.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(EnvCacheDir); v != "" {
		c.CacheDir = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
}

// Validate reports every setting that cannot be used.
func (c Config) Validate() error {
	var errs []error
	if c.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("batch size must be positive, got %d", c.BatchSize))
	}
	if c.Workers <= 0 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", c.Workers))
	}
	if c.FlushEvery <= 0 {
		errs = append(errs, fmt.Errorf("flush_every must be positive, got %d", c.FlushEvery))
	}
	if c.FlushBatches <= 0 {
		errs = append(errs, fmt.Errorf("flush_batches must be positive, got %d", c.FlushBatches))
	}
	if c.CacheDir == "" {
		errs = append(errs, errors.New("cache directory is required"))
	}
	if c.SentinelDate == "" {
		errs = append(errs, errors.New("sentinel date is required"))
	}
	for _, e := range []struct {
		name    string
		needURL bool
		Endpoint
	}{{"wikipedia", true, c.Wikipedia}, {"search", true, c.Search}, {"pages", false, c.Pages}} {
		if e.needURL && e.URL == "" {
			errs = append(errs, fmt.Errorf("%s url is required", e.name))
		}
		if e.MaxRetries < 0 {
			errs = append(errs, fmt.Errorf("%s max_retries must not be negative", e.name))
		}
	}
	return errors.Join(errs...)
}
