// Package config loads folio settings from defaults, an optional TOML
// file, and FOLIO_* environment variables, in that order.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/foliolabs/folio"
)

type Config struct {
	Chunking  ChunkingConfig  `toml:"chunking"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Index     IndexConfig     `toml:"index"`
	Cache     CacheConfig     `toml:"cache"`
	Retrieval RetrievalConfig `toml:"retrieval"`
	Observer  ObserverConfig  `toml:"observer"`
}

type ChunkingConfig struct {
	// Strategy is "semantic" or "recursive".
	Strategy string `toml:"strategy"`
	Size     int    `toml:"size"`
	Overlap  int    `toml:"overlap"`
}

type EmbeddingConfig struct {
	// Provider is "openai" or "gemini".
	Provider string `toml:"provider"`
	BaseURL  string `toml:"base_url"`
	// Model selects the embedding model. Empty selects the provider's
	// default.
	Model  string `toml:"model"`
	APIKey string `toml:"api_key"`
	// Dimensions requests a reduced embedding width. Zero keeps the
	// model's native width.
	Dimensions int `toml:"dimensions"`
	BatchSize  int `toml:"batch_size"`
	// RequestsPerMinute and TextsPerMinute cap the embedding call rate.
	// Zero disables the corresponding limit.
	RequestsPerMinute int `toml:"requests_per_minute"`
	TextsPerMinute    int `toml:"texts_per_minute"`
}

type IndexConfig struct {
	// Backend is "sqlite" or "postgres".
	Backend string `toml:"backend"`
	Path    string `toml:"path"`
	DSN     string `toml:"dsn"`
}

type CacheConfig struct {
	// Tier is "fs", "sqlite", or "redis".
	Tier      string `toml:"tier"`
	Dir       string `toml:"dir"`
	Path      string `toml:"path"`
	RedisAddr string `toml:"redis_addr"`
	// TTL is a duration string such as "1h" or "30m".
	TTL      string `toml:"ttl"`
	Capacity int    `toml:"capacity"`
}

type RetrievalConfig struct {
	TopK     int     `toml:"top_k"`
	MinScore float64 `toml:"min_score"`
}

type ObserverConfig struct {
	Enabled bool `toml:"enabled"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	home, _ := os.UserHomeDir()
	if home == "" {
		home = "/tmp"
	}
	return Config{
		Chunking:  ChunkingConfig{Strategy: "semantic", Size: 1000, Overlap: 200},
		Embedding: EmbeddingConfig{Provider: "openai", BatchSize: 100},
		Index:     IndexConfig{Backend: "sqlite", Path: "folio.db"},
		Cache: CacheConfig{
			Tier:     "fs",
			Dir:      filepath.Join(home, ".folio", "cache"),
			Path:     filepath.Join(home, ".folio", "cache.db"),
			TTL:      "1h",
			Capacity: 4096,
		},
		Retrieval: RetrievalConfig{TopK: 10},
	}
}

// Load reads config: defaults -> TOML file -> env vars (env wins).
// A missing file at the default path is fine; an explicit path that
// cannot be read, or a file that does not parse, is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = "folio.toml"
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	case explicit:
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	// Env overrides
	if v := os.Getenv("FOLIO_EMBEDDING_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("FOLIO_EMBEDDING_BASE_URL"); v != "" {
		cfg.Embedding.BaseURL = v
	}
	if v := os.Getenv("FOLIO_EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv("FOLIO_INDEX_DSN"); v != "" {
		cfg.Index.DSN = v
	}
	if v := os.Getenv("FOLIO_INDEX_PATH"); v != "" {
		cfg.Index.Path = v
	}
	if v := os.Getenv("FOLIO_CACHE_DIR"); v != "" {
		cfg.Cache.Dir = v
	}
	if v := os.Getenv("FOLIO_REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if os.Getenv("FOLIO_OBSERVER_ENABLED") == "true" || os.Getenv("FOLIO_OBSERVER_ENABLED") == "1" {
		cfg.Observer.Enabled = true
	}

	// Fallbacks: a DSN has no sqlite meaning, so its presence selects
	// postgres; likewise a redis address selects the redis tier.
	if cfg.Index.Backend == "sqlite" && cfg.Index.DSN != "" {
		cfg.Index.Backend = "postgres"
	}
	if cfg.Cache.Tier == "fs" && cfg.Cache.RedisAddr != "" {
		cfg.Cache.Tier = "redis"
	}

	return cfg, nil
}

// ParseTTL returns the cache TTL. Empty means one hour.
func (c CacheConfig) ParseTTL() (time.Duration, error) {
	if c.TTL == "" {
		return time.Hour, nil
	}
	return time.ParseDuration(c.TTL)
}

// Validate checks the configuration before any component is built.
func (c Config) Validate() error {
	if c.Chunking.Size <= 0 {
		return &folio.ErrConfig{Field: "chunking.size", Reason: "must be positive"}
	}
	if c.Chunking.Overlap < 0 {
		return &folio.ErrConfig{Field: "chunking.overlap", Reason: "must not be negative"}
	}
	if c.Chunking.Overlap >= c.Chunking.Size {
		return &folio.ErrConfig{Field: "chunking.overlap", Reason: "must be smaller than chunking.size"}
	}
	switch c.Chunking.Strategy {
	case "semantic", "recursive":
	default:
		return &folio.ErrConfig{Field: "chunking.strategy", Reason: `must be "semantic" or "recursive"`}
	}

	switch c.Embedding.Provider {
	case "openai", "gemini":
	default:
		return &folio.ErrConfig{Field: "embedding.provider", Reason: `must be "openai" or "gemini"`}
	}
	if c.Embedding.Dimensions < 0 {
		return &folio.ErrConfig{Field: "embedding.dimensions", Reason: "must not be negative"}
	}
	if c.Embedding.BatchSize <= 0 {
		return &folio.ErrConfig{Field: "embedding.batch_size", Reason: "must be positive"}
	}
	if c.Embedding.RequestsPerMinute < 0 {
		return &folio.ErrConfig{Field: "embedding.requests_per_minute", Reason: "must not be negative"}
	}
	if c.Embedding.TextsPerMinute < 0 {
		return &folio.ErrConfig{Field: "embedding.texts_per_minute", Reason: "must not be negative"}
	}

	switch c.Index.Backend {
	case "sqlite":
		if c.Index.Path == "" {
			return &folio.ErrConfig{Field: "index.path", Reason: "required for the sqlite backend"}
		}
	case "postgres":
		if c.Index.DSN == "" {
			return &folio.ErrConfig{Field: "index.dsn", Reason: "required for the postgres backend"}
		}
	default:
		return &folio.ErrConfig{Field: "index.backend", Reason: `must be "sqlite" or "postgres"`}
	}

	switch c.Cache.Tier {
	case "fs":
		if c.Cache.Dir == "" {
			return &folio.ErrConfig{Field: "cache.dir", Reason: "required for the fs tier"}
		}
	case "sqlite":
		if c.Cache.Path == "" {
			return &folio.ErrConfig{Field: "cache.path", Reason: "required for the sqlite tier"}
		}
	case "redis":
		if c.Cache.RedisAddr == "" {
			return &folio.ErrConfig{Field: "cache.redis_addr", Reason: "required for the redis tier"}
		}
	default:
		return &folio.ErrConfig{Field: "cache.tier", Reason: `must be "fs", "sqlite", or "redis"`}
	}
	if ttl, err := c.Cache.ParseTTL(); err != nil {
		return &folio.ErrConfig{Field: "cache.ttl", Reason: err.Error()}
	} else if ttl <= 0 {
		return &folio.ErrConfig{Field: "cache.ttl", Reason: "must be positive"}
	}
	if c.Cache.Capacity <= 0 {
		return &folio.ErrConfig{Field: "cache.capacity", Reason: "must be positive"}
	}

	if c.Retrieval.TopK <= 0 {
		return &folio.ErrConfig{Field: "retrieval.top_k", Reason: "must be positive"}
	}
	if c.Retrieval.MinScore < 0 || c.Retrieval.MinScore > 1 {
		return &folio.ErrConfig{Field: "retrieval.min_score", Reason: "must be between 0 and 1"}
	}
	return nil
}
