package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/foliolabs/folio"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	if cfg.Chunking.Strategy != "semantic" {
		t.Errorf("expected semantic, got %s", cfg.Chunking.Strategy)
	}
	if cfg.Chunking.Size != 1000 || cfg.Chunking.Overlap != 200 {
		t.Errorf("expected 1000/200, got %d/%d", cfg.Chunking.Size, cfg.Chunking.Overlap)
	}
	if cfg.Embedding.Provider != "openai" {
		t.Errorf("expected openai, got %s", cfg.Embedding.Provider)
	}
	if cfg.Embedding.Model != "" {
		t.Errorf("default model should defer to the provider, got %s", cfg.Embedding.Model)
	}
	if cfg.Index.Backend != "sqlite" {
		t.Errorf("expected sqlite, got %s", cfg.Index.Backend)
	}
	if cfg.Cache.Tier != "fs" {
		t.Errorf("expected fs, got %s", cfg.Cache.Tier)
	}
	if cfg.Retrieval.TopK != 10 {
		t.Errorf("expected top_k 10, got %d", cfg.Retrieval.TopK)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestLoadFromTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.toml")
	os.WriteFile(path, []byte(`
[chunking]
size = 500
overlap = 50

[embedding]
model = "nomic-embed-text"
base_url = "http://localhost:11434/v1"
requests_per_minute = 90
`), 0644)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Chunking.Size != 500 || cfg.Chunking.Overlap != 50 {
		t.Errorf("expected 500/50, got %d/%d", cfg.Chunking.Size, cfg.Chunking.Overlap)
	}
	if cfg.Embedding.Model != "nomic-embed-text" {
		t.Errorf("expected nomic-embed-text, got %s", cfg.Embedding.Model)
	}
	if cfg.Embedding.RequestsPerMinute != 90 {
		t.Errorf("expected rpm 90, got %d", cfg.Embedding.RequestsPerMinute)
	}
	// Defaults preserved
	if cfg.Chunking.Strategy != "semantic" {
		t.Errorf("default should be preserved, got %s", cfg.Chunking.Strategy)
	}
	if cfg.Index.Backend != "sqlite" {
		t.Errorf("default should be preserved, got %s", cfg.Index.Backend)
	}
}

func TestLoadMissingDefaultPathIsFine(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load without a config file should succeed, got %v", err)
	}
	if cfg.Chunking.Size != 1000 {
		t.Errorf("expected defaults, got size %d", cfg.Chunking.Size)
	}
}

func TestLoadMissingExplicitPathFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("expected error for missing explicit config path")
	}
}

func TestLoadMalformedTOMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	os.WriteFile(path, []byte("[chunking\nsize = "), 0644)

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed TOML")
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("FOLIO_EMBEDDING_API_KEY", "env-key")
	t.Setenv("FOLIO_EMBEDDING_BASE_URL", "http://localhost:8080/v1")
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Embedding.APIKey != "env-key" {
		t.Errorf("expected env-key, got %s", cfg.Embedding.APIKey)
	}
	if cfg.Embedding.BaseURL != "http://localhost:8080/v1" {
		t.Errorf("expected env base URL, got %s", cfg.Embedding.BaseURL)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.toml")
	os.WriteFile(path, []byte(`
[embedding]
api_key = "file-key"
`), 0644)
	t.Setenv("FOLIO_EMBEDDING_API_KEY", "env-key")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Embedding.APIKey != "env-key" {
		t.Errorf("env should win over file, got %s", cfg.Embedding.APIKey)
	}
}

func TestBackendFallbacks(t *testing.T) {
	t.Setenv("FOLIO_INDEX_DSN", "postgres://localhost/folio")
	t.Setenv("FOLIO_REDIS_ADDR", "localhost:6379")
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Index.Backend != "postgres" {
		t.Errorf("DSN should select postgres, got %s", cfg.Index.Backend)
	}
	if cfg.Cache.Tier != "redis" {
		t.Errorf("redis addr should select redis tier, got %s", cfg.Cache.Tier)
	}
}

func TestExplicitBackendWinsOverFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.toml")
	os.WriteFile(path, []byte(`
[index]
backend = "postgres"
dsn = "postgres://localhost/folio"

[cache]
tier = "sqlite"
redis_addr = "localhost:6379"
`), 0644)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Index.Backend != "postgres" {
		t.Errorf("got %s", cfg.Index.Backend)
	}
	if cfg.Cache.Tier != "sqlite" {
		t.Errorf("explicit tier should stand, got %s", cfg.Cache.Tier)
	}
}

func TestParseTTL(t *testing.T) {
	c := CacheConfig{TTL: "30m"}
	d, err := c.ParseTTL()
	if err != nil || d != 30*time.Minute {
		t.Errorf("ParseTTL(30m) = %v, %v", d, err)
	}

	c.TTL = ""
	d, err = c.ParseTTL()
	if err != nil || d != time.Hour {
		t.Errorf("ParseTTL(empty) = %v, %v; want 1h", d, err)
	}

	c.TTL = "not-a-duration"
	if _, err := c.ParseTTL(); err == nil {
		t.Error("expected error for bad duration")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"zero chunk size", func(c *Config) { c.Chunking.Size = 0 }, "chunking.size"},
		{"negative overlap", func(c *Config) { c.Chunking.Overlap = -1 }, "chunking.overlap"},
		{"overlap equals size", func(c *Config) { c.Chunking.Size = 100; c.Chunking.Overlap = 100 }, "chunking.overlap"},
		{"unknown strategy", func(c *Config) { c.Chunking.Strategy = "token" }, "chunking.strategy"},
		{"unknown provider", func(c *Config) { c.Embedding.Provider = "cohere" }, "embedding.provider"},
		{"negative dimensions", func(c *Config) { c.Embedding.Dimensions = -1 }, "embedding.dimensions"},
		{"zero batch size", func(c *Config) { c.Embedding.BatchSize = 0 }, "embedding.batch_size"},
		{"negative rpm", func(c *Config) { c.Embedding.RequestsPerMinute = -1 }, "embedding.requests_per_minute"},
		{"negative texts per minute", func(c *Config) { c.Embedding.TextsPerMinute = -1 }, "embedding.texts_per_minute"},
		{"unknown backend", func(c *Config) { c.Index.Backend = "mysql" }, "index.backend"},
		{"sqlite without path", func(c *Config) { c.Index.Path = "" }, "index.path"},
		{"postgres without dsn", func(c *Config) { c.Index.Backend = "postgres" }, "index.dsn"},
		{"unknown tier", func(c *Config) { c.Cache.Tier = "memcached" }, "cache.tier"},
		{"fs without dir", func(c *Config) { c.Cache.Dir = "" }, "cache.dir"},
		{"redis without addr", func(c *Config) { c.Cache.Tier = "redis" }, "cache.redis_addr"},
		{"bad ttl", func(c *Config) { c.Cache.TTL = "soon" }, "cache.ttl"},
		{"negative ttl", func(c *Config) { c.Cache.TTL = "-5m" }, "cache.ttl"},
		{"zero capacity", func(c *Config) { c.Cache.Capacity = 0 }, "cache.capacity"},
		{"zero top k", func(c *Config) { c.Retrieval.TopK = 0 }, "retrieval.top_k"},
		{"min score above one", func(c *Config) { c.Retrieval.MinScore = 1.5 }, "retrieval.min_score"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			var ce *folio.ErrConfig
			if !errors.As(err, &ce) {
				t.Fatalf("expected *folio.ErrConfig, got %T", err)
			}
			if ce.Field != tt.wantErr {
				t.Errorf("error field = %s, want %s", ce.Field, tt.wantErr)
			}
		})
	}
}
