package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (INGEST_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// Overlay environment variables: INGEST_N_WORKERS -> n_workers, etc.
	if err := k.Load(env.Provider("INGEST_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "INGEST_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validBackends = map[string]bool{
	"tei":    true,
	"openai": true,
	"google": true,
	"ollama": true,
}

// Validate checks that the configuration contains valid values. Invalid
// sizes or a missing docs directory are Configuration errors, fatal at
// startup (spec.md §7).
func (c *Config) Validate() error {
	if c.DocsDir == "" {
		return fmt.Errorf("docs_dir is required")
	}
	if info, err := os.Stat(c.DocsDir); err != nil || !info.IsDir() {
		return fmt.Errorf("docs_dir %q must be an existing directory", c.DocsDir)
	}

	if c.NWorkers <= 0 {
		return fmt.Errorf("n_workers must be positive")
	}
	if c.WorkersPerGPU <= 0 {
		return fmt.Errorf("workers_per_gpu must be positive")
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive")
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("chunk_overlap must be non-negative and smaller than chunk_size")
	}
	if c.TEIBatchSize <= 0 {
		return fmt.Errorf("tei_batch_size must be positive")
	}
	if c.UpsertBatch <= 0 {
		return fmt.Errorf("upsert_batch must be positive")
	}
	if c.ChromaDir == "" {
		return fmt.Errorf("chroma_dir is required")
	}
	if c.ChromaCollection == "" {
		return fmt.Errorf("chroma_collection is required")
	}
	if c.EmbeddingModel == "" {
		return fmt.Errorf("embedding_model is required")
	}
	if !validBackends[c.EmbeddingBackend] {
		return fmt.Errorf("invalid embedding_backend %q: must be one of tei, openai, google, ollama", c.EmbeddingBackend)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}
	if c.RunDeadline <= 0 {
		return fmt.Errorf("run_deadline must be positive")
	}

	return nil
}
