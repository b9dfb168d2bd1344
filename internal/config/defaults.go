package config

import "time"

// DefaultExcludes are glob patterns excluded from the docs-dir scan by
// default.
var DefaultExcludes = []string{
	".git/**",
	"*.tmp",
	"*.lock",
	"~$*",
}

// DefaultConfig returns a Config with the numeric defaults spec.md's
// operation descriptions imply.
func DefaultConfig() *Config {
	return &Config{
		DocsDir:          "docs",
		Include:          []string{"**"},
		Exclude:          DefaultExcludes,
		NWorkers:         1,
		WorkersPerGPU:    4,
		ChunkSize:        1024,
		ChunkOverlap:     128,
		TEIBatchSize:     32,
		UpsertBatch:      5000,
		ChromaDir:        ".chroma",
		ChromaCollection: "documents",
		EmbeddingModel:   "BAAI/bge-small-en-v1.5",
		StateDBPath:      ".chroma/sidecar_state.db",
		EmbeddingBackend: "tei",
		RequestTimeout:   120 * time.Second,
		RunDeadline:      60 * time.Minute,
		Sidecar: SidecarConfig{
			Command:           "text-embeddings-router",
			Port:              8080,
			ModelCacheDir:     ".cache/tei",
			ReadinessTimeout:  60 * time.Second,
			ReadinessInterval: 500 * time.Millisecond,
			MaxFailures:       3,
			RequestTimeout:    120 * time.Second,
		},
		Admin: AdminConfig{
			Addr: "127.0.0.1:8090",
		},
	}
}
