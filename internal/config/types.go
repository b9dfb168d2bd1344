package config

import "time"

// Include/Exclude stay as glob pattern lists; everything else is replaced
// by spec.md §6's configuration table.

// Config is the top-level pipeline configuration, corresponding to
// .ingest.yml.
type Config struct {
	DocsDir          string   `yaml:"docs_dir" koanf:"docs_dir"`
	Include          []string `yaml:"include" koanf:"include"`
	Exclude          []string `yaml:"exclude" koanf:"exclude"`
	NWorkers         int      `yaml:"n_workers" koanf:"n_workers"`
	WorkersPerGPU    int      `yaml:"workers_per_gpu" koanf:"workers_per_gpu"`
	ChunkSize        int      `yaml:"chunk_size" koanf:"chunk_size"`
	ChunkOverlap     int      `yaml:"chunk_overlap" koanf:"chunk_overlap"`
	TEIBatchSize     int      `yaml:"tei_batch_size" koanf:"tei_batch_size"`
	UpsertBatch      int      `yaml:"upsert_batch" koanf:"upsert_batch"`
	ChromaDir        string   `yaml:"chroma_dir" koanf:"chroma_dir"`
	ChromaCollection string   `yaml:"chroma_collection" koanf:"chroma_collection"`
	EmbeddingModel   string   `yaml:"embedding_model" koanf:"embedding_model"`

	// StateDBPath is the SQLite file the sidecar driver appends health
	// observations to, so an operator can inspect sidecar history after a
	// crash without re-deriving it from logs.
	StateDBPath string `yaml:"state_db_path" koanf:"state_db_path"`

	// EmbeddingBackend selects which embeddings.Embedder builds vectors.
	// "tei" drives the local sidecar (the default); "openai", "google",
	// "ollama" are alternate remote backends carried over from the
	// teacher's embeddings package.
	EmbeddingBackend string `yaml:"embedding_backend" koanf:"embedding_backend"`

	RequestTimeout time.Duration `yaml:"request_timeout" koanf:"request_timeout"`
	RunDeadline    time.Duration `yaml:"run_deadline" koanf:"run_deadline"`

	Sidecar SidecarConfig `yaml:"sidecar" koanf:"sidecar"`
	Admin   AdminConfig   `yaml:"admin" koanf:"admin"`
}

// SidecarConfig configures the local TEI-compatible embedding process.
type SidecarConfig struct {
	Command           string        `yaml:"command" koanf:"command"`
	Args              []string      `yaml:"args" koanf:"args"`
	Port              int           `yaml:"port" koanf:"port"`
	ModelCacheDir     string        `yaml:"model_cache_dir" koanf:"model_cache_dir"`
	ReadinessTimeout  time.Duration `yaml:"readiness_timeout" koanf:"readiness_timeout"`
	ReadinessInterval time.Duration `yaml:"readiness_interval" koanf:"readiness_interval"`
	MaxFailures       int           `yaml:"max_failures" koanf:"max_failures"`

	// RequestTimeout bounds a single /embed call. Not loaded from YAML
	// directly; whatever builds a sidecar.Client copies it in from the
	// top-level Config.RequestTimeout (SidecarConfig travels alone into
	// sidecar.New, without the rest of Config), so a wedged process fails
	// one call instead of stalling the whole run.
	RequestTimeout time.Duration `yaml:"-" koanf:"-"`
}

// AdminConfig configures the operator HTTP surface.
type AdminConfig struct {
	Addr string `yaml:"addr" koanf:"addr"`
}
