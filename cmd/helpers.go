package cmd

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/ragforge/ingest/internal/adminserver"
	"github.com/ragforge/ingest/internal/config"
	"github.com/ragforge/ingest/internal/embeddings"
	"github.com/ragforge/ingest/internal/ingest/service"
	"github.com/ragforge/ingest/internal/ingest/sidecar"
	"github.com/ragforge/ingest/internal/ingest/sidecarstate"
	"github.com/ragforge/ingest/internal/vectordb"
)

// adminIndexer adapts a *service.Service to adminserver.Indexer. The two
// packages declare their own, independently-shaped Estimate type so
// neither has to import the other; adminIndexer is the one place that
// bridges them.
type adminIndexer struct {
	svc *service.Service
}

func (a adminIndexer) Index(ctx context.Context) (string, error) { return a.svc.Index(ctx) }
func (a adminIndexer) Reset(ctx context.Context) error           { return a.svc.Reset(ctx) }
func (a adminIndexer) DryRun(ctx context.Context) (adminserver.Estimate, error) {
	e, err := a.svc.DryRun(ctx)
	if err != nil {
		return adminserver.Estimate{}, err
	}
	return adminserver.Estimate{
		ChangedFiles: e.ChangedFiles,
		WorkUnits:    e.WorkUnits,
		EstimatedSrc: e.EstimatedSrc,
	}, nil
}

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `ingestctl init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// remoteEmbedder builds an embeddings.Embedder for one of the non-TEI
// backends. Each requires its own API key environment variable, since a
// remote embedder (unlike the local TEI sidecar) authenticates against a
// third-party service.
func remoteEmbedder(cfg *config.Config) (embeddings.Embedder, error) {
	switch cfg.EmbeddingBackend {
	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is not set")
		}
		return embeddings.NewOpenAIEmbedder(apiKey, embeddings.OpenAIModel(cfg.EmbeddingModel)), nil
	case "google":
		apiKey := os.Getenv("GOOGLE_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("GOOGLE_API_KEY is not set")
		}
		return embeddings.NewGoogleEmbedder(apiKey, embeddings.GoogleModel(cfg.EmbeddingModel)), nil
	case "ollama":
		return embeddings.NewOllamaEmbedder(cfg.EmbeddingModel, 0, os.Getenv("OLLAMA_HOST")), nil
	default:
		return nil, fmt.Errorf("backend %q has no remote embedder; use the tei sidecar instead", cfg.EmbeddingBackend)
	}
}

// openStateStore opens the sidecar health SQLite database named by
// cfg.StateDBPath. An empty path disables health recording: every
// subsequent sidecar.Client built for this run simply has no store to
// record into, since WithStateStore is a no-op on nil.
func openStateStore(cfg *config.Config) (*sidecarstate.Store, func(), error) {
	if cfg.StateDBPath == "" {
		return nil, func() {}, nil
	}
	store, err := sidecarstate.Open(cfg.StateDBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening sidecar state store: %w", err)
	}
	return store, func() { store.Close() }, nil
}

// sidecarHealthAdapter adapts a *sidecarstate.Store to
// adminserver.SidecarHealthSource without adminserver importing
// sidecarstate directly.
type sidecarHealthAdapter struct {
	store *sidecarstate.Store
}

func (a sidecarHealthAdapter) Last() (adminserver.SidecarHealth, bool, error) {
	h, ok, err := a.store.Last()
	if err != nil || !ok {
		return adminserver.SidecarHealth{}, ok, err
	}
	return adminserver.SidecarHealth{
		State:               h.State,
		ConsecutiveFailures: h.ConsecutiveFailures,
		Detail:              h.Detail,
	}, true, nil
}

// remoteSidecar adapts an embeddings.Embedder to service.Sidecar so a
// remote backend can sit behind the same per-worker Start/Embed/Stop
// lifecycle as the local TEI sidecar, without actually managing a
// subprocess.
type remoteSidecar struct {
	embeddings.Embedder
}

func (remoteSidecar) Start(ctx context.Context) error { return nil }
func (remoteSidecar) Stop() error                     { return nil }

// buildSidecarFactory returns a service.SidecarFactory matching cfg's
// embedding backend. For "tei" each call hands out a fresh sidecar.Client
// bound to its own port, offset from cfg.Sidecar.Port so the
// NWorkers*WorkersPerGPU goroutines can each run their own subprocess
// without colliding; offset 0 (cfg.Sidecar.Port itself) is reserved for the store's own
// embedder, started separately in buildStore. The other backends share
// one remote embedder across every worker, wrapped in remoteSidecar.
// stateStore, when non-nil, is attached to every per-worker client so its
// lifecycle transitions are recorded alongside the long-lived client's.
func buildSidecarFactory(cfg *config.Config, stateStore *sidecarstate.Store) (service.SidecarFactory, error) {
	if cfg.EmbeddingBackend == "tei" {
		var nextOffset int32
		return func() service.Sidecar {
			offset := atomic.AddInt32(&nextOffset, 1)
			workerCfg := cfg.Sidecar
			workerCfg.Port += int(offset)
			workerCfg.RequestTimeout = cfg.RequestTimeout
			return sidecar.New(workerCfg, os.Stderr).WithStateStore(stateStore)
		}, nil
	}

	embedder, err := remoteEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	return func() service.Sidecar {
		return remoteSidecar{embedder}
	}, nil
}

// buildStore constructs the vector store and the embedder backing it,
// starting a dedicated long-lived TEI sidecar when cfg calls for one
// (chromem-go embeds query text itself via the collection's embedding
// function, so that embedder must stay ready for the whole run, unlike
// the short-lived per-worker sidecars buildSidecarFactory hands out). The
// returned close func stops that sidecar; call it once the store is no
// longer needed. stateStore, when non-nil, records this client's
// lifecycle transitions too.
func buildStore(ctx context.Context, cfg *config.Config, stateStore *sidecarstate.Store) (*vectordb.ChromemStore, func(), error) {
	closeFn := func() {}

	var embedder embeddings.Embedder
	if cfg.EmbeddingBackend == "tei" {
		workerCfg := cfg.Sidecar
		workerCfg.RequestTimeout = cfg.RequestTimeout
		client := sidecar.New(workerCfg, os.Stderr).WithStateStore(stateStore)
		if err := client.Start(ctx); err != nil {
			return nil, nil, fmt.Errorf("starting store sidecar: %w", err)
		}
		embedder = client
		closeFn = func() { client.Stop() }
	} else {
		var err error
		embedder, err = remoteEmbedder(cfg)
		if err != nil {
			return nil, nil, err
		}
	}

	store, err := vectordb.NewChromemStore(embedder)
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("creating vector store: %w", err)
	}

	if err := store.Load(ctx, cfg.ChromaDir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not load vector store from %s: %v\n", cfg.ChromaDir, err)
	}

	return store, closeFn, nil
}
