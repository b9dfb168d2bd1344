// Package service wires the whole pipeline together: scan, partition,
// embed fan-out, and a single serialized writer.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ragforge/ingest/internal/config"
	"github.com/ragforge/ingest/internal/ingest/batchbuilder"
	"github.com/ragforge/ingest/internal/ingest/embedworker"
	"github.com/ragforge/ingest/internal/ingest/fileparser"
	"github.com/ragforge/ingest/internal/ingest/scanner"
	"github.com/ragforge/ingest/internal/ingest/upsertworker"
	"github.com/ragforge/ingest/internal/progress"
	"github.com/ragforge/ingest/internal/vectordb"
)

// Sidecar is the embedding dependency the service binds one per embed
// worker goroutine; sidecar.Client implements it.
type Sidecar interface {
	embedworker.Sidecar
	Start(ctx context.Context) error
	Stop() error
}

// SidecarFactory builds one fresh Sidecar per embed-worker goroutine, so
// each worker owns its own subprocess/client rather than sharing one
// across goroutines.
type SidecarFactory func() Sidecar

// ArchiveLister lists a zip archive's entries; archivewalk.ZipLister
// satisfies this.
type ArchiveLister = batchbuilder.ArchiveLister

// Service runs index/dry-run/reset operations against one configured
// docs directory and vector store.
type Service struct {
	Config         config.Config
	Store          vectordb.VectorStore
	ArchiveLister  ArchiveLister
	SidecarFactory SidecarFactory
	Reporter       progress.Reporter
}

// New builds a Service from its collaborators.
func New(cfg config.Config, store vectordb.VectorStore, archiveLister ArchiveLister, sidecarFactory SidecarFactory, reporter progress.Reporter) *Service {
	if reporter == nil {
		reporter = progress.NewReporter()
	}
	return &Service{
		Config:         cfg,
		Store:          store,
		ArchiveLister:  archiveLister,
		SidecarFactory: sidecarFactory,
		Reporter:       reporter,
	}
}

// Estimate is DryRun's result: the work a real Index call would do,
// without starting a sidecar or touching the store.
type Estimate struct {
	ChangedFiles int
	WorkUnits    int
	EstimatedSrc int // rough chunk estimate: total parsed chars / (ChunkSize*4), rounded down
}

func (s *Service) writer() *upsertworker.Writer {
	return upsertworker.New(s.Store, s.Config.UpsertBatch)
}

func (s *Service) workerCount() int {
	n := s.Config.NWorkers * s.Config.WorkersPerGPU
	if n <= 0 {
		n = 1
	}
	return n
}

// Index runs one full scan-embed-upsert pass and returns a short summary
// string (the spec's "audit-style receipt" of how many sources changed
// and how many chunks were written).
func (s *Service) Index(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.deadline())
	defer cancel()

	writer := s.writer()

	sc := scanner.New(s.Config.Include, s.Config.Exclude)
	changed, err := sc.Scan(ctx, s.Config.DocsDir, writer.IndexedFiles)
	if err != nil {
		return "", fmt.Errorf("scan: %w", err)
	}
	if len(changed) == 0 {
		return "no changes detected", nil
	}

	assignments, err := batchbuilder.Build(changed, s.ArchiveLister, s.workerCount())
	if err != nil {
		return "", fmt.Errorf("build batches: %w", err)
	}

	s.Reporter.Start(len(assignments))
	defer s.Reporter.Finish()

	splitter := embedworker.NewTokenSplitter(s.Config.ChunkSize, s.Config.ChunkOverlap)

	// Bounded queue between embed fan-out and the single writer
	// (spec.md §4.6 backpressure): capacity is a small multiple of the
	// worker count so a slow writer stalls new embed work instead of
	// buffering it all in memory.
	queue := make(chan upsertworker.Batch, s.workerCount()*2)
	writerErrCh := make(chan error, 1)
	go func() {
		writerErrCh <- writer.Run(ctx, queue)
	}()

	var (
		mu         sync.Mutex
		firstErr   error
		processed  int
		totalChunk int
	)
	recordErr := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	sem := make(chan struct{}, s.workerCount())
	var wg sync.WaitGroup

	for _, a := range assignments {
		select {
		case <-ctx.Done():
			recordErr(ctx.Err())
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(a batchbuilder.Assignment) {
			defer wg.Done()
			defer func() { <-sem }()

			sc := s.SidecarFactory()
			if err := sc.Start(ctx); err != nil {
				recordErr(fmt.Errorf("start sidecar for worker-%d: %w", a.WorkerID, err))
				return
			}
			defer sc.Stop()

			worker := embedworker.New(fileparser.NewParser(), splitter, sc, s.Config.TEIBatchSize)
			chunks, errs := worker.Embed(ctx, a.Unit)
			for _, e := range errs {
				recordErr(e)
			}
			if len(chunks) > 0 {
				select {
				case queue <- upsertworker.Batch{Chunks: chunks, WorkerID: a.WorkerID}:
				case <-ctx.Done():
					recordErr(ctx.Err())
					return
				}
			}

			mu.Lock()
			processed++
			totalChunk += len(chunks)
			s.Reporter.Update(processed, fmt.Sprintf("worker-%d", a.WorkerID))
			mu.Unlock()
		}(a)
	}

	wg.Wait()
	close(queue)

	if err := <-writerErrCh; err != nil {
		recordErr(fmt.Errorf("writer: %w", err))
	}

	if firstErr != nil {
		return "", firstErr
	}
	return fmt.Sprintf("indexed %d changed source(s) into %d chunk(s)", len(changed), totalChunk), nil
}

// DryRun reports what Index would do without starting a sidecar or
// mutating the store.
func (s *Service) DryRun(ctx context.Context) (Estimate, error) {
	writer := s.writer()

	sc := scanner.New(s.Config.Include, s.Config.Exclude)
	changed, err := sc.Scan(ctx, s.Config.DocsDir, writer.IndexedFiles)
	if err != nil {
		return Estimate{}, fmt.Errorf("scan: %w", err)
	}

	assignments, err := batchbuilder.Build(changed, s.ArchiveLister, s.workerCount())
	if err != nil {
		return Estimate{}, fmt.Errorf("build batches: %w", err)
	}

	parser := fileparser.NewParser()
	var estimatedChars int
	for _, a := range assignments {
		docs, _ := parser.Parse(ctx, a.Unit)
		for _, d := range docs {
			estimatedChars += len(d.Text)
		}
	}
	nodesPerChunk := s.Config.ChunkSize * 4
	if nodesPerChunk <= 0 {
		nodesPerChunk = 1
	}

	return Estimate{
		ChangedFiles: len(changed),
		WorkUnits:    len(assignments),
		EstimatedSrc: estimatedChars / nodesPerChunk,
	}, nil
}

// Reset drops every document in the store, so the next Index call
// treats every file as new.
func (s *Service) Reset(ctx context.Context) error {
	return s.Store.Reset(ctx)
}

func (s *Service) deadline() time.Duration {
	if s.Config.RunDeadline <= 0 {
		return 60 * time.Minute
	}
	return s.Config.RunDeadline
}
