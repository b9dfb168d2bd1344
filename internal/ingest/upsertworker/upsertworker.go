// Package upsertworker is the single serialized writer into the vector
// store: it enforces the delete-first-then-upsert consistency rule and is
// the only goroutine ever allowed to call vectordb.VectorStore's mutating
// methods during a run.
package upsertworker

import (
	"context"
	"fmt"
	"time"

	"github.com/ragforge/ingest/internal/ingest/embedworker"
	"github.com/ragforge/ingest/internal/ingest/fingerprint"
	"github.com/ragforge/ingest/internal/ingest/ingesterr"
	"github.com/ragforge/ingest/internal/vectordb"
)

// Batch is one embed worker's completed output, tagged with the worker
// that produced it so callers can attribute failures.
type Batch struct {
	Chunks   []embedworker.Chunk
	WorkerID int
}

// Writer serializes every mutation against a VectorStore. It tracks, per
// source, the fingerprint generation it has already reconciled this run
// so it only issues one delete per source even across many batches.
type Writer struct {
	Store       vectordb.VectorStore
	UpsertBatch int

	MaxRetries  int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration

	seenGeneration map[string]string // source -> fingerprint already deleted-for
}

// New builds a Writer with the teacher's retry shape (5 retries after the
// first attempt, 15s
// base backoff doubling to a 2-minute ceiling, per
// indexer.FileAnalyzer.completeWithRetry) unless overridden.
func New(store vectordb.VectorStore, upsertBatch int) *Writer {
	return &Writer{
		Store:          store,
		UpsertBatch:    upsertBatch,
		MaxRetries:     5,
		BaseBackoff:    15 * time.Second,
		MaxBackoff:     2 * time.Minute,
		seenGeneration: make(map[string]string),
	}
}

// Run drains in until it closes or ctx is cancelled, writing every batch
// in receive order. It is the only consumer of in and must run on a
// single goroutine: concurrent callers would race on seenGeneration and
// violate the single-writer discipline spec.md requires.
func (w *Writer) Run(ctx context.Context, in <-chan Batch) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case batch, ok := <-in:
			if !ok {
				return nil
			}
			if err := w.Write(ctx, batch.Chunks); err != nil {
				return fmt.Errorf("upsert worker-%d batch: %w", batch.WorkerID, err)
			}
		}
	}
}

// Write reconciles and stores one batch of chunks: for every source whose
// fingerprint has changed since this writer last saw it, stale chunks
// from every older generation are deleted before any chunk from this
// batch is upserted (spec.md §4.7 delete-first), then the batch is
// upserted in UpsertBatch-sized sub-batches with bounded retry.
func (w *Writer) Write(ctx context.Context, chunks []embedworker.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	if err := w.reconcileGenerations(ctx, chunks); err != nil {
		return err
	}

	docs := toDocuments(chunks)
	batchSize := w.UpsertBatch
	if batchSize <= 0 {
		batchSize = len(docs)
	}

	for start := 0; start < len(docs); start += batchSize {
		end := start + batchSize
		if end > len(docs) {
			end = len(docs)
		}
		if err := w.upsertWithRetry(ctx, docs[start:end]); err != nil {
			return err
		}
	}
	return nil
}

// reconcileGenerations deletes, for every source newly seen (or seen with
// a changed fingerprint) in chunks, every stale chunk that isn't from the
// incoming generation.
func (w *Writer) reconcileGenerations(ctx context.Context, chunks []embedworker.Chunk) error {
	generations := make(map[string]string) // source -> fingerprint, this batch
	for _, c := range chunks {
		generations[c.Meta.Source] = c.Meta.Fingerprint
	}

	for source, fp := range generations {
		if w.seenGeneration[source] == fp {
			continue
		}
		if err := w.Store.Delete(ctx, map[string]string{"source": source}, fp); err != nil {
			return fmt.Errorf("delete stale chunks for %s: %w", source, err)
		}
		w.seenGeneration[source] = fp
	}
	return nil
}

func (w *Writer) upsertWithRetry(ctx context.Context, docs []vectordb.Document) error {
	backoff := w.BaseBackoff
	var lastErr error

	for attempt := 0; attempt <= w.MaxRetries; attempt++ {
		err := w.Store.Upsert(ctx, docs)
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt == w.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
			backoff *= 2
			if backoff > w.MaxBackoff {
				backoff = w.MaxBackoff
			}
		}
	}

	return ingesterr.New(ingesterr.StoreConflict, "", fmt.Errorf("upsert failed after %d retries: %w", w.MaxRetries, lastErr))
}

// IndexedFiles scans the store's metadata and folds it into the
// scanner's change-detection input. It is the only source of prior-run
// state: the scanner has no other way to learn what was indexed before.
func (w *Writer) IndexedFiles(ctx context.Context) (fingerprint.IndexedFiles, error) {
	raw, err := w.Store.IndexedFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan indexed files: %w", err)
	}
	out := make(fingerprint.IndexedFiles, len(raw))
	for source, fp := range raw {
		out[source] = fingerprint.Fingerprint(fp)
	}
	return out, nil
}

func toDocuments(chunks []embedworker.Chunk) []vectordb.Document {
	docs := make([]vectordb.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = vectordb.Document{
			ID:      c.ID,
			Content: c.Text,
			Metadata: vectordb.DocumentMetadata{
				Source:      c.Meta.Source,
				Fingerprint: c.Meta.Fingerprint,
				Filename:    c.Meta.Filename,
				ChunkIndex:  i,
			},
		}
	}
	return docs
}
