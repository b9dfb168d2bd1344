// Package embedworker turns one batchbuilder.WorkUnit into embedded
// chunks: parse, split into overlapping nodes, and embed each node
// through a sidecar client in batches.
package embedworker

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ragforge/ingest/internal/ingest/batchbuilder"
	"github.com/ragforge/ingest/internal/ingest/fileparser"
	"github.com/ragforge/ingest/internal/ingest/ingesterr"
)

// Chunk is one embedded node ready for the upsert writer.
type Chunk struct {
	ID     string
	Vector []float32
	Text   string
	Meta   fileparser.DocumentMeta
}

// Sidecar is the embedding call embedworker needs; sidecar.Client
// implements it. Kept as a narrow local interface rather than importing
// the sidecar package directly so tests can stub it without starting a
// real TEI process.
type Sidecar interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Worker embeds the documents named by one work unit.
type Worker struct {
	Parser       *fileparser.Parser
	Splitter     Splitter
	Sidecar      Sidecar
	TEIBatchSize int
}

// New builds a Worker from its collaborators.
func New(parser *fileparser.Parser, splitter Splitter, sidecar Sidecar, teiBatchSize int) *Worker {
	return &Worker{Parser: parser, Splitter: splitter, Sidecar: sidecar, TEIBatchSize: teiBatchSize}
}

type node struct {
	text string
	meta fileparser.DocumentMeta
}

// Embed parses unit, splits every resulting document into nodes, and
// embeds them through the sidecar in TEIBatchSize-sized requests. Output
// order equals node order: documents in parse order, nodes within a
// document in split order. Parse errors are returned alongside any
// chunks that did succeed, never silently dropped.
func (w *Worker) Embed(ctx context.Context, unit batchbuilder.WorkUnit) ([]Chunk, []error) {
	docs, parseErrs := w.Parser.Parse(ctx, unit)

	var nodes []node
	for _, doc := range docs {
		for _, text := range w.Splitter.Split(doc.Text) {
			nodes = append(nodes, node{text: text, meta: doc.Meta})
		}
	}
	if len(nodes) == 0 {
		return nil, parseErrs
	}

	batchSize := w.TEIBatchSize
	if batchSize <= 0 {
		batchSize = len(nodes)
	}

	chunks := make([]Chunk, 0, len(nodes))
	for start := 0; start < len(nodes); start += batchSize {
		end := start + batchSize
		if end > len(nodes) {
			end = len(nodes)
		}
		slice := nodes[start:end]

		texts := make([]string, len(slice))
		for i, n := range slice {
			texts[i] = n.text
		}

		vectors, err := w.Sidecar.Embed(ctx, texts)
		if err != nil {
			return chunks, append(parseErrs, ingesterr.New(ingesterr.TransientIO, fmt.Sprintf("worker-batch-%d", start), err))
		}
		if len(vectors) != len(slice) {
			return chunks, append(parseErrs, ingesterr.New(ingesterr.TransientIO, fmt.Sprintf("worker-batch-%d", start),
				fmt.Errorf("sidecar returned %d vectors for %d texts", len(vectors), len(slice))))
		}

		for i, n := range slice {
			chunks = append(chunks, Chunk{
				ID:     uuid.NewString(),
				Vector: vectors[i],
				Text:   n.text,
				Meta:   n.meta,
			})
		}
	}

	return chunks, parseErrs
}
