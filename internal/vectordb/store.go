package vectordb

import "context"

// VectorStore defines the storage operations the ingestion pipeline needs
// against a chunk-level vector index. It has no retrieval-time query
// surface; the only read path is IndexedFiles, which the scanner uses to
// decide what has changed since the last run.
type VectorStore interface {
	// Upsert embeds and stores docs, overwriting any existing document
	// with the same ID.
	Upsert(ctx context.Context, docs []Document) error

	// Delete removes every document whose metadata matches where exactly,
	// optionally narrowed further to documents whose Fingerprint is NOT
	// equal to excludeFingerprint (pass "" to delete all matches).
	Delete(ctx context.Context, where map[string]string, excludeFingerprint string) error

	// IndexedFiles scans all stored metadata and folds it into a map of
	// source -> fingerprint, one entry per distinct source. This is the
	// only source of prior-run state the scanner has.
	IndexedFiles(ctx context.Context) (map[string]string, error)

	// Persist saves the store's data to the given directory.
	Persist(ctx context.Context, dir string) error

	// Load restores the store's data from the given directory. It is not
	// an error for dir to contain no prior export.
	Load(ctx context.Context, dir string) error

	// Count returns the total number of chunks in the store.
	Count() int

	// Reset drops every document in the collection.
	Reset(ctx context.Context) error
}
