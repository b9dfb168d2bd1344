package vectordb

import (
	"context"
	"fmt"
	"os"
	"strconv"

	chromem "github.com/philippgille/chromem-go"

	"github.com/ragforge/ingest/internal/embeddings"
)

const collectionName = "ingest"

// ChromemStore implements VectorStore using an in-process chromem-go
// collection, persisted to disk between runs via gob export/import.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	embedder   embeddings.Embedder
	embedFunc  chromem.EmbeddingFunc
}

// NewChromemStore creates a new in-memory ChromemStore backed by embedder.
func NewChromemStore(embedder embeddings.Embedder) (*ChromemStore, error) {
	db := chromem.NewDB()
	ef := embeddings.ToChromemFunc(embedder)

	col, err := db.GetOrCreateCollection(collectionName, nil, ef)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &ChromemStore{
		db:         db,
		collection: col,
		embedder:   embedder,
		embedFunc:  ef,
	}, nil
}

func (s *ChromemStore) Upsert(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	chromDocs := make([]chromem.Document, len(docs))
	for i, doc := range docs {
		chromDocs[i] = chromem.Document{
			ID:       doc.ID,
			Content:  doc.Content,
			Metadata: metadataToMap(doc.Metadata),
		}
	}

	if err := s.collection.AddDocuments(ctx, chromDocs, 1); err != nil {
		return fmt.Errorf("chromem upsert: %w", err)
	}
	return nil
}

func (s *ChromemStore) Delete(ctx context.Context, where map[string]string, excludeFingerprint string) error {
	if excludeFingerprint == "" {
		if err := s.collection.Delete(ctx, where, nil); err != nil {
			return fmt.Errorf("chromem delete: %w", err)
		}
		return nil
	}

	matches, err := s.queryAll(ctx, where)
	if err != nil {
		return fmt.Errorf("chromem delete: locate matches: %w", err)
	}

	var staleIDs []string
	for _, m := range matches {
		if m.Metadata.Fingerprint != excludeFingerprint {
			staleIDs = append(staleIDs, m.ID)
		}
	}
	if len(staleIDs) == 0 {
		return nil
	}
	if err := s.collection.Delete(ctx, nil, nil, staleIDs...); err != nil {
		return fmt.Errorf("chromem delete: %w", err)
	}
	return nil
}

func (s *ChromemStore) IndexedFiles(ctx context.Context) (map[string]string, error) {
	docs, err := s.queryAll(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem scan: %w", err)
	}

	files := make(map[string]string, len(docs))
	for _, d := range docs {
		files[d.Metadata.Source] = d.Metadata.Fingerprint
	}
	return files, nil
}

// queryAll returns every stored document matching where (nil for no
// filter). chromem-go has no unfiltered "get all" call, so this uses a
// query whose result limit equals the collection size, which returns every
// matching document regardless of the ranking the dummy query text
// induces (chromem-go rejects an empty query text).
func (s *ChromemStore) queryAll(ctx context.Context, where map[string]string) ([]Document, error) {
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}

	results, err := s.collection.Query(ctx, "document", count, where, nil)
	if err != nil {
		return nil, err
	}

	docs := make([]Document, len(results))
	for i, r := range results {
		docs[i] = Document{
			ID:       r.ID,
			Content:  r.Content,
			Metadata: mapToMetadata(r.Metadata),
		}
	}
	return docs, nil
}

func (s *ChromemStore) Persist(ctx context.Context, dir string) error {
	if err := s.db.ExportToFile(dir+"/chromem.gob.gz", true, ""); err != nil {
		return fmt.Errorf("export chromem store: %w", err)
	}
	return nil
}

func (s *ChromemStore) Load(ctx context.Context, dir string) error {
	if _, err := os.Stat(dir + "/chromem.gob.gz"); os.IsNotExist(err) {
		return nil
	}
	err := s.db.ImportFromFile(dir+"/chromem.gob.gz", "")
	if err != nil {
		return fmt.Errorf("import chromem store: %w", err)
	}

	col := s.db.GetCollection(collectionName, s.embedFunc)
	if col == nil {
		return fmt.Errorf("collection %q not found after import", collectionName)
	}
	s.collection = col
	return nil
}

func (s *ChromemStore) Count() int {
	return s.collection.Count()
}

func (s *ChromemStore) Reset(ctx context.Context) error {
	if err := s.db.DeleteCollection(collectionName); err != nil {
		return fmt.Errorf("reset collection: %w", err)
	}
	col, err := s.db.GetOrCreateCollection(collectionName, nil, s.embedFunc)
	if err != nil {
		return fmt.Errorf("recreate collection: %w", err)
	}
	s.collection = col
	return nil
}

func metadataToMap(m DocumentMetadata) map[string]string {
	return map[string]string{
		"source":      m.Source,
		"fingerprint": m.Fingerprint,
		"filename":    m.Filename,
		"chunk_index": strconv.Itoa(m.ChunkIndex),
	}
}

func mapToMetadata(m map[string]string) DocumentMetadata {
	chunkIndex, _ := strconv.Atoi(m["chunk_index"])
	return DocumentMetadata{
		Source:      m["source"],
		Fingerprint: m["fingerprint"],
		Filename:    m["filename"],
		ChunkIndex:  chunkIndex,
	}
}
