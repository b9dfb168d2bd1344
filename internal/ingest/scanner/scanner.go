// Package scanner detects which files in the docs directory are new or
// changed since the last index run.
package scanner

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/ragforge/ingest/internal/archivewalk"
	"github.com/ragforge/ingest/internal/ingest/fingerprint"
	"github.com/ragforge/ingest/internal/ingest/ingesterr"
)

// IndexedFunc returns the vector store's current view of indexed sources,
// the only source of prior-run state available to Scan.
type IndexedFunc func(ctx context.Context) (fingerprint.IndexedFiles, error)

// Scanner lists a docs directory non-recursively and filters it by glob
// include/exclude patterns before fingerprint comparison.
type Scanner struct {
	Include []string
	Exclude []string
}

// New returns a Scanner with the given include/exclude glob patterns.
func New(include, exclude []string) *Scanner {
	return &Scanner{Include: include, Exclude: exclude}
}

// Scan lists docsDir, computes each entry's fingerprint, and returns the
// full filesystem paths whose fingerprint differs from (or is absent
// from) the indexed set, sorted lexicographically by path. The indexed
// set is keyed by basename (fileparser.DocumentMeta.Source), so lookups
// compare against filepath.Base(path), not the full path.
func (s *Scanner) Scan(ctx context.Context, docsDir string, indexed IndexedFunc) ([]string, error) {
	paths, err := archivewalk.ListDocsDir(docsDir, s.Include, s.Exclude)
	if err != nil {
		return nil, ingesterr.New(ingesterr.Configuration, docsDir, err)
	}

	prior, err := indexed(ctx)
	if err != nil {
		return nil, fmt.Errorf("load indexed files: %w", err)
	}

	var changed []string
	for _, path := range paths {
		fp, err := fingerprint.Of(path)
		if err != nil {
			return nil, ingesterr.New(ingesterr.Configuration, path, err)
		}
		if prior[filepath.Base(path)] != fp {
			changed = append(changed, path)
		}
	}
	return changed, nil
}
