// Package batchbuilder partitions scanned files into balanced work units
// for the embed worker pool.
package batchbuilder

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ragforge/ingest/internal/ingest/ingesterr"
)

// Kind distinguishes a work unit backed by loose files from one backed by
// entries inside a single archive.
type Kind int

const (
	KindLooseFiles Kind = iota
	KindArchiveEntries
)

// WorkUnit is either a set of loose file paths or a set of entry names
// inside one archive.
type WorkUnit struct {
	Kind    Kind
	Paths   []string // set when Kind == KindLooseFiles
	Archive string   // set when Kind == KindArchiveEntries
	Entries []string // set when Kind == KindArchiveEntries
}

// Assignment pairs a work unit with the worker id it was submitted to.
type Assignment struct {
	Unit     WorkUnit
	WorkerID int
}

// ArchiveLister lists the non-directory entry names inside an archive.
type ArchiveLister interface {
	List(path string) ([]string, error)
}

// Build partitions files into ceiling-sized groups, at most w per
// partition: the loose (non-archive) files form one partition and each
// ".zip"-suffixed input forms its own. Loose files are chunked first;
// every archive is then opened via archiveLister and its entries chunked the same way,
// tagged with the originating archive path. Worker ids are assigned
// densely starting at 0 across the concatenation of both partitions.
func Build(files []string, archiveLister ArchiveLister, w int) ([]Assignment, error) {
	if w <= 0 {
		return nil, ingesterr.New(ingesterr.Configuration, "", fmt.Errorf("worker count must be positive, got %d", w))
	}

	var loose []string
	var archives []string
	for _, f := range files {
		if strings.EqualFold(filepath.Ext(f), ".zip") {
			archives = append(archives, f)
		} else {
			loose = append(loose, f)
		}
	}

	var assignments []Assignment
	workerID := 0

	for _, group := range chunk(loose, w) {
		assignments = append(assignments, Assignment{
			Unit:     WorkUnit{Kind: KindLooseFiles, Paths: group},
			WorkerID: workerID,
		})
		workerID++
	}

	for _, archive := range archives {
		entries, err := archiveLister.List(archive)
		if err != nil {
			return nil, err
		}
		for _, group := range chunk(entries, w) {
			assignments = append(assignments, Assignment{
				Unit:     WorkUnit{Kind: KindArchiveEntries, Archive: archive, Entries: group},
				WorkerID: workerID,
			})
			workerID++
		}
	}

	return assignments, nil
}

// chunk splits items into ceil(len(items)/w)-sized groups, the last group
// holding the remainder. Returns nil for an empty input.
func chunk(items []string, w int) [][]string {
	n := len(items)
	if n == 0 {
		return nil
	}

	size := (n + w - 1) / w
	var groups [][]string
	for i := 0; i < n; i += size {
		end := i + size
		if end > n {
			end = n
		}
		groups = append(groups, items[i:end])
	}
	return groups
}
