package archivewalk

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ListDocsDir lists the regular files directly inside dir (no recursion
// into subdirectories, matching spec.md's "single flat or shallow
// directory" contract) whose names pass the include/exclude globs.
// Entries are returned as paths joined onto dir (absolute only when dir
// is), sorted lexicographically by base name.
func ListDocsDir(dir string, include, exclude []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read docs dir %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if e.Type()&os.ModeSymlink != 0 {
			continue
		}
		name := e.Name()
		if !MatchesInclude(name, include) {
			continue
		}
		if MatchesExclude(name, exclude) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(dir, name)
	}
	return paths, nil
}

// ZipLister implements batchbuilder.ArchiveLister against the standard
// archive/zip package.
type ZipLister struct{}

// List returns the non-directory entry names inside the ZIP file at path,
// sorted lexicographically. Directory entries (names ending in "/") are
// skipped per spec.md §6's archive-format contract.
func (ZipLister) List(path string) ([]string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}
	defer r.Close()

	var names []string
	for _, f := range r.File {
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		names = append(names, f.Name)
	}
	sort.Strings(names)
	return names, nil
}
