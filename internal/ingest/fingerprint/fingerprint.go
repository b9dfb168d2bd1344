// Package fingerprint computes the stable per-file identity the pipeline
// uses to detect whether a source file has changed since the last index.
package fingerprint

import (
	"fmt"
	"os"
)

// Fingerprint is "<mtime_ns>:<size>" for a file. It is stable while the
// file is unchanged and changes iff content or mtime changes.
type Fingerprint string

// Of computes the fingerprint of the file at path.
func Of(path string) (Fingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	return Fingerprint(fmt.Sprintf("%d:%d", info.ModTime().UnixNano(), info.Size())), nil
}

// IndexedFiles maps a source identifier to the fingerprint generation
// currently visible for it in the vector store. It is the only source of
// prior-run state the scanner has, and lives here (rather than in the
// service package that otherwise owns it) so both scanner and
// upsertworker can depend on it without an import cycle through service.
type IndexedFiles map[string]Fingerprint
