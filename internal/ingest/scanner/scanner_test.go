package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ragforge/ingest/internal/ingest/fingerprint"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestScan_NewFileIsChanged(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "hello")

	s := New(nil, nil)
	changed, err := s.Scan(context.Background(), dir, func(context.Context) (fingerprint.IndexedFiles, error) {
		return fingerprint.IndexedFiles{}, nil
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(changed) != 1 {
		t.Fatalf("expected 1 changed file, got %v", changed)
	}
}

func TestScan_UnchangedFileSkipped(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	writeFile(t, path, "hello")

	fp, err := fingerprint.Of(path)
	if err != nil {
		t.Fatal(err)
	}

	s := New(nil, nil)
	changed, err := s.Scan(context.Background(), dir, func(context.Context) (fingerprint.IndexedFiles, error) {
		return fingerprint.IndexedFiles{filepath.Base(path): fp}, nil
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(changed) != 0 {
		t.Errorf("expected no changed files, got %v", changed)
	}
}

func TestScan_ModifiedFileDetected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	writeFile(t, path, "hello")

	s := New(nil, nil)
	changed, err := s.Scan(context.Background(), dir, func(context.Context) (fingerprint.IndexedFiles, error) {
		return fingerprint.IndexedFiles{filepath.Base(path): "stale-fingerprint"}, nil
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(changed) != 1 || changed[0] != path {
		t.Errorf("expected %s reported changed, got %v", path, changed)
	}
}

func TestScan_SortedLexicographically(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "z.txt"), "z")
	writeFile(t, filepath.Join(dir, "a.txt"), "a")

	s := New(nil, nil)
	changed, err := s.Scan(context.Background(), dir, func(context.Context) (fingerprint.IndexedFiles, error) {
		return fingerprint.IndexedFiles{}, nil
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(changed) != 2 || filepath.Base(changed[0]) != "a.txt" || filepath.Base(changed[1]) != "z.txt" {
		t.Errorf("expected sorted [a.txt z.txt], got %v", changed)
	}
}

func TestScan_MissingDocsDirIsConfigurationError(t *testing.T) {
	s := New(nil, nil)
	_, err := s.Scan(context.Background(), filepath.Join(t.TempDir(), "missing"), func(context.Context) (fingerprint.IndexedFiles, error) {
		return fingerprint.IndexedFiles{}, nil
	})
	if err == nil {
		t.Fatal("expected error for missing docs dir")
	}
}
