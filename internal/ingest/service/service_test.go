package service

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ragforge/ingest/internal/archivewalk"
	"github.com/ragforge/ingest/internal/config"
	"github.com/ragforge/ingest/internal/ingest/ingesterr"
	"github.com/ragforge/ingest/internal/vectordb"
)

type fakeStore struct {
	docs        []vectordb.Document
	resetCalled bool
}

func (f *fakeStore) Upsert(_ context.Context, docs []vectordb.Document) error {
	f.docs = append(f.docs, docs...)
	return nil
}

func (f *fakeStore) Delete(_ context.Context, where map[string]string, excludeFingerprint string) error {
	source := where["source"]
	var remaining []vectordb.Document
	for _, d := range f.docs {
		if d.Metadata.Source == source && d.Metadata.Fingerprint != excludeFingerprint {
			continue
		}
		remaining = append(remaining, d)
	}
	f.docs = remaining
	return nil
}

func (f *fakeStore) IndexedFiles(_ context.Context) (map[string]string, error) {
	out := make(map[string]string)
	for _, d := range f.docs {
		out[d.Metadata.Source] = d.Metadata.Fingerprint
	}
	return out, nil
}

func (f *fakeStore) Persist(_ context.Context, _ string) error { return nil }
func (f *fakeStore) Load(_ context.Context, _ string) error    { return nil }
func (f *fakeStore) Count() int                                { return len(f.docs) }
func (f *fakeStore) Reset(_ context.Context) error {
	f.resetCalled = true
	f.docs = nil
	return nil
}

type fakeSidecar struct{}

func (fakeSidecar) Start(ctx context.Context) error { return nil }
func (fakeSidecar) Stop() error                      { return nil }
func (fakeSidecar) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i)}
	}
	return out, nil
}

type nullReporter struct{}

func (nullReporter) Start(int)            {}
func (nullReporter) Update(int, string)   {}
func (nullReporter) Finish()              {}

func testConfig(docsDir string) config.Config {
	return config.Config{
		DocsDir:       docsDir,
		NWorkers:      2,
		WorkersPerGPU: 1,
		ChunkSize:     1024,
		ChunkOverlap:  128,
		TEIBatchSize:  10,
		UpsertBatch:   100,
		RunDeadline:   10 * time.Second,
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func writeZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}

// bySourceFingerprints groups a store's documents by source, recording
// every fingerprint seen for that source. Used to assert at most one
// generation is present per source after an incremental or interrupted
// run.
func bySourceFingerprints(docs []vectordb.Document) map[string]map[string]bool {
	out := make(map[string]map[string]bool)
	for _, d := range docs {
		if out[d.Metadata.Source] == nil {
			out[d.Metadata.Source] = make(map[string]bool)
		}
		out[d.Metadata.Source][d.Metadata.Fingerprint] = true
	}
	return out
}

// failingSidecar always fails Embed, simulating a sidecar process that
// accepts requests but never answers successfully (e.g. an exhausted
// GPU or a crashed model worker).
type failingSidecar struct{}

func (failingSidecar) Start(ctx context.Context) error { return nil }
func (failingSidecar) Stop() error                     { return nil }
func (failingSidecar) Embed(_ context.Context, _ []string) ([][]float32, error) {
	return nil, errors.New("sidecar unreachable")
}

// blockingSidecar never returns from Embed until its context is done,
// simulating a worker whose run is cancelled mid-flight.
type blockingSidecar struct{}

func (blockingSidecar) Start(ctx context.Context) error { return nil }
func (blockingSidecar) Stop() error                     { return nil }
func (blockingSidecar) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestService_Index_EmbedsAndUpsertsChangedFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "alpha content")
	writeFile(t, filepath.Join(dir, "b.txt"), "beta content")

	store := &fakeStore{}
	svc := New(testConfig(dir), store, nil, func() Sidecar { return fakeSidecar{} }, nullReporter{})

	summary, err := svc.Index(context.Background())
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if summary == "no changes detected" {
		t.Fatal("expected changes to be detected on first run")
	}
	if len(store.docs) == 0 {
		t.Fatal("expected chunks to be written to the store")
	}
}

func TestService_Index_NoChangesOnSecondRun(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "alpha content")

	store := &fakeStore{}
	svc := New(testConfig(dir), store, nil, func() Sidecar { return fakeSidecar{} }, nullReporter{})

	if _, err := svc.Index(context.Background()); err != nil {
		t.Fatalf("first Index: %v", err)
	}
	summary, err := svc.Index(context.Background())
	if err != nil {
		t.Fatalf("second Index: %v", err)
	}
	if summary != "no changes detected" {
		t.Errorf("expected no changes on second run, got %q", summary)
	}
}

func TestService_DryRun_DoesNotMutateStore(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "alpha content")

	store := &fakeStore{}
	svc := New(testConfig(dir), store, nil, func() Sidecar { return fakeSidecar{} }, nullReporter{})

	est, err := svc.DryRun(context.Background())
	if err != nil {
		t.Fatalf("DryRun: %v", err)
	}
	if est.ChangedFiles != 1 {
		t.Errorf("expected 1 changed file, got %d", est.ChangedFiles)
	}
	if len(store.docs) != 0 {
		t.Error("expected DryRun not to write anything to the store")
	}
}

func TestService_Reset_ClearsStore(t *testing.T) {
	store := &fakeStore{docs: []vectordb.Document{{ID: "1"}}}
	svc := New(testConfig(t.TempDir()), store, nil, func() Sidecar { return fakeSidecar{} }, nullReporter{})

	if err := svc.Reset(context.Background()); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if !store.resetCalled || len(store.docs) != 0 {
		t.Error("expected Reset to clear the store")
	}
}

// TestService_Index_EmbedsArchiveEntries exercises the archive
// (KindArchiveEntries) path at the service level: every entry inside the
// zip shares the archive's own Source, and the archive's chunks land in
// the store alongside the loose file's.
func TestService_Index_EmbedsArchiveEntries(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "loose.txt"), "loose content")
	writeZip(t, filepath.Join(dir, "bundle.zip"), map[string]string{
		"one.txt": "first entry content",
		"two.txt": "second entry content",
	})

	store := &fakeStore{}
	svc := New(testConfig(dir), store, archivewalk.ZipLister{}, func() Sidecar { return fakeSidecar{} }, nullReporter{})

	if _, err := svc.Index(context.Background()); err != nil {
		t.Fatalf("Index: %v", err)
	}

	bySource := bySourceFingerprints(store.docs)
	if _, ok := bySource["bundle.zip"]; !ok {
		t.Fatalf("expected chunks sourced from bundle.zip, got sources %v", keysOf(bySource))
	}
	if n := len(bySource["bundle.zip"]); n != 1 {
		t.Errorf("expected exactly one fingerprint generation for bundle.zip, got %d", n)
	}
	if _, ok := bySource["loose.txt"]; !ok {
		t.Errorf("expected chunks sourced from loose.txt, got sources %v", keysOf(bySource))
	}
}

func keysOf(m map[string]map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// TestService_Index_IncrementalRerun_ArchiveUnchangedLooseChanged covers
// scenario S4: re-running Index after only one source changed must
// replace that source's chunks without disturbing the rest, and must
// detect an untouched archive as unchanged on the second pass (the
// regression this package previously had no archive coverage for).
func TestService_Index_IncrementalRerun_ArchiveUnchangedLooseChanged(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "alpha content")
	writeZip(t, filepath.Join(dir, "bundle.zip"), map[string]string{
		"one.txt": "first entry content",
	})

	store := &fakeStore{}
	svc := New(testConfig(dir), store, archivewalk.ZipLister{}, func() Sidecar { return fakeSidecar{} }, nullReporter{})

	if _, err := svc.Index(context.Background()); err != nil {
		t.Fatalf("first Index: %v", err)
	}
	firstGenerations := bySourceFingerprints(store.docs)
	archiveFPBefore := singleFingerprint(t, firstGenerations, "bundle.zip")

	writeFile(t, filepath.Join(dir, "a.txt"), "alpha content, now changed and longer")

	summary, err := svc.Index(context.Background())
	if err != nil {
		t.Fatalf("second Index: %v", err)
	}
	if summary == "no changes detected" {
		t.Fatal("expected the changed loose file to be detected")
	}

	after := bySourceFingerprints(store.docs)
	for source, fps := range after {
		if len(fps) != 1 {
			t.Errorf("source %s has more than one fingerprint generation after rerun: %v", source, fps)
		}
	}
	if singleFingerprint(t, after, "bundle.zip") != archiveFPBefore {
		t.Error("expected the untouched archive's fingerprint to be unchanged across runs")
	}
}

func singleFingerprint(t *testing.T, bySource map[string]map[string]bool, source string) string {
	t.Helper()
	fps, ok := bySource[source]
	if !ok || len(fps) != 1 {
		t.Fatalf("expected exactly one fingerprint generation for %s, got %v", source, fps)
	}
	for fp := range fps {
		return fp
	}
	return ""
}

// TestService_Index_SidecarFailureSurfacesTransientIO covers scenario
// S5: a sidecar that fails every embed call must surface as a
// TransientIO error from Index, not a silent partial success.
func TestService_Index_SidecarFailureSurfacesTransientIO(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "alpha content")

	store := &fakeStore{}
	svc := New(testConfig(dir), store, nil, func() Sidecar { return failingSidecar{} }, nullReporter{})

	_, err := svc.Index(context.Background())
	if err == nil {
		t.Fatal("expected an error when the sidecar never succeeds")
	}
	if kind, ok := ingesterr.KindOf(err); !ok || kind != ingesterr.TransientIO {
		t.Errorf("expected a TransientIO error, got %v (kind=%q ok=%v)", err, kind, ok)
	}
}

// TestService_Index_CancellationMidRunLeavesAtMostOneGenerationPerSource
// covers scenario S6: cancelling a run must not hang (the fan-out loop's
// ctx.Done() branch must not spawn a goroutine that never acquired the
// semaphore), and whatever did land in the store before cancellation must
// still have exactly one fingerprint generation per source.
func TestService_Index_CancellationMidRunLeavesAtMostOneGenerationPerSource(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "alpha content")
	writeFile(t, filepath.Join(dir, "b.txt"), "beta content")

	store := &fakeStore{}
	svc := New(testConfig(dir), store, nil, func() Sidecar { return blockingSidecar{} }, nullReporter{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() { _, err := svc.Index(ctx); done <- err }()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected an error for a cancelled run")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Index did not return after cancellation; fan-out loop likely deadlocked")
	}

	for source, fps := range bySourceFingerprints(store.docs) {
		if len(fps) > 1 {
			t.Errorf("source %s has more than one fingerprint generation after a cancelled run: %v", source, fps)
		}
	}
}
