// Package fileparser turns a batchbuilder.WorkUnit into parsed documents,
// reading loose files directly and archive entries from within their ZIP
// once per unit.
package fileparser

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ragforge/ingest/internal/ingest/batchbuilder"
	"github.com/ragforge/ingest/internal/ingest/fingerprint"
)

// Document is one parsed source ready for splitting and embedding.
type Document struct {
	Text string
	Meta DocumentMeta
}

// DocumentMeta identifies where a Document came from. Source is the
// basename of the loose file, or the basename of the archive for an
// archive member, so every entry in the same archive shares one Source
// and the scanner's fingerprint comparison and the writer's
// delete-stale-generation logic both key on one identity per archive,
// not per entry.
type DocumentMeta struct {
	Source      string
	Fingerprint string
	Filename    string
}

// GenericReader reads the full text content of a loose file on disk.
// Pluggable so tests can stub PDF/DOCX/plaintext handling without
// needing real files on disk.
type GenericReader interface {
	Read(path string) (string, error)
}

// PDFExtractor extracts page text from a PDF given random access to its
// bytes, one string per page, so callers can join them in page order.
type PDFExtractor interface {
	ExtractPages(r io.ReaderAt, size int64) ([]string, error)
}

// Parser parses both loose files and archive entries named by a WorkUnit.
type Parser struct {
	Generic GenericReader
	PDF     PDFExtractor
}

// NewParser returns a Parser using the default PDF/DOCX-aware readers.
func NewParser() *Parser {
	return &Parser{Generic: defaultGenericReader{}, PDF: defaultPDFExtractor{}}
}

// Parse parses every path or archive entry named by unit. Per-file or
// per-entry failures are collected, not fatal, so the caller gets every
// document that did parse plus every error that didn't.
func (p *Parser) Parse(ctx context.Context, unit batchbuilder.WorkUnit) ([]Document, []error) {
	if unit.Kind == batchbuilder.KindArchiveEntries {
		return p.parseArchive(unit)
	}
	return p.parseLoose(unit.Paths)
}

func (p *Parser) parseLoose(paths []string) ([]Document, []error) {
	var docs []Document
	var errs []error

	for _, path := range paths {
		fp, err := fingerprint.Of(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("fingerprint %s: %w", path, err))
			continue
		}

		text, err := p.readLoose(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("parse %s: %w", path, err))
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		docs = append(docs, Document{
			Text: text,
			Meta: DocumentMeta{Source: filepath.Base(path), Fingerprint: string(fp), Filename: filepath.Base(path)},
		})
	}
	return docs, errs
}

func (p *Parser) readLoose(path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		pages, err := p.PDF.ExtractPages(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return "", err
		}
		return strings.Join(pages, "\n\n"), nil
	}
	return p.Generic.Read(path)
}

func (p *Parser) parseArchive(unit batchbuilder.WorkUnit) ([]Document, []error) {
	archiveFP, err := fingerprint.Of(unit.Archive)
	if err != nil {
		return nil, []error{fmt.Errorf("fingerprint archive %s: %w", unit.Archive, err)}
	}

	r, err := zip.OpenReader(unit.Archive)
	if err != nil {
		return nil, []error{fmt.Errorf("open archive %s: %w", unit.Archive, err)}
	}
	defer r.Close()

	byName := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		byName[f.Name] = f
	}

	var docs []Document
	var errs []error

	archiveSource := filepath.Base(unit.Archive)

	for _, entry := range unit.Entries {
		// identifier for error messages only; Meta.Source stays the
		// archive's own basename so every entry shares one generation.
		id := unit.Archive + "!" + entry

		f, ok := byName[entry]
		if !ok {
			errs = append(errs, fmt.Errorf("entry %s not found in %s", entry, unit.Archive))
			continue
		}

		text, err := p.readArchiveEntry(f)
		if err != nil {
			errs = append(errs, fmt.Errorf("read %s: %w", id, err))
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		docs = append(docs, Document{
			Text: text,
			Meta: DocumentMeta{Source: archiveSource, Fingerprint: string(archiveFP), Filename: filepath.Base(entry)},
		})
	}
	return docs, errs
}

func (p *Parser) readArchiveEntry(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}

	if strings.EqualFold(filepath.Ext(f.Name), ".pdf") {
		pages, err := p.PDF.ExtractPages(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return "", err
		}
		return strings.Join(pages, "\n\n"), nil
	}

	return strings.ToValidUTF8(string(data), "�"), nil
}
