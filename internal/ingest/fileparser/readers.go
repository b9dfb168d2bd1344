package fileparser

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	docx "github.com/fumiama/go-docx"
	"github.com/ledongthuc/pdf"
)

// defaultGenericReader reads DOCX files with go-docx and falls back to
// UTF-8-replace decoding for everything else (plaintext and any unknown
// kind, per spec.md §6).
type defaultGenericReader struct{}

func (defaultGenericReader) Read(path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".docx") {
		return readDocx(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(data), "�"), nil
}

func readDocx(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}

	doc, err := docx.Parse(f, info.Size())
	if err != nil {
		return "", fmt.Errorf("parse docx: %w", err)
	}

	var sb strings.Builder
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		for _, child := range para.Children {
			run, ok := child.(*docx.Run)
			if !ok {
				continue
			}
			for _, runChild := range run.Children {
				if t, ok := runChild.(*docx.Text); ok {
					sb.WriteString(t.Text)
				}
			}
		}
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// defaultPDFExtractor extracts text page by page using ledongthuc/pdf.
type defaultPDFExtractor struct{}

func (defaultPDFExtractor) ExtractPages(r io.ReaderAt, size int64) ([]string, error) {
	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	total := reader.NumPage()
	pages := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		pages = append(pages, text)
	}
	return pages, nil
}
