package embedworker

import "strings"

// Splitter turns a document's full text into overlapping chunks small
// enough to embed in one request.
type Splitter interface {
	Split(text string) []string
}

// TokenSplitter approximates token counts at four characters per token,
// the same rule of thumb the teacher's file-level chunker used, and
// slides a window of ChunkSize*4 characters forward by
// (ChunkSize-ChunkOverlap)*4 characters so neighboring chunks share
// context.
type TokenSplitter struct {
	ChunkSize    int // tokens
	ChunkOverlap int // tokens
}

// NewTokenSplitter builds a TokenSplitter from the pipeline's configured
// chunk size and overlap, in tokens.
func NewTokenSplitter(chunkSize, chunkOverlap int) TokenSplitter {
	return TokenSplitter{ChunkSize: chunkSize, ChunkOverlap: chunkOverlap}
}

// Split returns text split into chunks of at most ChunkSize tokens, each
// chunk after the first overlapping the previous by ChunkOverlap tokens.
func (s TokenSplitter) Split(text string) []string {
	maxChars := s.ChunkSize * 4
	overlapChars := s.ChunkOverlap * 4
	if maxChars <= 0 || len(text) <= maxChars {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []string{text}
	}

	step := maxChars - overlapChars
	if step <= 0 {
		step = maxChars
	}

	var chunks []string
	for start := 0; start < len(text); start += step {
		end := start + maxChars
		if end > len(text) {
			end = len(text)
		}
		chunk := text[start:end]
		if strings.TrimSpace(chunk) != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(text) {
			break
		}
	}
	return chunks
}
