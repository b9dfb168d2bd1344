package embedworker

import "testing"

func TestTokenSplitter_ShortTextSingleChunk(t *testing.T) {
	s := NewTokenSplitter(1024, 128)
	chunks := s.Split("a short document")
	if len(chunks) != 1 || chunks[0] != "a short document" {
		t.Fatalf("expected single unsplit chunk, got %v", chunks)
	}
}

func TestTokenSplitter_EmptyTextNoChunks(t *testing.T) {
	s := NewTokenSplitter(1024, 128)
	if chunks := s.Split("   "); len(chunks) != 0 {
		t.Fatalf("expected no chunks for blank text, got %v", chunks)
	}
}

func TestTokenSplitter_LongTextOverlaps(t *testing.T) {
	s := TokenSplitter{ChunkSize: 10, ChunkOverlap: 2} // 40 char window, 8 char overlap
	text := ""
	for i := 0; i < 20; i++ {
		text += "0123456789"
	}
	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks for 200-char text, got %d", len(chunks))
	}
	for _, c := range chunks {
		if len(c) > 40 {
			t.Errorf("chunk exceeds max chars: len=%d", len(c))
		}
	}
	last := chunks[len(chunks)-1]
	if last[len(last)-1] != text[len(text)-1] {
		t.Error("expected final chunk to reach end of text")
	}
}
