package ingesttools

import (
	"context"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

type fakeIndexer struct {
	summary  string
	indexErr error
	resetErr error
	resetHit bool
}

func (f *fakeIndexer) Index(ctx context.Context) (string, error) { return f.summary, f.indexErr }
func (f *fakeIndexer) Reset(ctx context.Context) error {
	f.resetHit = true
	return f.resetErr
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		tool     mcp.Tool
		wantName string
	}{
		{indexTool, "index"},
		{resetTool, "reset"},
	}
	for _, tt := range tests {
		if tt.tool.Name != tt.wantName {
			t.Errorf("tool name = %q, want %q", tt.tool.Name, tt.wantName)
		}
		if tt.tool.Description == "" {
			t.Error("tool description should not be empty")
		}
	}
}

func TestNewServer(t *testing.T) {
	indexer := &fakeIndexer{}
	srv := NewServer(indexer)
	if srv == nil || srv.mcp == nil {
		t.Fatal("NewServer did not initialize the MCP server")
	}
}

func TestHandleIndex_Success(t *testing.T) {
	srv := NewServer(&fakeIndexer{summary: "indexed 3 sources"})
	result, err := srv.handleIndex(context.Background(), mcp.CallToolRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %v", result.Content)
	}
}

func TestHandleIndex_Failure(t *testing.T) {
	srv := NewServer(&fakeIndexer{indexErr: errors.New("docs dir missing")})
	result, err := srv.handleIndex(context.Background(), mcp.CallToolRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Error("expected a tool error when Index fails")
	}
}

func TestHandleReset(t *testing.T) {
	indexer := &fakeIndexer{}
	srv := NewServer(indexer)
	result, err := srv.handleReset(context.Background(), mcp.CallToolRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %v", result.Content)
	}
	if !indexer.resetHit {
		t.Error("expected Reset to be called")
	}
}
