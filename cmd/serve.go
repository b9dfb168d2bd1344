package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ragforge/ingest/internal/adminserver"
	"github.com/ragforge/ingest/internal/archivewalk"
	"github.com/ragforge/ingest/internal/ingest/service"
	"github.com/ragforge/ingest/internal/ingesttools"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the index/reset operations over HTTP or MCP",
	Long: `Starts an operator surface over the configured docs directory and
vector store: an HTTP admin server by default, exposing index, reset,
health, and a websocket stream that reports when a run is done or has
failed; or, with --mcp, an MCP server
on stdio exposing the same index/reset operations as tools for agent
callers.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Bool("mcp", false, "serve the MCP tool surface on stdio instead of the HTTP admin surface")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	stateStore, closeStateStore, err := openStateStore(cfg)
	if err != nil {
		return err
	}
	defer closeStateStore()

	store, closeStore, err := buildStore(ctx, cfg, stateStore)
	if err != nil {
		return err
	}
	defer closeStore()

	sidecarFactory, err := buildSidecarFactory(cfg, stateStore)
	if err != nil {
		return err
	}

	svc := service.New(*cfg, store, archivewalk.ZipLister{}, sidecarFactory, nil)

	useMCP, _ := cmd.Flags().GetBool("mcp")
	if useMCP {
		ingesttools.Version = Version
		fmt.Fprintf(os.Stderr, "ingestctl MCP server started on stdio (docs=%s, chunks=%d)\n", cfg.DocsDir, store.Count())
		return ingesttools.NewServer(svc).Serve()
	}

	srv := adminserver.New(adminserver.Config{Addr: cfg.Admin.Addr}, adminIndexer{svc})
	if stateStore != nil {
		srv.WithSidecarHealth(sidecarHealthAdapter{stateStore})
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-sigCtx.Done()
		fmt.Fprintln(os.Stderr, "\nShutting down server...")
		srv.Shutdown(context.Background())
	}()

	fmt.Fprintf(os.Stderr, "ingestctl admin server starting on %s (docs=%s, chunks=%d)\n", cfg.Admin.Addr, cfg.DocsDir, store.Count())

	return srv.Start()
}
