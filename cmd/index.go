package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ragforge/ingest/internal/archivewalk"
	"github.com/ragforge/ingest/internal/ingest/service"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Scan the docs directory and index changed files into the vector store",
	Long:  `Scans the configured docs directory, splits changed or new files into overlapping token chunks, embeds them through the configured backend, and upserts them into the vector store.`,
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().Bool("dry-run", false, "report what would change without running the embed workers or writing to the store")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	start := time.Now()
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dryRun, _ := cmd.Flags().GetBool("dry-run")

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

	if dryRun {
		estimate, err := svc.DryRun(ctx)
		if err != nil {
			return fmt.Errorf("dry run: %w", err)
		}
		fmt.Println("Dry run")
		fmt.Println("=======")
		fmt.Printf("  Changed files:     %d\n", estimate.ChangedFiles)
		fmt.Printf("  Work units:        %d\n", estimate.WorkUnits)
		fmt.Printf("  Estimated chunks:  %d\n", estimate.EstimatedSrc)
		return nil
	}

	summary, err := svc.Index(ctx)
	if err != nil {
		return fmt.Errorf("index: %w", err)
	}

	if err := os.MkdirAll(cfg.ChromaDir, 0755); err != nil {
		return fmt.Errorf("creating chroma dir: %w", err)
	}
	if err := store.Persist(ctx, cfg.ChromaDir); err != nil {
		return fmt.Errorf("persisting vector store: %w", err)
	}

	fmt.Println()
	fmt.Println(summary)
	fmt.Printf("  Duration: %s\n", time.Since(start).Round(time.Millisecond))
	fmt.Printf("  Store:    %s (%d chunks)\n", cfg.ChromaDir, store.Count())

	return nil
}
