package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ragforge/ingest/internal/archivewalk"
	"github.com/ragforge/ingest/internal/ingest/service"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop every document in the vector store",
	Long:  `Clears the vector store so the next index run treats every file as new. Does not touch the docs directory itself.`,
	RunE: func(cmd *cobra.Command, args []string) error {
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
		if err := svc.Reset(ctx); err != nil {
			return fmt.Errorf("reset: %w", err)
		}

		if err := os.MkdirAll(cfg.ChromaDir, 0755); err != nil {
			return fmt.Errorf("creating chroma dir: %w", err)
		}
		if err := store.Persist(ctx, cfg.ChromaDir); err != nil {
			return fmt.Errorf("persisting vector store: %w", err)
		}

		fmt.Println("vector store reset")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)
}
