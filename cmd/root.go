package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "ingestctl",
	Short: "Parallel document ingestion pipeline",
	Long: `ingestctl scans a documents directory, splits changed files into
overlapping token chunks, embeds them through a local TEI-compatible
sidecar, and keeps a vector store's contents in sync with what's on
disk. It exposes the same index/reset operations over an HTTP admin
surface and an MCP tool surface for agent callers.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".ingest.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
