package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ragforge/ingest/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize ingestctl configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure the ingestion pipeline and generates a .ingest.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard()
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
