package config

import (
	"fmt"
	"strconv"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive first-time configuration wizard and
// returns the resulting Config. It also saves the config to .ingest.yml.
func RunWizard() (*Config, error) {
	fmt.Println("Let's configure the ingestion pipeline.")
	fmt.Println()

	cfg := DefaultConfig()

	docsPrompt := promptui.Prompt{
		Label:   "Docs directory to index",
		Default: cfg.DocsDir,
	}
	docsDir, err := docsPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("docs dir: %w", err)
	}
	cfg.DocsDir = docsDir

	backendPrompt := promptui.Select{
		Label: "Embedding backend",
		Items: []string{"tei", "openai", "google", "ollama"},
	}
	_, backend, err := backendPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("embedding backend selection: %w", err)
	}
	cfg.EmbeddingBackend = backend

	workersPrompt := promptui.Prompt{
		Label:   "Number of embed workers (N_WORKERS)",
		Default: strconv.Itoa(cfg.NWorkers),
		Validate: func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 {
				return fmt.Errorf("must be a positive integer")
			}
			return nil
		},
	}
	workersStr, err := workersPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("n_workers: %w", err)
	}
	cfg.NWorkers, _ = strconv.Atoi(workersStr)

	chromaPrompt := promptui.Prompt{
		Label:   "Vector store directory (CHROMA_DIR)",
		Default: cfg.ChromaDir,
	}
	chromaDir, err := chromaPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("chroma_dir: %w", err)
	}
	cfg.ChromaDir = chromaDir

	configPath := ".ingest.yml"
	if err := cfg.Save(configPath); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", configPath)
	return cfg, nil
}
