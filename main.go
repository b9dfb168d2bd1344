package main

import (
	"os"

	"github.com/ragforge/ingest/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
