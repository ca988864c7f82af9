package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/podforge-ai/podforge/pkg/config"
)

var version = "dev"

func main() {
	// Local env file is optional; real deployments set the
	// environment directly.
	_ = godotenv.Load("podforge.env")

	root := &cobra.Command{
		Use:     "podforge",
		Short:   "Podforge — budget-guarded podcast-to-social content pipeline",
		Version: version,
	}

	root.AddCommand(
		newProcessCmd(),
		newUsageCmd(),
		newRetryCmd(),
		newDecisionsCmd(),
		newSlotsCmd(),
		newStatusCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the YAML config at path, falling back to built-in
// defaults when the default path does not exist.
func loadConfig(path string) (*config.Config, error) {
	if path == "podforge.yaml" {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return config.Default(), nil
		}
	}
	return config.Load(path)
}

// newLogger builds the process-wide structured logger.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
