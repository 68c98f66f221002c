package export

import (
	"fmt"
	"os"

	"github.com/okian/gridelo/pkg/logger"
)

// SetupLogging initialises the process logger on stderr so that CSV written
// to stdout stays clean.
func SetupLogging(level string, verbose bool) (logger.Logger, error) {
	if err := logger.InitWithWriter(os.Stderr); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		level = "debug"
	}
	if err := logger.SetLevelString(level); err != nil {
		return nil, err
	}
	return logger.Named("export"), nil
}

// ShowHelp prints usage information for the export tool.
func ShowHelp() {
	os.Stdout.WriteString(`gridelo rating export
=====================

Runs the rating pipeline once and writes the ranking as CSV.
Service configuration (store, upstream URLs, K factor, ...) is read the same
way as the server: GRIDELO_CONFIG file and GRIDELO_* environment variables.

Usage:
  go run ./cmd/elo-export [options]

Options:
  -output string
        CSV file to write, "-" for stdout (default "elo.csv")
  -start int
        First season (default: start_season from the configuration)
  -end int
        Last season (default: current season)
  -rebuild
        Recompute from scratch instead of resuming after the stored watermark
  -top int
        Write only the first N rows (default: all)
  -timeout duration
        Bound on the whole run (default 30m)
  -verbose
        Enable debug logging
  -help
        Show this help message

Examples:
  # Full recompute since 2014 into elo.csv, without touching a database
  GRIDELO_STORE_DRIVER=memory go run ./cmd/elo-export -start 2014 -rebuild

  # Top 20 to stdout from the configured sqlite store
  go run ./cmd/elo-export -top 20 -output -
`)
}
