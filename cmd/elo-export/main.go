package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/gridelo/internal/config"
	"github.com/okian/gridelo/internal/export"
)

// Default flag values.
const (
	defaultOutput  = "elo.csv"
	defaultTimeout = 30 * time.Minute
)

func main() {
	var (
		outputFile = flag.String("output", defaultOutput, `CSV file to write, "-" for stdout`)
		start      = flag.Int("start", 0, "First season (default: start_season from the configuration)")
		end        = flag.Int("end", 0, "Last season (default: current season)")
		rebuild    = flag.Bool("rebuild", false, "Recompute from scratch instead of resuming")
		top        = flag.Int("top", 0, "Write only the first N rows (default: all)")
		timeout    = flag.Duration("timeout", defaultTimeout, "Bound on the whole run")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		export.ShowHelp()
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("Failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := export.SetupLogging(cfg.LogLevel, *verbose)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	opts := &export.Options{
		OutputFile:  *outputFile,
		StartSeason: *start,
		EndSeason:   *end,
		Rebuild:     *rebuild,
		Top:         *top,
		Timeout:     *timeout,
		Verbose:     *verbose,
	}
	if _, err := export.Run(ctx, cfg, opts, log); err != nil {
		os.Stderr.WriteString("Export failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
