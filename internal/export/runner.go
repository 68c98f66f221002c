// Package export runs the rating pipeline once and writes the ranking as CSV.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	app "github.com/okian/gridelo/internal/app"
	"github.com/okian/gridelo/internal/config"
	"github.com/okian/gridelo/internal/domain/model"
	"github.com/okian/gridelo/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0o750
	filePermission      = 0o640
)

// Run wires the pipeline from cfg, runs it once and writes the ranking.
// The output file is only created after a successful run.
func Run(ctx context.Context, cfg *config.Config, opts *Options, log logger.Logger) (Stats, error) {
	start := time.Now()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cfg.RunOnStart = false
	if opts.StartSeason > 0 {
		cfg.StartSeason = opts.StartSeason
	}

	components, err := app.Build(ctx, cfg, log)
	if err != nil {
		return Stats{}, fmt.Errorf("wiring pipeline: %w", err)
	}
	defer func() {
		if err := components.Close(); err != nil {
			log.Warn(context.Background(), "closing components", logger.Error(err))
		}
	}()

	log.Info(ctx, "export started",
		logger.Int("startSeason", cfg.StartSeason),
		logger.Int("endSeason", opts.EndSeason),
		logger.Bool("rebuild", opts.Rebuild),
		logger.String("output", opts.OutputFile))

	report, err := components.Service.Run(ctx, app.RunRequest{
		StartSeason: cfg.StartSeason,
		EndSeason:   opts.EndSeason,
		Rebuild:     opts.Rebuild,
		Trigger:     "export",
	})
	if err != nil {
		return Stats{}, fmt.Errorf("rating run: %w", err)
	}

	// A resumed run that applied nothing still reports the stored ranking.
	standings := report.Standings
	if !report.Saved {
		ranking, err := components.Service.Ranking(ctx)
		if err != nil {
			return Stats{}, err
		}
		standings = ranking.Standings
	}
	if opts.Top > 0 && len(standings) > opts.Top {
		standings = standings[:opts.Top]
	}

	rows, err := writeOutput(opts.OutputFile, standings)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{
		EventsApplied: report.EventsApplied,
		EventsSkipped: report.EventsSkipped,
		Competitors:   report.Competitors,
		RowsWritten:   rows,
		Duration:      time.Since(start),
	}
	log.Info(ctx, "export complete",
		logger.Int("applied", stats.EventsApplied),
		logger.Int("skipped", stats.EventsSkipped),
		logger.Int("rows", stats.RowsWritten),
		logger.Duration("took", stats.Duration))
	return stats, nil
}

func writeOutput(path string, standings []model.Standing) (int, error) {
	if path == "" || path == "-" {
		return WriteCSV(os.Stdout, standings)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return 0, fmt.Errorf("creating output directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermission)
	if err != nil {
		return 0, fmt.Errorf("creating output file: %w", err)
	}
	rows, werr := WriteCSV(f, standings)
	if cerr := f.Close(); werr == nil && cerr != nil {
		werr = fmt.Errorf("closing output file: %w", cerr)
	}
	return rows, werr
}
