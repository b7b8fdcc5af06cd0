package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pfrederiksen/banei-scraper/internal/batch"
	"github.com/pfrederiksen/banei-scraper/internal/config"
	"github.com/pfrederiksen/banei-scraper/internal/logger"
	"github.com/pfrederiksen/banei-scraper/internal/race"
	"github.com/pfrederiksen/banei-scraper/internal/scraper"
	"github.com/pfrederiksen/banei-scraper/internal/storage"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

// logFileLayout names the per-run log file
const logFileLayout = "2006-01-02_15-04-05"

// Version is reported by --version; set by main at build time
var Version = "dev"

var flagConfigFile string

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "banei-scraper",
		Short: "Scrape Obihiro ban'ei race results into CSV",
		Long: `Scrapes race cards, odds and results of the Obihiro ban'ei races for a
range of dates. Each round is saved to its own CSV file as soon as it is
scraped, so an interrupted run picks up where it left off. When every date is
done the round files are combined into a single table.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runScrape,
	}

	config.RegisterFlags(cmd.Flags(), config.Defaults(time.Now()))
	cmd.Flags().StringVar(&flagConfigFile, "config", "", "Config file (YAML, TOML or JSON)")

	return cmd
}

// runScrape is the main command logic
func runScrape(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd.Flags(), flagConfigFile, time.Now())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, err = Run(ctx, cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
	return err
}

// Run executes one batch: scrape every date, aggregate the round files,
// optionally export to SQLite, then report. Progress lines and the final
// DONE go to stdout in text mode and to stderr in JSON mode, so JSON stdout
// carries only the summary.
func Run(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer) (*OutputResult, error) {
	format := OutputFormat(strings.ToLower(cfg.Format))
	if format != FormatText && format != FormatJSON {
		return nil, fmt.Errorf("invalid format: %s (must be 'text' or 'json')", cfg.Format)
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	start, err := cfg.Start()
	if err != nil {
		return nil, err
	}
	end, err := cfg.End()
	if err != nil {
		return nil, err
	}
	dates, err := batch.Dates(start, end)
	if err != nil {
		return nil, err
	}

	outputDir, err := storage.ExpandHome(cfg.OutputDir)
	if err != nil {
		return nil, err
	}
	logDir, err := storage.ExpandHome(cfg.LogDir)
	if err != nil {
		return nil, err
	}
	for _, dir := range []string{outputDir, logDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	logPath := filepath.Join(logDir, time.Now().Format(logFileLayout)+".log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	defer logFile.Close() // nolint:errcheck

	runID := uuid.NewString()
	log := logger.New(level, io.MultiWriter(stderr, logFile)).With(logger.Fields{"run_id": runID})

	progress := stdout
	if format == FormatJSON {
		progress = stderr
	}

	policy := race.Strict
	if cfg.Lenient {
		policy = race.Lenient
	}

	store, err := storage.New(cfg.ResourceDir, log)
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}

	sc := scraper.New(cfg.BaseURL, cfg.Timeout, race.NewNormalizer(policy))
	driver := batch.NewDriver(sc, store, log, batch.Options{
		MaxRound: cfg.MaxRound,
		Workers:  cfg.Process,
		Progress: progress,
	})

	log.Info("Starting batch", logger.Fields{
		"start":     cfg.StartDate,
		"end":       cfg.EndDate,
		"dates":     len(dates),
		"workers":   cfg.Process,
		"max_round": cfg.MaxRound,
		"policy":    policy.String(),
	})

	summary, err := driver.Run(ctx, dates)
	if err != nil {
		log.Error("Batch stopped early", logger.Fields{"rounds_written": summary.RoundsWritten}, err)
		return nil, err
	}

	result := &OutputResult{
		RunID:      runID,
		StartDate:  cfg.StartDate,
		EndDate:    cfg.EndDate,
		FinishedAt: time.Now().UTC(),
		Summary:    summary,
		LogFile:    logPath,
	}

	outputPath := filepath.Join(outputDir, storage.OutputName(start, end))
	aggregate, err := store.Aggregate(outputPath)
	switch {
	case errors.Is(err, storage.ErrNoRoundFiles):
		log.Warn("No round files to aggregate", logger.Fields{"resource_dir": store.Dir()})
	case err != nil:
		return nil, fmt.Errorf("aggregating round files: %w", err)
	default:
		result.Output = aggregate
		log.Info("Aggregated round files", logger.Fields{
			"path":     aggregate.Path,
			"files":    aggregate.Files,
			"rows":     aggregate.Rows,
			"rejected": aggregate.Rejected,
		})

		if cfg.SQLite != "" {
			dbPath, err := storage.ExpandHome(cfg.SQLite)
			if err != nil {
				return nil, err
			}
			rows, err := storage.ExportSQLite(ctx, aggregate.Path, dbPath, storage.DefaultTable)
			if err != nil {
				return nil, fmt.Errorf("exporting to sqlite: %w", err)
			}
			result.SQLite = dbPath
			result.SQLiteRows = rows
		}
	}

	result.Metrics = log.Metrics().GetSnapshot()

	if err := WriteOutput(stdout, result, format); err != nil {
		return nil, fmt.Errorf("writing output: %w", err)
	}
	fmt.Fprintln(progress, "DONE")

	return result, nil
}

// Execute runs the CLI
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
}
