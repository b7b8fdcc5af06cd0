package batch

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pfrederiksen/banei-scraper/internal/logger"
	"github.com/pfrederiksen/banei-scraper/internal/race"
	"github.com/pfrederiksen/banei-scraper/internal/scraper"
)

// DefaultMaxRound is the highest round tried per date unless overridden
const DefaultMaxRound = 12

// Metric names recorded on the run logger
const (
	MetricRoundsWritten = "rounds.written"
	MetricRoundsSkipped = "rounds.skipped"
	MetricRoundsFailed  = "rounds.failed"
	MetricRowsWritten   = "rows.written"
	MetricMismatches    = "merge.mismatches"
	MetricRoundTime     = "round"
)

// RoundScraper scrapes the merged records of one round
type RoundScraper interface {
	Scrape(ctx context.Context, date time.Time, round int) ([]race.Record, race.MergeReport, error)
}

// RoundStore persists round files
type RoundStore interface {
	HasRound(date time.Time, round int) bool
	WriteRound(date time.Time, round int, records []race.Record) (string, error)
}

// Options tunes a Driver
type Options struct {
	// MaxRound is the highest round tried per date
	MaxRound int
	// Workers is the number of dates scraped at once
	Workers int
	// Progress receives one WRITE line per written round; nil discards
	Progress io.Writer
}

// Summary reports what a run did
type Summary struct {
	Dates         int           `json:"dates"`
	DatesEnded    int           `json:"dates_ended"`
	RoundsWritten int           `json:"rounds_written"`
	RoundsSkipped int           `json:"rounds_skipped"`
	RoundsFailed  int           `json:"rounds_failed"`
	RowsWritten   int           `json:"rows_written"`
	Mismatches    int           `json:"merge_mismatches"`
	Elapsed       time.Duration `json:"elapsed"`
}

// Driver runs the per-date round loop over a worker pool
type Driver struct {
	scraper  RoundScraper
	store    RoundStore
	log      *logger.Logger
	maxRound int
	workers  int

	progressMu sync.Mutex
	progress   io.Writer

	mu      sync.Mutex
	summary Summary
}

// NewDriver creates a Driver. Zero options fall back to DefaultMaxRound and
// a single worker.
func NewDriver(sc RoundScraper, store RoundStore, log *logger.Logger, opts Options) *Driver {
	if opts.MaxRound <= 0 {
		opts.MaxRound = DefaultMaxRound
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Progress == nil {
		opts.Progress = io.Discard
	}
	return &Driver{
		scraper:  sc,
		store:    store,
		log:      log,
		maxRound: opts.MaxRound,
		workers:  opts.Workers,
		progress: opts.Progress,
	}
}

// Dates lists every day from start up to, but not including, end
func Dates(start, end time.Time) ([]time.Time, error) {
	start = truncateDay(start)
	end = truncateDay(end)
	if start.After(end) {
		return nil, fmt.Errorf("start date %s is after end date %s", start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	var dates []time.Time
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates, nil
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Run scrapes every date and returns a summary. Round failures never fail
// the run; only cancellation of ctx does, and the summary then covers what
// finished before it.
func (d *Driver) Run(ctx context.Context, dates []time.Time) (*Summary, error) {
	started := time.Now()

	d.mu.Lock()
	d.summary = Summary{}
	d.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)

	for _, date := range dates {
		if gctx.Err() != nil {
			break
		}
		date := date
		g.Go(func() error {
			return d.runDate(gctx, date)
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	d.mu.Lock()
	summary := d.summary
	d.mu.Unlock()
	summary.Elapsed = time.Since(started)

	if err != nil {
		return &summary, fmt.Errorf("batch interrupted: %w", err)
	}
	return &summary, nil
}

// runDate walks the rounds of one date until the card ends
func (d *Driver) runDate(ctx context.Context, date time.Time) error {
	day := date.Format("20060102")
	log := d.log.With(logger.Fields{"date": day})

	defer d.tally(func(s *Summary) { s.Dates++ })

	for round := 1; round <= d.maxRound; round++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if d.store.HasRound(date, round) {
			log.Debug("Round already scraped", logger.Fields{"round": round})
			d.log.Metrics().IncrCounter(MetricRoundsSkipped)
			d.tally(func(s *Summary) { s.RoundsSkipped++ })
			continue
		}

		started := time.Now()
		records, report, err := d.scraper.Scrape(ctx, date, round)
		d.log.Metrics().RecordTiming(MetricRoundTime, time.Since(started))

		switch {
		case scraper.IsNoData(err):
			log.Info("No race data, ending date", logger.Fields{"round": round})
			d.tally(func(s *Summary) { s.DatesEnded++ })
			return nil
		case err != nil:
			// a fetch cut short by shutdown is not a round failure
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error("Round failed", logger.Fields{"round": round}, err)
			d.log.Metrics().IncrCounter(MetricRoundsFailed)
			d.tally(func(s *Summary) { s.RoundsFailed++ })
			continue
		case len(records) == 0:
			log.Info("Empty race, ending date", logger.Fields{"round": round})
			d.tally(func(s *Summary) { s.DatesEnded++ })
			return nil
		}

		if !report.Aligned() {
			log.Warn("Race tables did not line up", logger.Fields{
				"round":             round,
				"candidates":        report.Candidates,
				"odds":              report.Odds,
				"records":           report.Records,
				"dropped":           report.Dropped,
				"number_mismatches": report.NumberMismatches,
			})
			d.log.Metrics().IncrCounter(MetricMismatches)
			d.tally(func(s *Summary) { s.Mismatches++ })
		}

		path, err := d.store.WriteRound(date, round, records)
		if err != nil {
			log.Error("Writing round failed", logger.Fields{"round": round}, err)
			d.log.Metrics().IncrCounter(MetricRoundsFailed)
			d.tally(func(s *Summary) { s.RoundsFailed++ })
			continue
		}

		log.Debug("Round written", logger.Fields{"round": round, "rows": len(records), "path": path})
		d.log.Metrics().IncrCounter(MetricRoundsWritten)
		d.log.Metrics().AddCounter(MetricRowsWritten, int64(len(records)))
		d.tally(func(s *Summary) {
			s.RoundsWritten++
			s.RowsWritten += len(records)
		})
		d.printProgress(day, round)
	}

	return nil
}

func (d *Driver) tally(update func(s *Summary)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	update(&d.summary)
}

func (d *Driver) printProgress(day string, round int) {
	d.progressMu.Lock()
	defer d.progressMu.Unlock()
	fmt.Fprintf(d.progress, "WRITE date: %s round: %02d\n", day, round)
}
