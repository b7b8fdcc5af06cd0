package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/pfrederiksen/banei-scraper/internal/batch"
	"github.com/pfrederiksen/banei-scraper/internal/logger"
	"github.com/pfrederiksen/banei-scraper/internal/storage"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// OutputResult contains data to be output
type OutputResult struct {
	RunID      string                   `json:"run_id"`
	StartDate  string                   `json:"start_date"`
	EndDate    string                   `json:"end_date"`
	FinishedAt time.Time                `json:"finished_at"`
	Summary    *batch.Summary           `json:"summary"`
	Output     *storage.AggregateResult `json:"output,omitempty"`
	SQLite     string                   `json:"sqlite,omitempty"`
	SQLiteRows int                      `json:"sqlite_rows,omitempty"`
	LogFile    string                   `json:"log_file"`
	Metrics    logger.Snapshot          `json:"metrics"`
}

// WriteOutput writes the result in the specified format
func WriteOutput(w io.Writer, result *OutputResult, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatText:
		return writeText(w, result)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs results as JSON
func writeJSON(w io.Writer, result *OutputResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// writeText outputs results as human-readable text
func writeText(w io.Writer, result *OutputResult) error {
	s := result.Summary
	if s == nil {
		s = &batch.Summary{}
	}

	fmt.Fprintf(w, "\nScraped %s to %s (%d dates, %s)\n", result.StartDate, result.EndDate, s.Dates, s.Elapsed.Round(time.Second))
	fmt.Fprintf(w, "  Rounds: %d written, %d skipped, %d failed\n", s.RoundsWritten, s.RoundsSkipped, s.RoundsFailed)
	fmt.Fprintf(w, "  Rows:   %d written\n", s.RowsWritten)
	if s.Mismatches > 0 {
		fmt.Fprintf(w, "  Warning: %d races had tables that did not line up\n", s.Mismatches)
	}

	if result.Output == nil {
		fmt.Fprintln(w, "No round files to aggregate.")
	} else {
		fmt.Fprintf(w, "Output: %s (%d rows from %d files", result.Output.Path, result.Output.Rows, result.Output.Files)
		if result.Output.Rejected > 0 {
			fmt.Fprintf(w, ", %d rejected", result.Output.Rejected)
		}
		fmt.Fprintln(w, ")")
	}

	if result.SQLite != "" {
		fmt.Fprintf(w, "SQLite: %s (%d rows)\n", result.SQLite, result.SQLiteRows)
	}

	fmt.Fprintf(w, "Log:    %s\n", result.LogFile)
	return nil
}
