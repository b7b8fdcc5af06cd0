package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pfrederiksen/banei-scraper/internal/logger"
)

// ErrNoRoundFiles is returned by Aggregate when there is nothing to aggregate
var ErrNoRoundFiles = errors.New("no round files to aggregate")

// AggregateResult summarizes an aggregation pass
type AggregateResult struct {
	Path     string   `json:"path"`
	Files    int      `json:"files"`
	Rows     int      `json:"rows"`
	Rejected int      `json:"rejected"`
	Header   []string `json:"-"`
}

// OutputName returns the aggregated file name for a date range
func OutputName(start, end time.Time) string {
	return fmt.Sprintf("banei_%s-%s.csv", start.Format("20060102"), end.Format("20060102"))
}

// Aggregate concatenates every round file into outputPath.
//
// The header of the first file (in file name order) is adopted; the header
// row of every file is skipped. A row whose column count differs from the
// adopted header is logged and dropped, and the pass carries on.
func (s *Store) Aggregate(outputPath string) (*AggregateResult, error) {
	files, err := s.RoundFiles()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, ErrNoRoundFiles
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("creating output file: %w", err)
	}
	defer out.Close() // nolint:errcheck

	result := &AggregateResult{Path: outputPath}
	w := csv.NewWriter(out)

	for _, file := range files {
		if err := s.appendFile(w, file, result); err != nil {
			return nil, err
		}
		result.Files++
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("writing output file: %w", err)
	}

	if err := out.Close(); err != nil {
		return nil, fmt.Errorf("closing output file: %w", err)
	}

	return result, nil
}

// appendFile copies the data rows of one round file into w
func (s *Store) appendFile(w *csv.Writer, file string, result *AggregateResult) error {
	s.log.Debug("Aggregating round file", logger.Fields{"file": file})

	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("opening round file: %w", err)
	}
	defer f.Close() // nolint:errcheck

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	for line := 1; ; line++ {
		row, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			// an unreadable file is rejected from this point on
			s.log.Error("Unreadable round file", logger.Fields{"file": file, "line": line}, err)
			result.Rejected++
			return nil
		}

		if line == 1 {
			if result.Header == nil {
				result.Header = row
				if err := w.Write(row); err != nil {
					return fmt.Errorf("writing header: %w", err)
				}
			}
			continue
		}

		if len(row) != len(result.Header) {
			s.log.Error("Row count does not match header", logger.Fields{
				"file":    file,
				"line":    line,
				"columns": len(row),
				"header":  len(result.Header),
			}, nil)
			result.Rejected++
			continue
		}

		if err := w.Write(row); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
		result.Rows++
	}
}
