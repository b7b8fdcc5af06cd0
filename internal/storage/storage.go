package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/pfrederiksen/banei-scraper/internal/logger"
	"github.com/pfrederiksen/banei-scraper/internal/race"
)

const (
	roundFileExt = ".csv"
	tempFileExt  = ".tmp"
)

var roundFilePattern = regexp.MustCompile(`^\d{8}-\d{2}R\.csv$`)

// Store handles the per-round files of a batch
type Store struct {
	dir string
	log *logger.Logger
}

// ExpandHome replaces a leading ~/ with the user's home directory
func ExpandHome(dir string) (string, error) {
	if !strings.HasPrefix(dir, "~/") {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, dir[2:]), nil
}

// New creates a Store rooted at dir, creating the directory if needed
func New(dir string, log *logger.Logger) (*Store, error) {
	dir, err := ExpandHome(dir)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating resource directory: %w", err)
	}

	return &Store{
		dir: dir,
		log: log,
	}, nil
}

// Dir returns the resource directory
func (s *Store) Dir() string {
	return s.dir
}

// RoundFileName returns the file name for a round, e.g. 20200102-05R.csv
func RoundFileName(date time.Time, round int) string {
	return fmt.Sprintf("%s-%02dR%s", date.Format("20060102"), round, roundFileExt)
}

// RoundPath returns the path of a round's file
func (s *Store) RoundPath(date time.Time, round int) string {
	return filepath.Join(s.dir, RoundFileName(date, round))
}

// HasRound reports whether a round was already written. Only existence is
// checked: an empty or malformed file still counts as done.
func (s *Store) HasRound(date time.Time, round int) bool {
	_, err := os.Stat(s.RoundPath(date, round))
	return err == nil
}

// WriteRound writes the records of a round with a header row. The file is
// written under a temporary name and renamed into place, so an interrupted
// run never leaves a partial round file behind.
func (s *Store) WriteRound(date time.Time, round int, records []race.Record) (string, error) {
	path := s.RoundPath(date, round)

	tmp, err := os.CreateTemp(s.dir, filepath.Base(path)+".*"+tempFileExt)
	if err != nil {
		return "", fmt.Errorf("creating round file: %w", err)
	}
	defer os.Remove(tmp.Name()) // nolint:errcheck

	w := csv.NewWriter(tmp)
	if err := w.Write(race.Header); err != nil {
		tmp.Close() // nolint:errcheck
		return "", fmt.Errorf("writing header: %w", err)
	}
	for i := range records {
		if err := w.Write(records[i].Values()); err != nil {
			tmp.Close() // nolint:errcheck
			return "", fmt.Errorf("writing row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close() // nolint:errcheck
		return "", fmt.Errorf("flushing round file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing round file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("renaming round file: %w", err)
	}

	return path, nil
}

// RoundFiles lists every round file in lexicographic, and so chronological,
// order. Other CSV files in the directory are ignored.
func (s *Store) RoundFiles() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*"+roundFileExt))
	if err != nil {
		return nil, fmt.Errorf("listing round files: %w", err)
	}

	files := make([]string, 0, len(matches))
	for _, m := range matches {
		if roundFilePattern.MatchString(filepath.Base(m)) {
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files, nil
}
