package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pfrederiksen/banei-scraper/internal/logger"
	"github.com/pfrederiksen/banei-scraper/internal/race"
	"github.com/pfrederiksen/banei-scraper/internal/scraper"
	"github.com/pfrederiksen/banei-scraper/internal/storage"
)

var errNoData = &scraper.FetchError{Kind: scraper.NoData, URL: "http://test", Err: scraper.ErrNoData}

type result struct {
	records []race.Record
	report  race.MergeReport
	err     error
}

// fakeScraper answers from a table keyed by "YYYYMMDD-RR"; unknown rounds
// have no data.
type fakeScraper struct {
	mu      sync.Mutex
	results map[string]result
	calls   []string
}

func key(date time.Time, round int) string {
	return fmt.Sprintf("%s-%02d", date.Format("20060102"), round)
}

func (f *fakeScraper) Scrape(ctx context.Context, date time.Time, round int) ([]race.Record, race.MergeReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	k := key(date, round)
	f.calls = append(f.calls, k)
	res, ok := f.results[k]
	if !ok {
		return nil, race.MergeReport{}, errNoData
	}
	return res.records, res.report, res.err
}

func (f *fakeScraper) called(k string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == k {
			return true
		}
	}
	return false
}

func rows(n int) []race.Record {
	records := make([]race.Record, n)
	for i := range records {
		records[i].Number = fmt.Sprint(i + 1)
	}
	return records
}

func aligned(n int) race.MergeReport {
	return race.MergeReport{Candidates: n, Odds: n, Records: n, Merged: n}
}

func newStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.New(t.TempDir(), logger.Discard())
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}
	return store
}

func day(d int) time.Time {
	return time.Date(2020, 1, d, 0, 0, 0, 0, time.UTC)
}

func TestDates(t *testing.T) {
	tests := []struct {
		name    string
		start   time.Time
		end     time.Time
		want    []string
		wantErr bool
	}{
		{
			name:  "end exclusive",
			start: day(1),
			end:   day(3),
			want:  []string{"20200101", "20200102"},
		},
		{
			name:  "same day is empty",
			start: day(5),
			end:   day(5),
			want:  nil,
		},
		{
			name:  "month boundary",
			start: time.Date(2020, 2, 28, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2020, 3, 2, 0, 0, 0, 0, time.UTC),
			want:  []string{"20200228", "20200229", "20200301"},
		},
		{
			name:  "time of day ignored",
			start: time.Date(2020, 1, 1, 18, 30, 0, 0, time.UTC),
			end:   time.Date(2020, 1, 2, 9, 0, 0, 0, time.UTC),
			want:  []string{"20200101"},
		},
		{
			name:    "start after end",
			start:   day(3),
			end:     day(1),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dates, err := Dates(tt.start, tt.end)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Dates() error = %v, wantErr %v", err, tt.wantErr)
			}

			var got []string
			for _, d := range dates {
				got = append(got, d.Format("20060102"))
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("Dates() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDriver_Run(t *testing.T) {
	tests := []struct {
		name          string
		results       map[string]result
		existing      []int // rounds already on disk for 2020-01-02
		maxRound      int
		wantFiles     []string
		wantWritten   int
		wantSkipped   int
		wantFailed    int
		wantEnded     int
		wantCalled    []string
		wantUntouched []string // rounds that must not be scraped
	}{
		{
			name: "writes rounds until no data",
			results: map[string]result{
				"20200102-01": {records: rows(3), report: aligned(3)},
				"20200102-02": {records: rows(2), report: aligned(2)},
			},
			maxRound:      12,
			wantFiles:     []string{"20200102-01R.csv", "20200102-02R.csv"},
			wantWritten:   2,
			wantEnded:     1,
			wantCalled:    []string{"20200102-03"},
			wantUntouched: []string{"20200102-04"},
		},
		{
			name: "empty first round ends the date",
			results: map[string]result{
				"20200102-01": {records: nil},
				"20200102-02": {records: rows(3), report: aligned(3)},
			},
			maxRound:      12,
			wantEnded:     1,
			wantUntouched: []string{"20200102-02"},
		},
		{
			name: "transient failure continues",
			results: map[string]result{
				"20200102-01": {records: rows(1), report: aligned(1)},
				"20200102-02": {err: &scraper.FetchError{Kind: scraper.NetworkOrParseFailure, URL: "x", Err: errors.New("timeout")}},
				"20200102-03": {err: &scraper.StructuralError{Section: "odds", URL: "x"}},
				"20200102-04": {records: rows(1), report: aligned(1)},
			},
			maxRound:    12,
			wantFiles:   []string{"20200102-01R.csv", "20200102-04R.csv"},
			wantWritten: 2,
			wantFailed:  2,
			wantEnded:   1,
			wantCalled:  []string{"20200102-05"},
		},
		{
			name: "existing rounds are skipped",
			results: map[string]result{
				"20200102-01": {records: rows(1), report: aligned(1)},
				"20200102-02": {records: rows(1), report: aligned(1)},
				"20200102-03": {records: rows(1), report: aligned(1)},
			},
			existing:      []int{1, 2},
			maxRound:      12,
			wantFiles:     []string{"20200102-01R.csv", "20200102-02R.csv", "20200102-03R.csv"},
			wantWritten:   1,
			wantSkipped:   2,
			wantEnded:     1,
			wantUntouched: []string{"20200102-01", "20200102-02"},
		},
		{
			name: "max round caps the loop",
			results: map[string]result{
				"20200102-01": {records: rows(1), report: aligned(1)},
				"20200102-02": {records: rows(1), report: aligned(1)},
				"20200102-03": {records: rows(1), report: aligned(1)},
			},
			maxRound:      2,
			wantFiles:     []string{"20200102-01R.csv", "20200102-02R.csv"},
			wantWritten:   2,
			wantUntouched: []string{"20200102-03"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newStore(t)
			for _, round := range tt.existing {
				if _, err := store.WriteRound(day(2), round, rows(1)); err != nil {
					t.Fatal(err)
				}
			}

			sc := &fakeScraper{results: tt.results}
			var progress bytes.Buffer
			driver := NewDriver(sc, store, logger.Discard(), Options{
				MaxRound: tt.maxRound,
				Workers:  2,
				Progress: &progress,
			})

			summary, err := driver.Run(context.Background(), []time.Time{day(2)})
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}

			files, err := store.RoundFiles()
			if err != nil {
				t.Fatal(err)
			}
			var names []string
			for _, f := range files {
				names = append(names, filepath.Base(f))
			}
			if strings.Join(names, ",") != strings.Join(tt.wantFiles, ",") {
				t.Errorf("files = %v, want %v", names, tt.wantFiles)
			}

			if summary.Dates != 1 {
				t.Errorf("Dates = %d, want 1", summary.Dates)
			}
			if summary.RoundsWritten != tt.wantWritten {
				t.Errorf("RoundsWritten = %d, want %d", summary.RoundsWritten, tt.wantWritten)
			}
			if summary.RoundsSkipped != tt.wantSkipped {
				t.Errorf("RoundsSkipped = %d, want %d", summary.RoundsSkipped, tt.wantSkipped)
			}
			if summary.RoundsFailed != tt.wantFailed {
				t.Errorf("RoundsFailed = %d, want %d", summary.RoundsFailed, tt.wantFailed)
			}
			if summary.DatesEnded != tt.wantEnded {
				t.Errorf("DatesEnded = %d, want %d", summary.DatesEnded, tt.wantEnded)
			}

			for _, k := range tt.wantCalled {
				if !sc.called(k) {
					t.Errorf("round %s was not scraped", k)
				}
			}
			for _, k := range tt.wantUntouched {
				if sc.called(k) {
					t.Errorf("round %s was scraped, want untouched", k)
				}
			}

			if got := strings.Count(progress.String(), "WRITE date: 20200102 round: "); got != tt.wantWritten {
				t.Errorf("progress lines = %d, want %d\n%s", got, tt.wantWritten, progress.String())
			}
		})
	}
}

func TestDriver_RunManyDates(t *testing.T) {
	results := map[string]result{}
	dates := []time.Time{day(1), day(2), day(3), day(4)}
	for _, d := range dates {
		results[key(d, 1)] = result{records: rows(2), report: aligned(2)}
	}
	// one race whose odds table came up short
	results[key(day(3), 1)] = result{
		records: rows(2),
		report:  race.MergeReport{Candidates: 3, Odds: 2, Records: 3, Merged: 2, Dropped: 2},
	}

	store := newStore(t)
	log := logger.Discard()
	var progress bytes.Buffer
	driver := NewDriver(&fakeScraper{results: results}, store, log, Options{Workers: 3, Progress: &progress})

	summary, err := driver.Run(context.Background(), dates)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if summary.Dates != 4 || summary.RoundsWritten != 4 || summary.RowsWritten != 8 {
		t.Errorf("summary = %+v", summary)
	}
	if summary.Mismatches != 1 {
		t.Errorf("Mismatches = %d, want 1", summary.Mismatches)
	}
	if got := log.Metrics().Counter(MetricRoundsWritten); got != 4 {
		t.Errorf("rounds.written metric = %d, want 4", got)
	}
	if got := log.Metrics().Counter(MetricRowsWritten); got != 8 {
		t.Errorf("rows.written metric = %d, want 8", got)
	}

	lines := strings.Split(strings.TrimSpace(progress.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("progress = %q, want 4 lines", progress.String())
	}
	for _, line := range lines {
		if !strings.HasPrefix(line, "WRITE date: 202001") || !strings.HasSuffix(line, " round: 01") {
			t.Errorf("unexpected progress line %q", line)
		}
	}

	// a second run finds everything on disk and scrapes nothing new
	sc := &fakeScraper{results: results}
	summary, err = NewDriver(sc, store, logger.Discard(), Options{Workers: 3}).Run(context.Background(), dates)
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if summary.RoundsWritten != 0 || summary.RoundsSkipped != 4 {
		t.Errorf("second summary = %+v", summary)
	}
	for _, d := range dates {
		if sc.called(key(d, 1)) {
			t.Errorf("round %s rescraped", key(d, 1))
		}
	}
}

func TestDriver_RunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sc := &fakeScraper{results: map[string]result{
		"20200102-01": {records: rows(1), report: aligned(1)},
	}}
	driver := NewDriver(sc, newStore(t), logger.Discard(), Options{})

	summary, err := driver.Run(ctx, []time.Time{day(2)})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if summary == nil || summary.RoundsWritten != 0 {
		t.Errorf("summary = %+v, want nothing written", summary)
	}
}
