package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pfrederiksen/banei-scraper/internal/race"
)

const (
	BaseURL = "https://keiba.rakuten.co.jp/"
	// VenueCode identifies the Obihiro ban'ei track inside a race ID
	VenueCode = "03000000"

	raceCardPath = "race_card/list/RACEID/"
	oddsPath     = "odds/tanfuku/RACEID/"
	recordPath   = "race_performance/list/RACEID/"
)

// Scraper fetches and extracts the three pages of a round
type Scraper struct {
	fetcher    *Fetcher
	baseURL    string
	normalizer race.Normalizer
}

// New creates a new Scraper instance. An empty baseURL uses BaseURL.
func New(baseURL string, timeout time.Duration, normalizer race.Normalizer) *Scraper {
	if baseURL == "" {
		baseURL = BaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Scraper{
		fetcher:    NewFetcher(timeout),
		baseURL:    baseURL,
		normalizer: normalizer,
	}
}

// RaceID builds the identifier used in every page URL: date, venue, and the
// zero-padded round number.
func RaceID(date time.Time, round int) string {
	return fmt.Sprintf("%s%s%02d", date.Format("20060102"), VenueCode, round)
}

// URLs returns the race card, odds, and record page URLs for a round
func (s *Scraper) URLs(date time.Time, round int) (raceCard, odds, record string) {
	id := RaceID(date, round)
	return s.baseURL + raceCardPath + id, s.baseURL + oddsPath + id, s.baseURL + recordPath + id
}

// FetchRace fetches all three pages of a round and extracts their tables
func (s *Scraper) FetchRace(ctx context.Context, date time.Time, round int) (*race.Race, error) {
	raceCardURL, oddsURL, recordURL := s.URLs(date, round)

	doc, err := s.fetcher.Fetch(ctx, raceCardURL)
	if err != nil {
		return nil, err
	}
	identity, prizes, candidates, err := ExtractRaceCard(doc, raceCardURL, s.normalizer)
	if err != nil {
		return nil, fmt.Errorf("extracting race card: %w", err)
	}

	doc, err = s.fetcher.Fetch(ctx, oddsURL)
	if err != nil {
		return nil, err
	}
	odds, err := ExtractOdds(doc, oddsURL)
	if err != nil {
		return nil, fmt.Errorf("extracting odds: %w", err)
	}

	doc, err = s.fetcher.Fetch(ctx, recordURL)
	if err != nil {
		return nil, err
	}
	records, err := ExtractRecord(doc, recordURL)
	if err != nil {
		return nil, fmt.Errorf("extracting record: %w", err)
	}

	return &race.Race{
		Identity:   identity,
		Prizes:     prizes,
		Candidates: candidates,
		Odds:       odds,
		Records:    records,
	}, nil
}

// Scrape fetches a round and merges it into normalized records
func (s *Scraper) Scrape(ctx context.Context, date time.Time, round int) ([]race.Record, race.MergeReport, error) {
	r, err := s.FetchRace(ctx, date, round)
	if err != nil {
		return nil, race.MergeReport{}, err
	}

	records, report, err := race.Merge(r, s.normalizer)
	if err != nil {
		return nil, report, fmt.Errorf("merging round %02d: %w", round, err)
	}
	return records, report, nil
}
