package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

const (
	UserAgent = "banei-scraper/1.0 (github.com/pfrederiksen/banei-scraper)"
	Timeout   = 10 * time.Second

	// noDataSelector matches the marker shown when a race does not exist
	noDataSelector = "p.leadNoData"
)

// ErrNoData is wrapped by fetch errors for pages that state the race does not exist
var ErrNoData = errors.New("no data on page")

// FailureKind classifies a fetch failure
type FailureKind int

const (
	// NetworkOrParseFailure covers timeouts, bad status codes, and undecodable pages
	NetworkOrParseFailure FailureKind = iota
	// NoData means the page explicitly says the race does not exist
	NoData
)

func (k FailureKind) String() string {
	if k == NoData {
		return "no data"
	}
	return "network or parse failure"
}

// FetchError is returned by Fetcher.Fetch
type FetchError struct {
	Kind FailureKind
	URL  string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsNoData reports whether err signals the end of a card
func IsNoData(err error) bool {
	return errors.Is(err, ErrNoData)
}

// Fetcher retrieves single pages as parse-ready documents
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a Fetcher whose requests time out after timeout
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = Timeout
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Fetch downloads url and parses it. It never caches and never retries.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*goquery.Document, error) {
	fail := func(err error) error {
		return &FetchError{Kind: NetworkOrParseFailure, URL: url, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fail(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fail(fmt.Errorf("fetching page: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fail(fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	}

	body, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fail(fmt.Errorf("decoding body: %w", err))
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fail(fmt.Errorf("parsing HTML: %w", err))
	}

	if doc.Find(noDataSelector).Length() > 0 {
		return nil, &FetchError{Kind: NoData, URL: url, Err: ErrNoData}
	}

	return doc, nil
}
