// Package batch drives a scrape over a range of dates.
//
// Dates are spread over a fixed pool of workers; the rounds of one date are
// tried in order from 1 up to the configured maximum. A round whose file
// already exists is skipped, which makes an interrupted run resumable. A
// no-data page or an empty race ends the date, while any other failure is
// logged and the next round is tried.
package batch
