// Package scraper provides HTTP fetching and HTML extraction for Rakuten Keiba
// ban'ei race pages.
//
// Each round is published on three pages: the race card (horse profiles and
// the prize block), the odds page, and the result record. The scraper fetches
// all three, pulls their table rows out through a shared cell convention, and
// hands them to the race package for merging. A page that carries the
// "no data" marker ends the card for that date.
package scraper
