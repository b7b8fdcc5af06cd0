// Package cli implements the command-line interface for banei-scraper.
//
// The cli package provides the Cobra-based root command. It resolves the run
// configuration, builds the per-run logger, and coordinates the scraper,
// batch, and storage packages to scrape a date range, aggregate the round
// files, and report a summary as text or JSON.
package cli
