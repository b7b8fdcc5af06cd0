// Package race provides the record types, text normalization, and row merging
// for ban'ei race results.
//
// A race is scraped as three independent tables (race card, odds, record) whose
// rows line up by position. Merge zips them into Records, injects the prize for
// each finishing position, and repairs the ad-hoc text encodings used on the
// source pages (ranges, signed weight deltas, percentages, dates).
package race
