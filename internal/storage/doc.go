// Package storage persists scraped rounds and aggregates them.
//
// Every round is written to its own CSV file under the resource directory,
// named by date and round so that sorting file names gives chronological
// order. A round file that exists is never fetched again, which makes a batch
// resumable. Aggregate concatenates all round files into one table, and
// ExportSQLite loads that table into a database for querying.
package storage
