package storage

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pfrederiksen/banei-scraper/internal/race"

	_ "modernc.org/sqlite"
)

// DefaultTable is the table ExportSQLite writes when none is given
const DefaultTable = "race_results"

// columnTypes overrides the TEXT default for numeric columns
var columnTypes = map[string]string{
	race.ColPrize: "INTEGER",
}

// ExportSQLite loads an aggregated CSV file into table inside the SQLite
// database at dbPath. The table is dropped and recreated on every export.
// It returns the number of rows inserted.
func ExportSQLite(ctx context.Context, csvPath, dbPath, table string) (int, error) {
	if table == "" {
		table = DefaultTable
	}

	f, err := os.Open(csvPath)
	if err != nil {
		return 0, fmt.Errorf("opening aggregated file: %w", err)
	}
	defer f.Close() // nolint:errcheck

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return 0, fmt.Errorf("reading header: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return 0, fmt.Errorf("opening database: %w", err)
	}
	defer db.Close() // nolint:errcheck

	defs := make([]string, 0, len(header))
	cols := make([]string, 0, len(header))
	for _, c := range header {
		t := columnTypes[c]
		if t == "" {
			t = "TEXT"
		}
		defs = append(defs, fmt.Sprintf("%q %s", c, t))
		cols = append(cols, fmt.Sprintf("%q", c))
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %q", table)); err != nil {
		return 0, fmt.Errorf("dropping table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %q (%s)", table, strings.Join(defs, ","))); err != nil {
		return 0, fmt.Errorf("creating table: %w", err)
	}

	placeholders := strings.TrimRight(strings.Repeat("?,", len(header)), ",")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %q (%s) VALUES (%s)", table, strings.Join(cols, ","), placeholders))
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close() // nolint:errcheck

	rows := 0
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("reading row %d: %w", rows+2, err)
		}

		args := make([]any, len(row))
		for i, v := range row {
			args[i] = v
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("inserting row %d: %w", rows+2, err)
		}
		rows++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing: %w", err)
	}
	return rows, nil
}
