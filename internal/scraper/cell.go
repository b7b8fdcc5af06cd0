package scraper

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/banei-scraper/internal/race"
	"golang.org/x/net/html"
)

// Field is a kind of table cell, named after the td class that holds it
type Field string

const (
	FieldNumber         Field = "number"
	FieldName           Field = "name"
	FieldProfile        Field = "profile"
	FieldWeight         Field = "weight"
	FieldWeightDistance Field = "weightDistance"
	FieldOddsWin        Field = "oddsWin"
	FieldOddsPlace      Field = "oddsPlace"
	FieldOrder          Field = "order"
	FieldTime           Field = "time"
)

// dataRowPrefix marks table rows that carry a horse
const dataRowPrefix = "box"

// StructuralError reports a required page section that is missing entirely
type StructuralError struct {
	Section string
	URL     string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("no match for %s at %s", e.Section, e.URL)
}

// Extract returns the cleaned text of the field's cell in row, if the row has one.
// Line breaks inside the cell become commas so that multi-value cells split
// into separate tokens.
func (f Field) Extract(row *goquery.Selection) (string, bool) {
	cell := row.Find("td." + string(f)).First()
	if cell.Length() == 0 {
		return "", false
	}
	cell.Find("br").Each(func(_ int, br *goquery.Selection) {
		for _, node := range br.Nodes {
			node.Parent.InsertBefore(&html.Node{Type: html.TextNode, Data: "\n"}, node)
		}
	})
	return race.CleanCell(cell.Text()), true
}

// cellText extracts f from row, falling back to the placeholder
func cellText(row *goquery.Selection, f Field) string {
	if text, ok := f.Extract(row); ok {
		return text
	}
	return race.Placeholder
}

// isDataRow reports whether any class of the row starts with the data row prefix
func isDataRow(_ int, row *goquery.Selection) bool {
	class, _ := row.Attr("class")
	for _, c := range strings.Fields(class) {
		if strings.HasPrefix(c, dataRowPrefix) {
			return true
		}
	}
	return false
}

// rowTokens pulls the given fields out of row and flattens them into tokens:
// cells are joined with commas, split again, and empty segments dropped.
func rowTokens(row *goquery.Selection, fields []Field) []string {
	texts := make([]string, 0, len(fields))
	for _, f := range fields {
		texts = append(texts, cellText(row, f))
	}

	tokens := make([]string, 0)
	for _, segment := range strings.Split(strings.Join(texts, ","), ",") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		tokens = append(tokens, segment)
	}
	return tokens
}

// column binds a label to the struct field its token lands in.
// A nil set discards the token.
type column[T any] struct {
	label string
	set   func(*T, string)
}

// zipRow pairs tokens with columns, stopping at the shorter of the two.
// Columns without a token are left empty.
func zipRow[T any](tokens []string, columns []column[T]) T {
	var row T
	for i := 0; i < len(tokens) && i < len(columns); i++ {
		if columns[i].set != nil {
			columns[i].set(&row, tokens[i])
		}
	}
	return row
}

// extractRows finds the table, walks its data rows, and zips each row's tokens
func extractRows[T any](doc *goquery.Document, url, tableSelector string, fields []Field, columns []column[T]) ([]T, error) {
	table := doc.Find(tableSelector).First()
	if table.Length() == 0 {
		return nil, &StructuralError{Section: tableSelector, URL: url}
	}

	rows := make([]T, 0)
	table.Find("tr").FilterFunction(isDataRow).Each(func(_ int, tr *goquery.Selection) {
		rows = append(rows, zipRow(rowTokens(tr, fields), columns))
	})
	return rows, nil
}
