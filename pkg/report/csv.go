package report

import (
	"errors"
	"fmt"
	"io"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/yourusername/unilib/pkg/store"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrNoRecords means there was nothing to export: with no first record,
// no header row can be derived.
var ErrNoRecords = errors.New("no records to export")

// Cell is one named value of an export row.
type Cell struct {
	Key   string
	Value any
}

// ExportCSV writes rows as comma-separated text: a header row taken from the
// first record's key order, then one line per record. Every value is JSON
// encoded, so embedded commas and quotes arrive escaped by the JSON string
// quoting itself.
func ExportCSV(w io.Writer, rows [][]Cell) error {
	if len(rows) == 0 {
		return ErrNoRecords
	}

	headers := make([]string, len(rows[0]))
	for i, c := range rows[0] {
		headers[i] = c.Key
	}
	if _, err := io.WriteString(w, strings.Join(headers, ",")); err != nil {
		return err
	}

	for _, row := range rows {
		cells := make([]string, 0, len(headers))
		for i, h := range headers {
			var v any
			if i < len(row) && row[i].Key == h {
				v = row[i].Value
			} else {
				for _, c := range row {
					if c.Key == h {
						v = c.Value
						break
					}
				}
			}
			encoded, err := json.MarshalToString(v)
			if err != nil {
				return fmt.Errorf("failed to encode %s: %w", h, err)
			}
			cells = append(cells, encoded)
		}
		if _, err := io.WriteString(w, "\n"+strings.Join(cells, ",")); err != nil {
			return err
		}
	}
	return nil
}

// LoanRows flattens loan requests for export.
func LoanRows(loans []store.LoanRequest) [][]Cell {
	rows := make([][]Cell, 0, len(loans))
	for _, l := range loans {
		due := ""
		if l.DueDate != nil {
			due = l.DueDate.Format("2006-01-02")
		}
		rows = append(rows, []Cell{
			{"id", l.ID},
			{"book", l.Title},
			{"author", l.Author},
			{"user_id", l.UserID},
			{"status", l.Status},
			{"requested", l.RequestDate.Format("2006-01-02")},
			{"due", due},
		})
	}
	return rows
}

// BookRows flattens books for export.
func BookRows(books []store.Book) [][]Cell {
	rows := make([][]Cell, 0, len(books))
	for _, b := range books {
		rows = append(rows, []Cell{
			{"id", b.ID},
			{"title", b.Title},
			{"author", b.Author},
			{"genre", strings.Join(b.Genre, "; ")},
			{"total_copies", b.TotalCopies},
			{"available_copies", b.AvailableCopies},
			{"borrowed_count", b.BorrowedCount},
		})
	}
	return rows
}
