package store

import (
	"context"
	"strings"
)

// Record is one table row keyed by header name. Values are the store's cell
// text; missing cells read as "".
type Record map[string]string

// UpsertResult reports what an upsert changed.
type UpsertResult struct {
	Inserted int
	Updated  int
}

// TabularStore is the ledger/queue backing table. The master ledger is
// append-only through AppendRows; the failed queue is mutated through
// UpsertByKey. A single writer per run is assumed.
type TabularStore interface {
	// EnsureSchema creates the table if needed and writes the header row on
	// an empty table. An existing non-matching header is reported in logs but
	// never rewritten.
	EnsureSchema(ctx context.Context, table string, headers []string) error

	// AppendRows appends rows in column order to the end of the table.
	AppendRows(ctx context.Context, table string, rows [][]string) error

	// ReadAllRecords reads every data row as a header-keyed record.
	ReadAllRecords(ctx context.Context, table string) ([]Record, error)

	// UpsertByKey writes each record into the row whose keyColumn matches,
	// appending records with unseen keys. Records with a blank key are skipped.
	UpsertByKey(ctx context.Context, table string, headers []string, keyColumn string, records []Record) (UpsertResult, error)
}

// RowFromRecord serializes a record into the given column order. Unset
// columns render as "" so the row stays rectangular.
func RowFromRecord(headers []string, rec Record) []string {
	row := make([]string, len(headers))
	for i, h := range headers {
		row[i] = rec[h]
	}
	return row
}

// recordKey trims the record's key cell for matching.
func recordKey(rec Record, keyColumn string) string {
	return strings.TrimSpace(rec[keyColumn])
}

func headersEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
