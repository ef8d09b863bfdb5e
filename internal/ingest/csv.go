package ingest

import (
	"encoding/csv"
	"strings"
)

var delimiters = []rune{',', ';', '|'}

// ParseFlexible parses CSV text trying comma, semicolon and pipe delimiters,
// keeping the first parse that yields more than one column. Rows that are
// entirely blank after trimming are dropped. A BOM is tolerated.
func ParseFlexible(content string) [][]string {
	content = strings.TrimPrefix(content, "\uFEFF")

	var fallback [][]string
	for i, delim := range delimiters {
		rows, err := parseWith(content, delim)
		if err != nil {
			continue
		}
		if i == 0 {
			fallback = rows
		}
		if len(rows) > 0 && len(rows[0]) > 1 {
			return rows
		}
	}
	return fallback
}

func parseWith(content string, delim rune) ([][]string, error) {
	r := csv.NewReader(strings.NewReader(content))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	out := rows[:0]
	for _, row := range rows {
		if strings.TrimSpace(strings.Join(row, "")) == "" {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

// rowToMap zips a header onto one data row. Short rows read as "" for the
// trailing columns; extra cells are ignored.
func rowToMap(header []string, row []string) map[string]string {
	m := make(map[string]string, len(header))
	for i, h := range header {
		if i < len(row) {
			m[h] = row[i]
		} else {
			m[h] = ""
		}
	}
	return m
}
