package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/api/sheets/v4"
)

// Sheets is the production TabularStore backed by one Google Spreadsheet,
// one sheet (tab) per table.
type Sheets struct {
	svc           *sheets.Service
	spreadsheetID string
	log           zerolog.Logger
}

// NewSheets wraps an authenticated Sheets service around a spreadsheet.
func NewSheets(svc *sheets.Service, spreadsheetID string, log zerolog.Logger) *Sheets {
	return &Sheets{svc: svc, spreadsheetID: spreadsheetID, log: log}
}

func sheetRange(table, cells string) string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(table, "'", "''"), cells)
}

func (s *Sheets) EnsureSchema(ctx context.Context, table string, headers []string) error {
	doc, err := s.svc.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheets: get spreadsheet: %w", err)
	}

	found := false
	for _, sh := range doc.Sheets {
		if sh.Properties != nil && sh.Properties.Title == table {
			found = true
			break
		}
	}
	if !found {
		req := &sheets.BatchUpdateSpreadsheetRequest{
			Requests: []*sheets.Request{{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{Title: table},
				},
			}},
		}
		if _, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
			return fmt.Errorf("sheets: create sheet %q: %w", table, err)
		}
		s.log.Info().Str("table", table).Msg("Sheet created")
	}

	vr, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, sheetRange(table, "1:1")).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheets: read header of %q: %w", table, err)
	}
	existing := []string{}
	if len(vr.Values) > 0 {
		for _, cell := range vr.Values[0] {
			existing = append(existing, fmt.Sprint(cell))
		}
	}
	if len(existing) == 0 {
		if err := s.writeRow(ctx, table, 1, headers); err != nil {
			return fmt.Errorf("sheets: write header of %q: %w", table, err)
		}
		return nil
	}
	if !headersEqual(existing, headers) {
		// Existing data might depend on the current layout; surface, don't rewrite.
		s.log.Warn().
			Str("table", table).
			Strs("existing", existing).
			Strs("expected", headers).
			Msg("Header mismatch, leaving sheet untouched")
	}
	return nil
}

func (s *Sheets) AppendRows(ctx context.Context, table string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	vr := &sheets.ValueRange{Values: toInterfaceRows(rows)}
	_, err := s.svc.Spreadsheets.Values.
		Append(s.spreadsheetID, sheetRange(table, "A1"), vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("sheets: append %d rows to %q: %w", len(rows), table, err)
	}
	return nil
}

func (s *Sheets) ReadAllRecords(ctx context.Context, table string) ([]Record, error) {
	vr, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, sheetRange(table, "A:ZZ")).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("sheets: read %q: %w", table, err)
	}
	if len(vr.Values) < 2 {
		return nil, nil
	}
	headers := make([]string, len(vr.Values[0]))
	for i, cell := range vr.Values[0] {
		headers[i] = strings.TrimSpace(fmt.Sprint(cell))
	}
	out := make([]Record, 0, len(vr.Values)-1)
	for _, raw := range vr.Values[1:] {
		rec := make(Record, len(headers))
		for i, h := range headers {
			if i < len(raw) {
				rec[h] = fmt.Sprint(raw[i])
			} else {
				rec[h] = ""
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *Sheets) UpsertByKey(ctx context.Context, table string, headers []string, keyColumn string, records []Record) (UpsertResult, error) {
	existing, err := s.ReadAllRecords(ctx, table)
	if err != nil {
		return UpsertResult{}, err
	}
	keyToRow := make(map[string]int, len(existing))
	for i, rec := range existing {
		if k := recordKey(rec, keyColumn); k != "" {
			keyToRow[k] = i + 2 // +2: 1-based rows, header is row 1
		}
	}

	var res UpsertResult
	var updates []*sheets.ValueRange
	var toAppend [][]string
	for _, rec := range records {
		k := recordKey(rec, keyColumn)
		if k == "" {
			continue
		}
		row := RowFromRecord(headers, rec)
		if rowIdx, ok := keyToRow[k]; ok {
			updates = append(updates, &sheets.ValueRange{
				Range:  sheetRange(table, fmt.Sprintf("A%d", rowIdx)),
				Values: toInterfaceRows([][]string{row}),
			})
			res.Updated++
		} else {
			toAppend = append(toAppend, row)
			res.Inserted++
		}
	}

	if len(updates) > 0 {
		req := &sheets.BatchUpdateValuesRequest{ValueInputOption: "RAW", Data: updates}
		if _, err := s.svc.Spreadsheets.Values.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
			return UpsertResult{}, fmt.Errorf("sheets: update %d rows in %q: %w", len(updates), table, err)
		}
	}
	if len(toAppend) > 0 {
		if err := s.AppendRows(ctx, table, toAppend); err != nil {
			return UpsertResult{}, err
		}
	}
	return res, nil
}

func (s *Sheets) writeRow(ctx context.Context, table string, rowIdx int, values []string) error {
	vr := &sheets.ValueRange{Values: toInterfaceRows([][]string{values})}
	_, err := s.svc.Spreadsheets.Values.
		Update(s.spreadsheetID, sheetRange(table, fmt.Sprintf("A%d", rowIdx)), vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return err
}

func toInterfaceRows(rows [][]string) [][]interface{} {
	out := make([][]interface{}, len(rows))
	for i, r := range rows {
		cells := make([]interface{}, len(r))
		for j, v := range r {
			cells[j] = v
		}
		out[i] = cells
	}
	return out
}
