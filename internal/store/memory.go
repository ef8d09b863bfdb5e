package store

import (
	"context"
	"fmt"
	"sync"
)

// Memory is an in-process TabularStore used by tests and by local runs
// without Sheets credentials. It mimics the Sheets layout: row 0 is the
// header, data rows follow.
type Memory struct {
	mu     sync.Mutex
	tables map[string][][]string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{tables: make(map[string][][]string)}
}

func (m *Memory) EnsureSchema(_ context.Context, table string, headers []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, ok := m.tables[table]
	if !ok || len(rows) == 0 {
		m.tables[table] = [][]string{append([]string(nil), headers...)}
	}
	return nil
}

func (m *Memory) AppendRows(_ context.Context, table string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tables[table]; !ok {
		return fmt.Errorf("memory store: table %q has no schema", table)
	}
	for _, r := range rows {
		m.tables[table] = append(m.tables[table], append([]string(nil), r...))
	}
	return nil
}

func (m *Memory) ReadAllRecords(_ context.Context, table string) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, ok := m.tables[table]
	if !ok || len(rows) < 2 {
		return nil, nil
	}
	headers := rows[0]
	out := make([]Record, 0, len(rows)-1)
	for _, r := range rows[1:] {
		rec := make(Record, len(headers))
		for i, h := range headers {
			if i < len(r) {
				rec[h] = r[i]
			} else {
				rec[h] = ""
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

func (m *Memory) UpsertByKey(ctx context.Context, table string, headers []string, keyColumn string, records []Record) (UpsertResult, error) {
	existing, err := m.ReadAllRecords(ctx, table)
	if err != nil {
		return UpsertResult{}, err
	}

	keyToRow := make(map[string]int, len(existing))
	for i, rec := range existing {
		if k := recordKey(rec, keyColumn); k != "" {
			keyToRow[k] = i + 1 // +1 for the header row
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tables[table]; !ok {
		return UpsertResult{}, fmt.Errorf("memory store: table %q has no schema", table)
	}

	var res UpsertResult
	for _, rec := range records {
		k := recordKey(rec, keyColumn)
		if k == "" {
			continue
		}
		row := RowFromRecord(headers, rec)
		if idx, ok := keyToRow[k]; ok {
			m.tables[table][idx] = row
			res.Updated++
		} else {
			m.tables[table] = append(m.tables[table], row)
			keyToRow[k] = len(m.tables[table]) - 1
			res.Inserted++
		}
	}
	return res, nil
}
