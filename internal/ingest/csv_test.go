package ingest

import "testing"

func TestParseFlexible(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantRows int
		wantCols int
	}{
		{"comma", "a,b,c\n1,2,3\n", 2, 3},
		{"semicolon", "a;b;c\n1;2;3\n", 2, 3},
		{"pipe", "a|b|c\n1|2|3\n", 2, 3},
		{"quoted comma inside field", "a,b\n\"x, y\",2\n", 2, 2},
		{"blank lines dropped", "a,b\n\n1,2\n\n", 2, 2},
		{"bom stripped", "\uFEFFa,b\n1,2\n", 2, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := ParseFlexible(tt.content)
			if len(rows) != tt.wantRows {
				t.Fatalf("got %d rows, want %d: %v", len(rows), tt.wantRows, rows)
			}
			if len(rows[0]) != tt.wantCols {
				t.Errorf("got %d columns, want %d: %v", len(rows[0]), tt.wantCols, rows[0])
			}
		})
	}
}

func TestParseFlexible_RaggedRows(t *testing.T) {
	rows := ParseFlexible("a,b,c\n1,2\n1,2,3,4\n")
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if len(rows[1]) != 2 || len(rows[2]) != 4 {
		t.Errorf("ragged rows should survive: %v", rows)
	}
}

func TestRowToMap(t *testing.T) {
	m := rowToMap([]string{"a", "b", "c"}, []string{"1", "2"})
	if m["a"] != "1" || m["b"] != "2" || m["c"] != "" {
		t.Errorf("rowToMap = %v", m)
	}
	m = rowToMap([]string{"a"}, []string{"1", "extra"})
	if len(m) != 1 || m["a"] != "1" {
		t.Errorf("extra cells should be ignored: %v", m)
	}
}
