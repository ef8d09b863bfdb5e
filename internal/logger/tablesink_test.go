package logger

import (
	"context"
	"sync"
	"testing"
)

type capturingAppender struct {
	mu   sync.Mutex
	rows [][]string
}

func (c *capturingAppender) AppendRows(_ context.Context, _ string, rows [][]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows = append(c.rows, rows...)
	return nil
}

func TestTableSink_Write(t *testing.T) {
	appender := &capturingAppender{}
	sink := NewTableSink(appender, "LOGS")
	log := NewWithWriter(sink)

	log.Info().Str("bank", "BANISTMO").Msg("Processing file")

	if len(appender.rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(appender.rows))
	}
	row := appender.rows[0]
	if len(row) != 4 {
		t.Fatalf("row has %d cells, want [ts, level, message, meta]", len(row))
	}
	if row[1] != "info" {
		t.Errorf("level = %q, want info", row[1])
	}
	if row[2] != "Processing file" {
		t.Errorf("message = %q", row[2])
	}
	if !containsString(row[3], "BANISTMO") {
		t.Errorf("meta = %q, want the structured field", row[3])
	}
}

func TestTableSink_IgnoresNonJSON(t *testing.T) {
	appender := &capturingAppender{}
	sink := NewTableSink(appender, "LOGS")

	n, err := sink.Write([]byte("not json"))
	if err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if n != len("not json") {
		t.Errorf("Write returned %d, want full length", n)
	}
	if len(appender.rows) != 0 {
		t.Errorf("non-JSON input should not produce rows")
	}
}
