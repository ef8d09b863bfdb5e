package logger

import (
	"context"
	"encoding/json"
	"time"
)

// RowAppender is the slice of the tabular store the sink needs.
type RowAppender interface {
	AppendRows(ctx context.Context, table string, rows [][]string) error
}

// TableSink mirrors zerolog events into a LOGS table as
// [ts, level, message, meta] rows. It swallows its own failures: logging
// must never take the pipeline down.
type TableSink struct {
	store RowAppender
	table string
}

// NewTableSink creates a sink that appends log rows to the given table.
func NewTableSink(store RowAppender, table string) *TableSink {
	return &TableSink{store: store, table: table}
}

// Write implements io.Writer for zerolog. Each call carries one complete
// JSON-encoded event.
func (s *TableSink) Write(p []byte) (int, error) {
	var event map[string]interface{}
	if err := json.Unmarshal(p, &event); err != nil {
		return len(p), nil
	}

	ts, _ := event["time"].(string)
	if ts == "" {
		ts = time.Now().UTC().Format(time.RFC3339)
	}
	level, _ := event["level"].(string)
	message, _ := event["message"].(string)

	delete(event, "time")
	delete(event, "level")
	delete(event, "message")
	delete(event, "caller")
	meta := ""
	if len(event) > 0 {
		if b, err := json.Marshal(event); err == nil {
			meta = string(b)
		}
	}

	_ = s.store.AppendRows(context.Background(), s.table, [][]string{{ts, level, message, meta}})
	return len(p), nil
}
