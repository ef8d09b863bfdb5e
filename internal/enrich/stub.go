package enrich

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"strings"
)

//go:embed fixtures/*.json
var fixtureFS embed.FS

// DefaultStubFixture is the canned failed-queue lookup response.
const DefaultStubFixture = "airtable_failed_queue.sample"

type stubPayload struct {
	Records []struct {
		ID          string                 `json:"id"`
		CreatedTime string                 `json:"createdTime"`
		Fields      map[string]interface{} `json:"fields"`
	} `json:"records"`
}

// StubClient serves canned records from an embedded fixture, for offline
// runs and deterministic tests. It filters and projects like the real API.
type StubClient struct {
	records []Record
}

// NewStubClient loads the named fixture ("" means DefaultStubFixture).
func NewStubClient(fixture string) (*StubClient, error) {
	if fixture == "" {
		fixture = DefaultStubFixture
	}
	data, err := fixtureFS.ReadFile("fixtures/" + fixture + ".json")
	if err != nil {
		return nil, fmt.Errorf("enrich stub: fixture %q: %w", fixture, err)
	}
	var payload stubPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("enrich stub: parse fixture %q: %w", fixture, err)
	}
	records := make([]Record, 0, len(payload.Records))
	for _, r := range payload.Records {
		records = append(records, Record{ID: r.ID, Fields: r.Fields})
	}
	return &StubClient{records: records}, nil
}

func (c *StubClient) LookupByKeys(_ context.Context, keys []string, q Query) ([]Record, error) {
	wanted := make(map[string]bool)
	for _, k := range dedupeKeys(keys) {
		wanted[k] = true
	}

	var out []Record
	for _, rec := range c.records {
		raw, ok := rec.Fields[q.LookupField]
		if !ok {
			continue
		}
		key := strings.TrimSpace(fmt.Sprint(raw))
		if key == "" || !wanted[key] {
			continue
		}
		out = append(out, projectFields(rec, q.Fields))
	}
	return out, nil
}

// projectFields narrows a record to the requested fields, like the API does.
func projectFields(rec Record, fields []string) Record {
	if len(fields) == 0 {
		return rec
	}
	narrowed := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		if v, ok := rec.Fields[f]; ok {
			narrowed[f] = v
		}
	}
	return Record{ID: rec.ID, Fields: narrowed}
}
