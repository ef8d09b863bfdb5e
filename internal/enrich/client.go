package enrich

import (
	"context"
	"fmt"
	"strings"

	"github.com/mehanizm/airtable"
)

// Record is one row returned by the contact-enrichment source.
type Record struct {
	ID     string
	Fields map[string]interface{}
}

// Query describes one lookup against the enrichment source.
type Query struct {
	Table       string
	View        string
	LookupField string
	Fields      []string
	ChunkSize   int
}

// Client looks up enrichment records by a batch of lookup-field values.
type Client interface {
	LookupByKeys(ctx context.Context, keys []string, q Query) ([]Record, error)
}

// Airtable rate limits at ~5 req/s; chunked OR() formulas keep requests and
// formula length bounded. maxBatches caps the loop against runaway key sets.
const (
	defaultChunkSize = 10
	maxBatches       = 100
)

// AirtableClient is the production enrichment client.
type AirtableClient struct {
	client *airtable.Client
	baseID string
}

// NewAirtableClient creates an authenticated client for one base.
func NewAirtableClient(apiKey, baseID string) *AirtableClient {
	return &AirtableClient{client: airtable.NewClient(apiKey), baseID: baseID}
}

func (c *AirtableClient) LookupByKeys(ctx context.Context, keys []string, q Query) ([]Record, error) {
	cleaned := dedupeKeys(keys)
	if len(cleaned) == 0 {
		return nil, nil
	}
	chunkSize := q.ChunkSize
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}

	table := c.client.GetTable(c.baseID, q.Table)
	var out []Record
	batches := 0
	for start := 0; start < len(cleaned); start += chunkSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if batches >= maxBatches {
			return out, fmt.Errorf("airtable: lookup exceeded %d batches, refusing to continue", maxBatches)
		}
		batches++

		end := start + chunkSize
		if end > len(cleaned) {
			end = len(cleaned)
		}
		cfg := table.GetRecords().
			WithFilterFormula(filterFormula(cleaned[start:end], q.LookupField)).
			ReturnFields(q.Fields...).
			PageSize(chunkSize)
		if q.View != "" {
			cfg = cfg.FromView(q.View)
		}
		res, err := cfg.Do()
		if err != nil {
			return nil, fmt.Errorf("airtable: query table %q: %w", q.Table, err)
		}
		for _, rec := range res.Records {
			out = append(out, Record{ID: rec.ID, Fields: rec.Fields})
		}
	}
	return out, nil
}

// filterFormula builds OR({field}='v1',{field}='v2',...).
func filterFormula(values []string, field string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("{%s}='%s'", field, strings.ReplaceAll(v, "'", `\'`))
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return "OR(" + strings.Join(parts, ",") + ")"
}

func dedupeKeys(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}
