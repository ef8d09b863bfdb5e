package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/payrail/settlement-recon/internal/config"
	"github.com/payrail/settlement-recon/internal/domain"
	"github.com/payrail/settlement-recon/internal/logger"
	"github.com/payrail/settlement-recon/internal/store"
)

// recordIDField is the FieldMap sentinel that pulls the source record id
// instead of a field value.
const recordIDField = "__recordId"

// Result reports one enrichment pass. Skipped means missing configuration,
// which is an early logged no-op, never a crash.
type Result struct {
	Skipped   bool
	Reason    string
	Processed int
	Matched   int
	Inserted  int
	Updated   int
}

// Joiner merges external contact data into the failed-payments queue.
// It runs after the Builder against the same queue table.
type Joiner struct {
	store  store.TabularStore
	client Client
	cfg    config.AirtableConfig
	now    func() time.Time
}

// NewJoiner wires the joiner. now is injectable for tests; nil means wall clock.
func NewJoiner(st store.TabularStore, client Client, cfg config.AirtableConfig, now func() time.Time) *Joiner {
	if now == nil {
		now = time.Now
	}
	return &Joiner{store: st, client: client, cfg: cfg, now: now}
}

// Enrich looks up every distinct queue key and merges matched fields back.
// Unmatched rows are left exactly as they were. A lookup failure aborts the
// whole pass; merges already upserted by earlier passes are not rolled back.
func (j *Joiner) Enrich(ctx context.Context) (Result, error) {
	log := logger.FromContext(ctx)

	if !j.cfg.UseStub {
		if j.cfg.BaseID == "" {
			log.Warn().Msg("Enrichment skipped: base id not configured")
			return Result{Skipped: true, Reason: "missing_base_id"}, nil
		}
		if j.cfg.Table == "" {
			log.Warn().Msg("Enrichment skipped: table not configured")
			return Result{Skipped: true, Reason: "missing_table"}, nil
		}
	}

	rows, err := j.store.ReadAllRecords(ctx, domain.TableFailedQueue)
	if err != nil {
		return Result{}, fmt.Errorf("enrich: read queue: %w", err)
	}
	if len(rows) == 0 {
		log.Info().Msg("Failed queue is empty, nothing to enrich")
		return Result{}, nil
	}

	lookupColumn := j.cfg.LookupColumn
	if lookupColumn == "" {
		lookupColumn = "reference_id"
	}
	lookupField := j.cfg.LookupField
	if lookupField == "" {
		lookupField = lookupColumn
	}

	keys := make([]string, 0, len(rows))
	for _, row := range rows {
		if v := strings.TrimSpace(row[lookupColumn]); v != "" {
			keys = append(keys, v)
		}
	}
	keys = dedupeKeys(keys)
	if len(keys) == 0 {
		log.Warn().Str("lookup_column", lookupColumn).Msg("No lookup values in failed queue")
		return Result{Skipped: true, Reason: "no_lookup_values", Processed: len(rows)}, nil
	}

	records, err := j.client.LookupByKeys(ctx, keys, Query{
		Table:       j.cfg.Table,
		View:        j.cfg.View,
		LookupField: lookupField,
		Fields:      j.selectFields(lookupField),
		ChunkSize:   j.cfg.ChunkSize,
	})
	if err != nil {
		return Result{}, fmt.Errorf("enrich: lookup: %w", err)
	}
	if len(records) == 0 {
		log.Info().Int("keys", len(keys)).Msg("No enrichment matches")
		return Result{Processed: len(rows)}, nil
	}

	byLookup := make(map[string]Record, len(records))
	for _, rec := range records {
		raw, ok := rec.Fields[lookupField]
		if !ok {
			continue
		}
		if key := strings.TrimSpace(fmt.Sprint(raw)); key != "" {
			byLookup[key] = rec
		}
	}

	syncedAt := j.now().UTC().Format(time.RFC3339)
	var updates []store.Record
	for _, row := range rows {
		key := strings.TrimSpace(row[lookupColumn])
		if key == "" {
			continue
		}
		payload, ok := byLookup[key]
		if !ok {
			continue
		}
		updates = append(updates, j.mergeRow(row, payload, syncedAt))
	}
	if len(updates) == 0 {
		log.Info().Msg("No queue rows matched enrichment records")
		return Result{Processed: len(rows)}, nil
	}

	res, err := j.store.UpsertByKey(ctx, domain.TableFailedQueue, domain.QueueColumns, "id", updates)
	if err != nil {
		return Result{}, fmt.Errorf("enrich: upsert queue: %w", err)
	}

	out := Result{Processed: len(rows), Matched: len(updates), Inserted: res.Inserted, Updated: res.Updated}
	log.Info().
		Int("processed", out.Processed).
		Int("matched", out.Matched).
		Int("updated", out.Updated).
		Msg("Failed queue enriched")
	return out, nil
}

// mergeRow applies the configured field map onto a copy of the queue row and
// stamps the payload snapshot and sync timestamp.
func (j *Joiner) mergeRow(row store.Record, payload Record, syncedAt string) store.Record {
	merged := make(store.Record, len(row))
	for k, v := range row {
		merged[k] = v
	}
	for column, field := range j.cfg.FieldMap {
		if field == "" {
			continue
		}
		if field == recordIDField {
			merged[column] = payload.ID
			continue
		}
		if v, ok := payload.Fields[field]; ok {
			merged[column] = fmt.Sprint(v)
		}
	}
	if raw, err := json.Marshal(payload.Fields); err == nil {
		merged["airtable_payload_json"] = string(raw)
	}
	merged["airtable_last_sync"] = syncedAt
	return merged
}

// selectFields unions the configured select list, the mapped fields and the
// lookup field.
func (j *Joiner) selectFields(lookupField string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(f string) {
		if f == "" || f == recordIDField || seen[f] {
			return
		}
		seen[f] = true
		out = append(out, f)
	}
	for _, f := range j.cfg.SelectFields {
		add(f)
	}
	for _, f := range j.cfg.FieldMap {
		add(f)
	}
	add(lookupField)
	return out
}
