package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payrail/settlement-recon/internal/config"
	"github.com/payrail/settlement-recon/internal/domain"
	"github.com/payrail/settlement-recon/internal/store"
)

var enrichCfg = config.AirtableConfig{
	UseStub:      true,
	Table:        "contacts",
	LookupColumn: "reference_id",
	LookupField:  "reference_id",
	FieldMap: map[string]string{
		"airtable_record_id":   "__recordId",
		"airtable_phone_e164":  "phone_e164",
		"airtable_segment":     "segment",
		"airtable_wa_template": "wa_template",
		"airtable_notes":       "notes",
	},
	SelectFields: []string{"reference_id", "phone_e164", "segment", "wa_template", "notes"},
}

func enrichClock() time.Time {
	return time.Date(2024, 6, 20, 9, 0, 0, 0, time.UTC)
}

func newEnrichStore(t *testing.T, recs ...store.Record) *store.Memory {
	t.Helper()
	st := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, st.EnsureSchema(ctx, domain.TableFailedQueue, domain.QueueColumns))
	if len(recs) > 0 {
		_, err := st.UpsertByKey(ctx, domain.TableFailedQueue, domain.QueueColumns, "id", recs)
		require.NoError(t, err)
	}
	return st
}

func TestStubClient_FiltersAndProjects(t *testing.T) {
	client, err := NewStubClient("")
	require.NoError(t, err)

	recs, err := client.LookupByKeys(context.Background(), []string{"CAPARE00123", "UNKNOWN"}, Query{
		LookupField: "reference_id",
		Fields:      []string{"reference_id", "phone_e164"},
	})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "recFAILED003", recs[0].ID)
	assert.Equal(t, "+50760000003", recs[0].Fields["phone_e164"])
	assert.NotContains(t, recs[0].Fields, "segment", "unrequested fields are projected away")
}

func TestStubClient_UnknownFixture(t *testing.T) {
	_, err := NewStubClient("does-not-exist")
	require.Error(t, err)
}

func TestEnrich_MatchMergesFields(t *testing.T) {
	st := newEnrichStore(t, store.Record{
		"id": "CAPARE00123", "reference_id": "CAPARE00123", "status": "FAILED",
		"last_failed_at": "2024-06-19",
	})
	client, err := NewStubClient("")
	require.NoError(t, err)
	j := NewJoiner(st, client, enrichCfg, enrichClock)

	res, err := j.Enrich(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 1, res.Matched)
	assert.Equal(t, 1, res.Updated)

	recs, err := st.ReadAllRecords(context.Background(), domain.TableFailedQueue)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	entry := recs[0]
	assert.Equal(t, "recFAILED003", entry["airtable_record_id"])
	assert.Equal(t, "+50760000003", entry["airtable_phone_e164"])
	assert.Equal(t, "STANDARD", entry["airtable_segment"])
	assert.Equal(t, "2024-06-20T09:00:00Z", entry["airtable_last_sync"])
	assert.Equal(t, "FAILED", entry["status"], "queue state untouched by enrichment")
	assert.Equal(t, "2024-06-19", entry["last_failed_at"])

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(entry["airtable_payload_json"]), &payload))
	assert.Equal(t, "CAPARE00123", payload["reference_id"])
}

func TestEnrich_UnmatchedRowUntouched(t *testing.T) {
	st := newEnrichStore(t, store.Record{
		"id": "NOMATCH-1", "reference_id": "NOMATCH-1", "status": "FAILED",
	})
	client, err := NewStubClient("")
	require.NoError(t, err)
	j := NewJoiner(st, client, enrichCfg, enrichClock)

	res, err := j.Enrich(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Matched)

	recs, _ := st.ReadAllRecords(context.Background(), domain.TableFailedQueue)
	assert.Empty(t, recs[0]["airtable_record_id"])
	assert.Empty(t, recs[0]["airtable_last_sync"])
}

func TestEnrich_EmptyQueueIsNoOp(t *testing.T) {
	st := newEnrichStore(t)
	client, err := NewStubClient("")
	require.NoError(t, err)
	j := NewJoiner(st, client, enrichCfg, enrichClock)

	res, err := j.Enrich(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
}

func TestEnrich_SkipsWhenUnconfigured(t *testing.T) {
	st := newEnrichStore(t, store.Record{"id": "R1", "reference_id": "R1", "status": "FAILED"})
	client, err := NewStubClient("")
	require.NoError(t, err)

	cfg := enrichCfg
	cfg.UseStub = false
	cfg.BaseID = ""
	j := NewJoiner(st, client, cfg, enrichClock)

	res, err := j.Enrich(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, "missing_base_id", res.Reason)
}

func TestEnrich_SkipsWhenNoLookupValues(t *testing.T) {
	st := newEnrichStore(t, store.Record{"id": "R1", "reference_id": "  ", "status": "FAILED"})
	client, err := NewStubClient("")
	require.NoError(t, err)
	j := NewJoiner(st, client, enrichCfg, enrichClock)

	res, err := j.Enrich(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, "no_lookup_values", res.Reason)
}

type failingClient struct{}

func (failingClient) LookupByKeys(context.Context, []string, Query) ([]Record, error) {
	return nil, errors.New("rate limited")
}

func TestEnrich_LookupFailureAborts(t *testing.T) {
	st := newEnrichStore(t, store.Record{"id": "R1", "reference_id": "R1", "status": "FAILED"})
	j := NewJoiner(st, failingClient{}, enrichCfg, enrichClock)

	_, err := j.Enrich(context.Background())
	require.Error(t, err)

	// The queue must be exactly as it was.
	recs, _ := st.ReadAllRecords(context.Background(), domain.TableFailedQueue)
	assert.Empty(t, recs[0]["airtable_last_sync"])
}

func TestDedupeKeys(t *testing.T) {
	got := dedupeKeys([]string{" a ", "b", "a", "", "b", "c"})
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestFilterFormula(t *testing.T) {
	assert.Equal(t, "{ref}='a'", filterFormula([]string{"a"}, "ref"))
	assert.Equal(t, "OR({ref}='a',{ref}='b')", filterFormula([]string{"a", "b"}, "ref"))
	assert.Equal(t, `{ref}='o\'brien'`, filterFormula([]string{"o'brien"}, "ref"))
}
