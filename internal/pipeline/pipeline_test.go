package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payrail/settlement-recon/internal/config"
	"github.com/payrail/settlement-recon/internal/consolidate"
	"github.com/payrail/settlement-recon/internal/domain"
	"github.com/payrail/settlement-recon/internal/enrich"
	"github.com/payrail/settlement-recon/internal/filesource"
	"github.com/payrail/settlement-recon/internal/ingest"
	"github.com/payrail/settlement-recon/internal/mapper"
	"github.com/payrail/settlement-recon/internal/queue"
	"github.com/payrail/settlement-recon/internal/store"
	"github.com/payrail/settlement-recon/internal/validate"
)

func pipelineConfig() config.Config {
	return config.Config{
		DefaultsByBank: map[string]config.BankDefaults{
			"BANISTMO":      {Currency: "USD", Status: "PENDING"},
			"BANCO_GENERAL": {Currency: "USD", Status: "PENDING"},
		},
		Airtable: config.AirtableConfig{
			UseStub:      true,
			Table:        "contacts",
			LookupColumn: "reference_id",
			LookupField:  "reference_id",
			FieldMap: map[string]string{
				"airtable_record_id":  "__recordId",
				"airtable_phone_e164": "phone_e164",
			},
			SelectFields: []string{"reference_id", "phone_e164"},
		},
	}
}

func newTestRunner(t *testing.T, dir string) (*Runner, *store.Memory) {
	t.Helper()
	cfg := pipelineConfig()
	st := store.NewMemory()
	source := filesource.NewLocal(dir)
	clock := func() time.Time { return time.Date(2024, 6, 20, 12, 0, 0, 0, time.UTC) }

	validator := validate.New()
	adapters := []*ingest.Adapter{
		ingest.NewAdapter(
			mapper.NewBanistmo(cfg.Defaults("BANISTMO")),
			validator, consolidate.New(cfg, "recon/test", clock),
			source, st, regexp.MustCompile(`(?i)banistmo`),
		),
		ingest.NewAdapter(
			mapper.NewBancoGeneral(cfg.Defaults("BANCO_GENERAL")),
			validator, consolidate.New(cfg, "recon/test", clock),
			source, st, regexp.MustCompile(`(?i)general`),
		),
	}

	stub, err := enrich.NewStubClient("")
	require.NoError(t, err)
	joiner := enrich.NewJoiner(st, stub, cfg.Airtable, clock)

	return NewRunner(st, source, adapters, queue.NewBuilder(st, cfg, clock), joiner, cfg), st
}

func TestRunner_Setup(t *testing.T) {
	runner, st := newTestRunner(t, t.TempDir())
	ctx := context.Background()

	require.NoError(t, runner.Setup(ctx))
	// Running setup twice must not disturb existing tables.
	require.NoError(t, st.AppendRows(ctx, domain.TableLedger,
		[][]string{store.RowFromRecord(domain.LedgerColumns, store.Record{"id": "X"})}))
	require.NoError(t, runner.Setup(ctx))

	recs, err := st.ReadAllRecords(ctx, domain.TableLedger)
	require.NoError(t, err)
	assert.Len(t, recs, 1, "setup must not wipe data")
}

func TestRunner_Run_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "banistmo_junio.csv"), []byte(
		"Pay ID,Amount,Estado\n"+
			"PAY-001,150.75,Ejecutada\n"+
			"PAY-002,99.50,Rechazada\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "general_junio.csv"), []byte(
		"OBSERVACIONES,MONTO,DESCRIPCION DE ERROR\n"+
			"ACH CAPARE00123 junio,250.00,CUENTA INVALIDA\n"+
			"ACH CAPARE00999 junio,80.00,\n"), 0o644))

	runner, st := newTestRunner(t, dir)
	report, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 2, report.Ingest.Files)
	assert.Equal(t, 4, report.Ingest.RowsOK)
	assert.Empty(t, report.EnrichFail)

	ctx := context.Background()
	ledger, err := st.ReadAllRecords(ctx, domain.TableLedger)
	require.NoError(t, err)
	assert.Len(t, ledger, 4)

	qrecs, err := st.ReadAllRecords(ctx, domain.TableFailedQueue)
	require.NoError(t, err)
	byID := map[string]store.Record{}
	for _, rec := range qrecs {
		byID[rec["id"]] = rec
	}
	require.Len(t, byID, 2, "one failed row per bank")

	// The Banco General failure matched the canned enrichment record.
	entry := byID["CAPARE00123"]
	require.NotNil(t, entry)
	assert.Equal(t, "FAILED", entry["status"])
	assert.Equal(t, "1", entry["consecutive_failed_days"])
	assert.Equal(t, "recFAILED003", entry["airtable_record_id"])
	assert.Equal(t, "+50760000003", entry["airtable_phone_e164"])

	// The Banistmo failure has no contact match but a full queue entry.
	entry = byID["PAY-002"]
	require.NotNil(t, entry)
	assert.Equal(t, "2024-06-20", entry["first_failed_at"])
	assert.Empty(t, entry["airtable_record_id"])

	logs, err := st.ReadAllRecords(ctx, domain.TableIngestLog)
	require.NoError(t, err)
	assert.Len(t, logs, 2, "one ingest-log row per file")

	// Both files moved out of the raw area.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "processed", entries[0].Name())
}

func TestRunner_Run_EnrichmentFailureDoesNotFailRun(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "banistmo.csv"), []byte(
		"Pay ID,Amount,Estado\nPAY-001,10.00,Rechazada\n"), 0o644))

	runner, st := newTestRunner(t, dir)
	runner.joiner = enrich.NewJoiner(st, failingLookup{}, pipelineConfig().Airtable, nil)

	report, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, report.EnrichFail)

	// Ledger and queue are committed despite the enrichment outage.
	ledger, _ := st.ReadAllRecords(context.Background(), domain.TableLedger)
	assert.Len(t, ledger, 1)
	qrecs, _ := st.ReadAllRecords(context.Background(), domain.TableFailedQueue)
	assert.Len(t, qrecs, 1)
}

type failingLookup struct{}

func (failingLookup) LookupByKeys(context.Context, []string, enrich.Query) ([]enrich.Record, error) {
	return nil, context.DeadlineExceeded
}
