package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"google.golang.org/api/sheets/v4"

	"github.com/payrail/settlement-recon/internal/config"
	"github.com/payrail/settlement-recon/internal/domain"
	"github.com/payrail/settlement-recon/internal/logger"
	"github.com/payrail/settlement-recon/internal/store"
)

// Verifies the deployment can reach its spreadsheet and that every backing
// table accepts writes. Leaves marker rows behind; run it against a staging
// spreadsheet, not the production one.
func main() {
	log := logger.New()

	timeout := flag.Duration("timeout", 2*time.Minute, "overall check timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Configuration error")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	svc, err := sheets.NewService(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Sheets client")
	}
	st := store.NewSheets(svc, cfg.SpreadsheetID, log)

	for _, t := range []struct {
		name    string
		headers []string
	}{
		{domain.TableLedger, domain.LedgerColumns},
		{domain.TableFailedQueue, domain.QueueColumns},
		{domain.TableIngestLog, domain.IngestLogColumns},
		{domain.TableLogs, domain.LogColumns},
	} {
		if err := st.EnsureSchema(ctx, t.name, t.headers); err != nil {
			log.Fatal().Err(err).Str("table", t.name).Msg("Schema check failed")
		}
	}

	stamp := time.Now().UTC().Format(time.RFC3339)

	// Ledger round trip: append a marker row, read it back.
	marker := store.Record{
		"id":           "HEALTHCHECK",
		"source_bank":  "HEALTHCHECK",
		"file_name":    "healthcheck",
		"status":       string(domain.StatusPending),
		"processed_at": stamp,
	}
	row := store.RowFromRecord(domain.LedgerColumns, marker)
	if err := st.AppendRows(ctx, domain.TableLedger, [][]string{row}); err != nil {
		log.Fatal().Err(err).Msg("Ledger append failed")
	}
	recs, err := st.ReadAllRecords(ctx, domain.TableLedger)
	if err != nil {
		log.Fatal().Err(err).Msg("Ledger read failed")
	}
	found := false
	for _, rec := range recs {
		if rec["id"] == "HEALTHCHECK" && rec["processed_at"] == stamp {
			found = true
			break
		}
	}
	if !found {
		log.Fatal().Msg("Ledger round trip failed: marker row not found")
	}

	// Queue upsert: same marker twice must yield one insert then one update.
	qrec := store.Record{
		"id":             "HEALTHCHECK",
		"source_bank":    "HEALTHCHECK",
		"status":         string(domain.StatusFailed),
		"last_failed_at": stamp,
	}
	if _, err := st.UpsertByKey(ctx, domain.TableFailedQueue, domain.QueueColumns, "id", []store.Record{qrec}); err != nil {
		log.Fatal().Err(err).Msg("Queue upsert failed")
	}
	res, err := st.UpsertByKey(ctx, domain.TableFailedQueue, domain.QueueColumns, "id", []store.Record{qrec})
	if err != nil {
		log.Fatal().Err(err).Msg("Queue re-upsert failed")
	}
	if res.Updated != 1 || res.Inserted != 0 {
		log.Fatal().Int("inserted", res.Inserted).Int("updated", res.Updated).Msg("Queue upsert did not update in place")
	}

	log.Info().Str("spreadsheet", cfg.SpreadsheetID).Msg("All checks passed")
	fmt.Println("Healthcheck passed.")
}
