package queue

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/payrail/settlement-recon/internal/config"
	"github.com/payrail/settlement-recon/internal/domain"
	"github.com/payrail/settlement-recon/internal/logger"
	"github.com/payrail/settlement-recon/internal/mapper"
	"github.com/payrail/settlement-recon/internal/store"
)

// Result reports what one builder pass changed.
type Result struct {
	Processed int
	Inserted  int
	Updated   int
}

// Builder derives the failed-payments queue from the append-only ledger:
// latest row per reference wins, failing references get a streak-tracked
// entry, recovered references transition out without losing their history.
type Builder struct {
	store store.TabularStore
	cfg   config.Config
	now   func() time.Time
	loc   *time.Location
}

// NewBuilder creates a Builder. now is injectable so the day-gap arithmetic
// is testable; nil means wall clock, days compare in UTC.
func NewBuilder(st store.TabularStore, cfg config.Config, now func() time.Time) *Builder {
	if now == nil {
		now = time.Now
	}
	return &Builder{store: st, cfg: cfg, now: now, loc: time.UTC}
}

// ledgerEntry tracks the winning row per reference key during resolution.
type ledgerEntry struct {
	rec   store.Record
	ts    time.Time
	hasTS bool
}

// Build runs one reconciliation pass. An empty ledger or an all-green ledger
// is a normal no-op.
func (b *Builder) Build(ctx context.Context) (Result, error) {
	log := logger.FromContext(ctx)

	ledger, err := b.store.ReadAllRecords(ctx, domain.TableLedger)
	if err != nil {
		return Result{}, fmt.Errorf("failed queue: read ledger: %w", err)
	}
	if len(ledger) == 0 {
		log.Info().Msg("Ledger is empty, nothing to reconcile")
		return Result{}, nil
	}

	latest := resolveLatest(ledger)

	existing, err := b.store.ReadAllRecords(ctx, domain.TableFailedQueue)
	if err != nil {
		return Result{}, fmt.Errorf("failed queue: read queue: %w", err)
	}
	queueByID := make(map[string]store.Record, len(existing))
	for _, rec := range existing {
		if id := strings.TrimSpace(rec["id"]); id != "" {
			queueByID[id] = rec
		}
	}

	today := b.today()
	upserts := make(map[string]store.Record)

	// Currently failing references: upsert with refreshed audit fields.
	failing := 0
	for key, entry := range latest {
		if strings.ToUpper(entry.rec["status"]) != string(domain.StatusFailed) {
			continue
		}
		failing++
		upserts[key] = b.failedEntry(key, entry.rec, queueByID[key], today)
	}

	// Previously failing references no longer failing: transition out.
	for id, old := range queueByID {
		if _, stillFailing := upserts[id]; stillFailing {
			continue
		}
		if strings.ToUpper(old["status"]) != string(domain.StatusFailed) {
			continue
		}
		entry, ok := latest[id]
		if !ok {
			// No ledger signal for this key anymore; defer to a later run.
			continue
		}
		resolved, parsed := domain.ParseStatus(entry.rec["status"])
		if !parsed {
			resolved = domain.StatusSuccess
		}
		if resolved == domain.StatusFailed {
			// Timing edge: ledger still says FAILED, leave the entry alone.
			continue
		}
		upserts[id] = recoveredEntry(old, resolved)
	}

	if len(upserts) == 0 {
		if failing == 0 {
			log.Info().Msg("No FAILED rows in ledger, nothing to reconcile")
		}
		return Result{}, nil
	}

	records := make([]store.Record, 0, len(upserts))
	for _, rec := range upserts {
		records = append(records, rec)
	}
	res, err := b.store.UpsertByKey(ctx, domain.TableFailedQueue, domain.QueueColumns, "id", records)
	if err != nil {
		return Result{}, fmt.Errorf("failed queue: upsert: %w", err)
	}

	out := Result{Processed: len(records), Inserted: res.Inserted, Updated: res.Updated}
	log.Info().
		Int("processed", out.Processed).
		Int("inserted", out.Inserted).
		Int("updated", out.Updated).
		Msg("Failed queue rebuilt")
	return out, nil
}

// resolveLatest picks the most recent ledger row per reference key. Best
// available timestamp decides: status_ts, then processed_at, then file_date.
// A row with a usable timestamp beats one without; among timestamped rows a
// tie (new >= old) favors the later-encountered row, and among untimestamped
// rows the later-encountered row always wins.
func resolveLatest(ledger []store.Record) map[string]ledgerEntry {
	latest := make(map[string]ledgerEntry)
	for _, rec := range ledger {
		key := domain.QueueKey(rec)
		if key == "" {
			continue
		}
		ts, hasTS := bestTimestamp(rec)
		entry := ledgerEntry{rec: rec, ts: ts, hasTS: hasTS}

		old, seen := latest[key]
		switch {
		case !seen:
			latest[key] = entry
		case entry.hasTS && !old.hasTS:
			latest[key] = entry
		case !entry.hasTS && !old.hasTS:
			latest[key] = entry
		case entry.hasTS && old.hasTS && !entry.ts.Before(old.ts):
			latest[key] = entry
		}
	}
	return latest
}

func bestTimestamp(rec store.Record) (time.Time, bool) {
	for _, col := range []string{"status_ts", "processed_at", "file_date"} {
		if t, ok := parseWhen(rec[col]); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

var whenLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseWhen(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range whenLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (b *Builder) today() time.Time {
	t := b.now().In(b.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, b.loc)
}

// streak computes consecutive_failed_days: +1 on an exactly-one-day gap since
// the last failure, unchanged on a same-day repeat, reset to 1 otherwise.
func streak(old store.Record, today time.Time, loc *time.Location) int {
	last, ok := parseWhen(old["last_failed_at"])
	if !ok {
		return 1
	}
	last = last.In(loc)
	lastDay := time.Date(last.Year(), last.Month(), last.Day(), 0, 0, 0, 0, loc)
	gap := int(today.Sub(lastDay).Hours() / 24)

	current := 1
	if n, err := strconv.Atoi(strings.TrimSpace(old["consecutive_failed_days"])); err == nil && n > 0 {
		current = n
	}
	switch gap {
	case 0:
		return current
	case 1:
		return current + 1
	default:
		return 1
	}
}

// failedEntry builds the refreshed queue record for a currently failing
// reference, carrying enrichment and outreach fields forward untouched.
func (b *Builder) failedEntry(key string, src, old store.Record, today time.Time) store.Record {
	todayStr := today.Format("2006-01-02")

	amount := strings.TrimSpace(src["amount"])
	if d, err := mapper.ParseAmount(amount); err == nil {
		amount = mapper.FormatAmount(d)
	}
	currency := src["currency"]
	if currency == "" {
		currency = b.cfg.Defaults(src["source_bank"]).Currency
	}
	dueDate := src["due_date"]
	if dueDate == "" {
		dueDate = src["txn_date"]
	}

	rec := store.Record{}
	for _, col := range domain.QueueColumns {
		rec[col] = ""
	}
	rec["id"] = key
	rec["source_bank"] = src["source_bank"]
	rec["reference_id"] = src["reference_id"]
	rec["amount"] = amount
	rec["currency"] = currency
	rec["due_date"] = dueDate
	rec["customer_name"] = src["customer_name"]
	rec["concept"] = src["concept"]
	rec["error_desc"] = src["error_desc"]
	rec["lookup_key"] = src["lookup_key"]
	rec["status"] = string(domain.StatusFailed)

	rec["first_seen_at"] = orDefault(old["first_seen_at"], todayStr)
	rec["days_overdue"] = old["days_overdue"]
	rec["retry_count"] = orDefault(old["retry_count"], "0")
	rec["wa_status"] = orDefault(old["wa_status"], "PENDING")
	rec["wa_sent_at"] = old["wa_sent_at"]

	rec["first_failed_at"] = orDefault(old["first_failed_at"], todayStr)
	rec["last_failed_at"] = todayStr
	rec["consecutive_failed_days"] = strconv.Itoa(streak(old, today, b.loc))

	for _, col := range []string{
		"airtable_record_id", "airtable_phone_e164", "airtable_segment",
		"airtable_wa_template", "airtable_notes", "airtable_last_sync",
		"airtable_payload_json",
	} {
		rec[col] = old[col]
	}
	return rec
}

// recoveredEntry transitions an entry to its resolved non-failing status,
// zeroing the streak and keeping its history and enrichment intact.
func recoveredEntry(old store.Record, resolved domain.Status) store.Record {
	rec := store.Record{}
	for _, col := range domain.QueueColumns {
		rec[col] = old[col]
	}
	rec["status"] = string(resolved)
	rec["consecutive_failed_days"] = "0"
	return rec
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
