package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/payrail/settlement-recon/internal/config"
	"github.com/payrail/settlement-recon/internal/domain"
	"github.com/payrail/settlement-recon/internal/enrich"
	"github.com/payrail/settlement-recon/internal/filesource"
	"github.com/payrail/settlement-recon/internal/ingest"
	"github.com/payrail/settlement-recon/internal/logger"
	"github.com/payrail/settlement-recon/internal/queue"
	"github.com/payrail/settlement-recon/internal/store"
)

// Report aggregates one full pipeline run.
type Report struct {
	RunID      string
	Ingest     ingest.Summary
	Queue      queue.Result
	Enrich     enrich.Result
	EnrichFail string // non-empty when enrichment aborted; the run still counts
}

// Runner executes the full settlement cycle in order: ensure schemas, ingest
// every bank's raw files, rebuild the failed queue, enrich it. Stages are
// isolated so an enrichment outage never loses ingested rows.
type Runner struct {
	store    store.TabularStore
	source   filesource.Source
	adapters []*ingest.Adapter
	builder  *queue.Builder
	joiner   *enrich.Joiner
	cfg      config.Config
}

// NewRunner wires the pipeline. joiner may be nil when enrichment is not
// configured for this deployment.
func NewRunner(st store.TabularStore, src filesource.Source, adapters []*ingest.Adapter, builder *queue.Builder, joiner *enrich.Joiner, cfg config.Config) *Runner {
	return &Runner{
		store:    st,
		source:   src,
		adapters: adapters,
		builder:  builder,
		joiner:   joiner,
		cfg:      cfg,
	}
}

// Setup creates the backing tables and writes their header rows. Safe to run
// repeatedly; existing tables are left alone.
func (r *Runner) Setup(ctx context.Context) error {
	log := logger.FromContext(ctx)

	tables := []struct {
		name    string
		headers []string
	}{
		{domain.TableLedger, domain.LedgerColumns},
		{domain.TableFailedQueue, domain.QueueColumns},
		{domain.TableIngestLog, domain.IngestLogColumns},
	}
	if r.cfg.WriteLogTable {
		tables = append(tables, struct {
			name    string
			headers []string
		}{domain.TableLogs, domain.LogColumns})
	}

	for _, t := range tables {
		if err := r.store.EnsureSchema(ctx, t.name, t.headers); err != nil {
			return fmt.Errorf("pipeline setup: table %s: %w", t.name, err)
		}
		log.Debug().Str("table", t.name).Int("columns", len(t.headers)).Msg("Schema ensured")
	}
	log.Info().Int("tables", len(tables)).Msg("Setup complete")
	return nil
}

// Run executes one full cycle. Store failures abort the run; an enrichment
// failure is recorded on the report and the run still succeeds.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	runID := uuid.NewString()
	log := logger.FromContext(ctx).With().Str("run_id", runID).Logger()
	ctx = logger.WithContext(ctx, log)

	report := Report{RunID: runID}
	log.Info().Msg("Pipeline run starting")

	if err := r.Setup(ctx); err != nil {
		return report, err
	}
	r.scanRaw(ctx)

	for _, a := range r.adapters {
		s, err := a.IngestAll(ctx)
		report.Ingest.Files += s.Files
		report.Ingest.RowsTotal += s.RowsTotal
		report.Ingest.RowsOK += s.RowsOK
		report.Ingest.RowsErr += s.RowsErr
		report.Ingest.RowsDuplicate += s.RowsDuplicate
		report.Ingest.SuccessCount += s.SuccessCount
		report.Ingest.FailedCount += s.FailedCount
		report.Ingest.PendingCount += s.PendingCount
		if err != nil {
			return report, err
		}
	}

	qres, err := r.builder.Build(ctx)
	if err != nil {
		return report, err
	}
	report.Queue = qres

	if r.joiner != nil {
		eres, err := r.joiner.Enrich(ctx)
		if err != nil {
			report.EnrichFail = err.Error()
			log.Error().Err(err).Msg("Enrichment aborted, ledger and queue are already committed")
		} else {
			report.Enrich = eres
		}
	}

	log.Info().
		Int("files", report.Ingest.Files).
		Int("rows_ok", report.Ingest.RowsOK).
		Int("rows_err", report.Ingest.RowsErr).
		Int("queue_upserts", report.Queue.Processed).
		Int("enriched", report.Enrich.Matched).
		Msg("Pipeline run finished")
	return report, nil
}

// scanRaw logs what is waiting in the raw area before any adapter runs. A
// listing failure here is not fatal; the adapters will report their own.
func (r *Runner) scanRaw(ctx context.Context) {
	log := logger.FromContext(ctx)
	files, err := r.source.List(ctx, ".csv")
	if err != nil {
		log.Warn().Err(err).Msg("Raw folder preflight scan failed")
		return
	}
	for _, f := range files {
		log.Debug().Str("file", f.Name).Int64("size_bytes", f.SizeBytes).Msg("Raw file waiting")
	}
	log.Info().Int("files", len(files)).Msg("Raw folder scanned")
}
