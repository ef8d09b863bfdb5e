package ingest

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/payrail/settlement-recon/internal/consolidate"
	"github.com/payrail/settlement-recon/internal/domain"
	"github.com/payrail/settlement-recon/internal/filesource"
	"github.com/payrail/settlement-recon/internal/logger"
	"github.com/payrail/settlement-recon/internal/mapper"
	"github.com/payrail/settlement-recon/internal/store"
	"github.com/payrail/settlement-recon/internal/validate"
)

// LedgerMirror receives a copy of every appended ledger record (e.g. the
// BigQuery archive). Mirror failures are logged, never fatal.
type LedgerMirror interface {
	ArchiveRecords(ctx context.Context, recs []store.Record) error
}

// FileArchiver keeps a copy of raw file bytes (e.g. in a GCS bucket).
type FileArchiver interface {
	Archive(ctx context.Context, sourceBank, fileName string, content []byte) error
}

// Summary aggregates one adapter run across all of its files.
type Summary struct {
	Files         int
	RowsTotal     int
	RowsOK        int
	RowsErr       int
	RowsDuplicate int
	SuccessCount  int
	FailedCount   int
	PendingCount  int
}

// Adapter ingests one bank's export files end to end: file -> rows -> map ->
// validate -> consolidate -> ledger append -> ingest-log record.
type Adapter struct {
	mapper       mapper.Mapper
	validator    *validate.Validator
	consolidator *consolidate.Consolidator
	source       filesource.Source
	store        store.TabularStore
	namePattern  *regexp.Regexp

	mirror       LedgerMirror
	fileArchiver FileArchiver
	now          func() time.Time
}

// NewAdapter wires the required collaborators. namePattern limits which files
// in the shared raw folder belong to this bank; nil processes everything.
func NewAdapter(m mapper.Mapper, v *validate.Validator, c *consolidate.Consolidator, src filesource.Source, st store.TabularStore, namePattern *regexp.Regexp) *Adapter {
	return &Adapter{
		mapper:       m,
		validator:    v,
		consolidator: c,
		source:       src,
		store:        st,
		namePattern:  namePattern,
		now:          time.Now,
	}
}

// WithLedgerMirror adds an optional analytics mirror for appended rows.
func (a *Adapter) WithLedgerMirror(m LedgerMirror) *Adapter {
	a.mirror = m
	return a
}

// WithFileArchiver adds optional raw-file archival.
func (a *Adapter) WithFileArchiver(fa FileArchiver) *Adapter {
	a.fileArchiver = fa
	return a
}

// WithClock overrides the time source (tests).
func (a *Adapter) WithClock(now func() time.Time) *Adapter {
	a.now = now
	return a
}

// IngestAll processes every matching CSV in the raw area. One bad row never
// aborts a file and one bad file never aborts the run; only store failures
// propagate. Every file is moved to the processed area no matter what.
func (a *Adapter) IngestAll(ctx context.Context) (Summary, error) {
	log := logger.FromContext(ctx).With().Str("bank", a.mapper.Bank()).Logger()

	files, err := a.source.List(ctx, ".csv")
	if err != nil {
		return Summary{}, fmt.Errorf("ingest %s: list raw files: %w", a.mapper.Bank(), err)
	}

	var totals Summary
	for _, f := range files {
		if a.namePattern != nil && !a.namePattern.MatchString(f.Name) {
			continue
		}
		totals.Files++
		log.Info().Str("file", f.Name).Str("file_id", f.ID).Int64("size_bytes", f.SizeBytes).Msg("Processing file")

		fileSummary, storeErr := a.ingestFile(ctx, log, f)
		totals.RowsTotal += fileSummary.RowsTotal
		totals.RowsOK += fileSummary.RowsOK
		totals.RowsErr += fileSummary.RowsErr
		totals.RowsDuplicate += fileSummary.RowsDuplicate
		totals.SuccessCount += fileSummary.SuccessCount
		totals.FailedCount += fileSummary.FailedCount
		totals.PendingCount += fileSummary.PendingCount
		if storeErr != nil {
			return totals, storeErr
		}
	}

	log.Info().
		Int("files", totals.Files).
		Int("rows_total", totals.RowsTotal).
		Int("rows_ok", totals.RowsOK).
		Int("rows_err", totals.RowsErr).
		Msg("Ingestion finished")
	return totals, nil
}

// ingestFile handles one file. The returned error is store-level only; every
// other failure is logged and swallowed here.
func (a *Adapter) ingestFile(ctx context.Context, log zerolog.Logger, f filesource.File) (summary Summary, storeErr error) {
	defer func() {
		if err := a.source.MoveToProcessed(ctx, f); err != nil {
			log.Error().Err(err).Str("file", f.Name).Msg("Failed to move file to processed")
		}
	}()

	content, err := a.source.ReadAsText(ctx, f)
	if err != nil {
		log.Error().Err(err).Str("file", f.Name).Msg("Failed to read file, skipping")
		return summary, nil
	}

	if a.fileArchiver != nil {
		if err := a.fileArchiver.Archive(ctx, a.mapper.Bank(), f.Name, []byte(content)); err != nil {
			log.Warn().Err(err).Str("file", f.Name).Msg("Raw-file archive failed")
		}
	}

	rows := ParseFlexible(content)
	if len(rows) == 0 {
		log.Warn().Str("file", f.Name).Msg("File has no parsable rows")
		return summary, a.writeIngestLog(ctx, f, summary)
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}
	dataRows := rows[1:]
	summary.RowsTotal = len(dataRows)

	fileDate := f.LastModified.Format("2006-01-02")
	seenRefs := make(map[string]bool, len(dataRows))
	var buffer []store.Record

	for idx, row := range dataRows {
		sheetRow := idx + 2 // 1-based, header is row 1
		raw := rowToMap(header, row)

		rec, err := a.mapper.Map(raw)
		if err != nil {
			summary.RowsErr++
			log.Warn().Err(err).Str("file", f.Name).Int("row", sheetRow).Msg("Row rejected")
			continue
		}

		switch rec.Status {
		case domain.StatusSuccess:
			summary.SuccessCount++
		case domain.StatusFailed:
			summary.FailedCount++
		default:
			summary.PendingCount++
		}
		if seenRefs[rec.ReferenceID] {
			summary.RowsDuplicate++
		}
		seenRefs[rec.ReferenceID] = true

		meta := domain.RunMetadata{
			SourceBank: a.mapper.Bank(),
			FileName:   f.Name,
			FileDate:   fileDate,
			RowNumber:  sheetRow,
		}
		verdict := a.validator.Validate(rec)
		buffer = append(buffer, a.consolidator.Consolidate(rec, meta, verdict))
		summary.RowsOK++
	}

	if len(buffer) > 0 {
		ledgerRows := make([][]string, len(buffer))
		for i, rec := range buffer {
			ledgerRows[i] = consolidate.Row(rec)
		}
		if err := a.store.AppendRows(ctx, domain.TableLedger, ledgerRows); err != nil {
			return summary, fmt.Errorf("ingest %s: append to ledger: %w", a.mapper.Bank(), err)
		}
		if a.mirror != nil {
			if err := a.mirror.ArchiveRecords(ctx, buffer); err != nil {
				log.Warn().Err(err).Str("file", f.Name).Msg("Ledger mirror failed")
			}
		}
	}

	return summary, a.writeIngestLog(ctx, f, summary)
}

// writeIngestLog records the per-file summary, also for empty files.
func (a *Adapter) writeIngestLog(ctx context.Context, f filesource.File, s Summary) error {
	rec := store.Record{
		"file_name":      f.Name,
		"source_bank":    a.mapper.Bank(),
		"processed_at":   a.now().UTC().Format(time.RFC3339),
		"rows_total":     strconv.Itoa(s.RowsTotal),
		"rows_ok":        strconv.Itoa(s.RowsOK),
		"rows_err":       strconv.Itoa(s.RowsErr),
		"rows_duplicate": strconv.Itoa(s.RowsDuplicate),
		"size_bytes":     strconv.FormatInt(f.SizeBytes, 10),
		"success_count":  strconv.Itoa(s.SuccessCount),
		"failed_count":   strconv.Itoa(s.FailedCount),
		"pending_count":  strconv.Itoa(s.PendingCount),
		"last_updated":   f.LastModified.UTC().Format(time.RFC3339),
	}
	row := store.RowFromRecord(domain.IngestLogColumns, rec)
	if err := a.store.AppendRows(ctx, domain.TableIngestLog, [][]string{row}); err != nil {
		return fmt.Errorf("ingest %s: write ingest log for %q: %w", a.mapper.Bank(), f.Name, err)
	}
	return nil
}
