package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
)

// ledgerArchiveRow mirrors an appended ledger row into BigQuery for
// analytics. Unparseable optional values become NULL, never a failed insert.
type ledgerArchiveRow struct {
	ID               string                 `bigquery:"id"`
	SourceBank       string                 `bigquery:"source_bank"`
	FileName         string                 `bigquery:"file_name"`
	FileDate         bigquery.NullDate      `bigquery:"file_date"`
	RowNumber        bigquery.NullInt64     `bigquery:"row_number"`
	ReferenceID      string                 `bigquery:"reference_id"`
	Amount           bigquery.NullFloat64   `bigquery:"amount"`
	Currency         string                 `bigquery:"currency"`
	Status           string                 `bigquery:"status"`
	Concept          string                 `bigquery:"concept"`
	ErrorDesc        string                 `bigquery:"error_desc"`
	CustomerName     string                 `bigquery:"customer_name"`
	LookupKey        string                 `bigquery:"lookup_key"`
	ValidationStatus string                 `bigquery:"validation_status"`
	ProcessedAt      bigquery.NullTimestamp `bigquery:"processed_at"`
	ProcessedBy      string                 `bigquery:"processed_by"`
}

// BigQueryArchiver streams appended ledger rows into a BigQuery table. It is
// an optional mirror of the ledger, not a source of truth; the builder never
// reads from it.
type BigQueryArchiver struct {
	inserter *bigquery.Inserter
}

// NewBigQueryArchiver targets dataset.ledger in the given project.
func NewBigQueryArchiver(client *bigquery.Client, dataset string) *BigQueryArchiver {
	return &BigQueryArchiver{inserter: client.Dataset(dataset).Table("ledger").Inserter()}
}

// ArchiveRecords inserts header-keyed ledger records.
func (a *BigQueryArchiver) ArchiveRecords(ctx context.Context, recs []Record) error {
	if len(recs) == 0 {
		return nil
	}
	rows := make([]*ledgerArchiveRow, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, &ledgerArchiveRow{
			ID:               rec["id"],
			SourceBank:       rec["source_bank"],
			FileName:         rec["file_name"],
			FileDate:         nullDate(rec["file_date"]),
			RowNumber:        nullInt(rec["row_number"]),
			ReferenceID:      rec["reference_id"],
			Amount:           nullFloat(rec["amount"]),
			Currency:         rec["currency"],
			Status:           rec["status"],
			Concept:          rec["concept"],
			ErrorDesc:        rec["error_desc"],
			CustomerName:     rec["customer_name"],
			LookupKey:        rec["lookup_key"],
			ValidationStatus: rec["validation_status"],
			ProcessedAt:      nullTimestamp(rec["processed_at"]),
			ProcessedBy:      rec["processed_by"],
		})
	}
	if err := a.inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("bigquery archive: inserting %d rows: %w", len(rows), err)
	}
	return nil
}

func nullDate(s string) bigquery.NullDate {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return bigquery.NullDate{}
	}
	return bigquery.NullDate{Date: civil.DateOf(t), Valid: true}
}

func nullInt(s string) bigquery.NullInt64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return bigquery.NullInt64{}
	}
	return bigquery.NullInt64{Int64: n, Valid: true}
}

func nullFloat(s string) bigquery.NullFloat64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return bigquery.NullFloat64{}
	}
	return bigquery.NullFloat64{Float64: f, Valid: true}
}

func nullTimestamp(s string) bigquery.NullTimestamp {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return bigquery.NullTimestamp{}
	}
	return bigquery.NullTimestamp{Timestamp: t, Valid: true}
}
