package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Status is one of the canonical settlement statuses every bank-native
// status signal is normalized into.
type Status string

const (
	StatusSuccess   Status = "SUCCESS"
	StatusFailed    Status = "FAILED"
	StatusPending   Status = "PENDING"
	StatusReversed  Status = "REVERSED"
	StatusCancelled Status = "CANCELLED"
)

// CanonicalRecord is the bank-agnostic shape a field mapper produces from
// one raw CSV row. ReferenceID and a positive Amount are mandatory; a mapper
// rejects the row before it can reach the ledger otherwise.
type CanonicalRecord struct {
	ReferenceID   string
	Amount        decimal.Decimal
	Currency      string
	TxnDate       string
	DueDate       string
	Status        Status
	StatusSource  string // raw bank-native status text, when the source carries one
	Concept       string
	CustomerName  string
	AccountNumber string
	BankCode      string
	ProductType   string
	Email         string
	CompositeRef  string // raw bank annotation, may encode the reference
	ErrorDesc     string
}

// RunMetadata identifies where a ledger row came from within a run.
type RunMetadata struct {
	SourceBank string
	FileName   string
	FileDate   string // yyyy-mm-dd
	RowNumber  int    // 1-based sheet position, header is row 1
}

// LedgerColumns is the fixed column order of the master ledger. Downstream
// readers depend on this order; never reorder.
var LedgerColumns = []string{
	"id", "source_bank", "file_name", "file_date", "row_number",
	"reference_id", "amount", "currency", "txn_date", "due_date", "status",
	"concept", "error_desc", "composite_ref", "user_ref", "txn_ref",
	"customer_name", "account_number", "bank_code", "product_type", "email",
	"validation_status", "validation_errors", "processed_at", "processed_by",
	"lookup_key", "phone_e164", "payment_link", "lang", "matched_in_db",
	"status_source", "status_ts",
}

// QueueColumns is the fixed column order of the failed-payments queue.
var QueueColumns = []string{
	"id", "source_bank", "reference_id", "amount", "currency", "due_date",
	"customer_name", "concept", "error_desc", "lookup_key", "status",
	"first_seen_at", "days_overdue", "retry_count", "wa_status", "wa_sent_at",
	"first_failed_at", "last_failed_at", "consecutive_failed_days",
	"airtable_record_id", "airtable_phone_e164", "airtable_segment",
	"airtable_wa_template", "airtable_notes", "airtable_last_sync",
	"airtable_payload_json",
}

// IngestLogColumns is the per-file ingestion summary schema.
var IngestLogColumns = []string{
	"file_name", "source_bank", "processed_at",
	"rows_total", "rows_ok", "rows_err", "rows_duplicate",
	"size_bytes",
	"success_count", "failed_count", "pending_count",
	"last_updated",
}

// LogColumns is the schema of the LOGS table mirror.
var LogColumns = []string{"ts", "level", "message", "meta"}

// Table names in the backing tabular store.
const (
	TableLedger      = "MASTER"
	TableFailedQueue = "FAILED_QUEUE"
	TableIngestLog   = "INGEST_LOG"
	TableLogs        = "LOGS"
)

// QueueKey derives the stable failed-queue key for a ledger record:
// reference_id, falling back to lookup_key, falling back to composite_ref.
func QueueKey(rec map[string]string) string {
	for _, col := range []string{"reference_id", "lookup_key", "composite_ref"} {
		if v := strings.TrimSpace(rec[col]); v != "" {
			return v
		}
	}
	return ""
}
