package consolidate

import (
	"crypto/md5"
	"encoding/base64"
	"strconv"
	"strings"
	"time"

	"github.com/payrail/settlement-recon/internal/config"
	"github.com/payrail/settlement-recon/internal/domain"
	"github.com/payrail/settlement-recon/internal/mapper"
	"github.com/payrail/settlement-recon/internal/store"
	"github.com/payrail/settlement-recon/internal/validate"
)

// InternalID derives the deterministic ledger row id from the
// (bank, file, row_number) triple: MD5 of "bank|file|row", base64, alphanumerics
// only, first 10 characters. Same triple, same id, across every run.
func InternalID(meta domain.RunMetadata) string {
	raw := strings.Join([]string{meta.SourceBank, meta.FileName, strconv.Itoa(meta.RowNumber)}, "|")
	sum := md5.Sum([]byte(raw))
	enc := base64.StdEncoding.EncodeToString(sum[:])
	var b strings.Builder
	for _, r := range enc {
		if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			if b.Len() == 10 {
				break
			}
		}
	}
	return b.String()
}

// Consolidator builds final ledger records out of canonical records, run
// metadata and validation verdicts.
type Consolidator struct {
	cfg         config.Config
	processedBy string
	now         func() time.Time
}

// New creates a Consolidator. processedBy is stamped into the audit column of
// every row it produces.
func New(cfg config.Config, processedBy string, now func() time.Time) *Consolidator {
	if now == nil {
		now = time.Now
	}
	return &Consolidator{cfg: cfg, processedBy: processedBy, now: now}
}

// Consolidate produces the header-keyed ledger record. Columns the source has
// no value for render as "" so the serialized row stays rectangular.
func (c *Consolidator) Consolidate(rec domain.CanonicalRecord, meta domain.RunMetadata, verdict validate.Verdict) store.Record {
	defaults := c.cfg.Defaults(meta.SourceBank)

	// Status fallback chain: bank-native signal through the normalizer, then
	// the mapped status, then the per-bank default, then PENDING.
	status := rec.Status
	if strings.TrimSpace(rec.StatusSource) != "" {
		status = domain.NormalizeStatus(rec.StatusSource)
	}
	if status == "" {
		if st, ok := domain.ParseStatus(defaults.Status); ok {
			status = st
		} else {
			status = domain.StatusPending
		}
	}

	currency := rec.Currency
	if currency == "" {
		currency = defaults.Currency
	}
	if currency == "" {
		currency = "USD"
	}

	lookupKey := strings.TrimSpace(rec.CompositeRef)
	if lookupKey == "" {
		lookupKey = rec.ReferenceID
	}

	out := store.Record{}
	for _, col := range domain.LedgerColumns {
		out[col] = ""
	}
	out["id"] = InternalID(meta)
	out["source_bank"] = meta.SourceBank
	out["file_name"] = meta.FileName
	out["file_date"] = meta.FileDate
	out["row_number"] = strconv.Itoa(meta.RowNumber)
	out["reference_id"] = rec.ReferenceID
	out["amount"] = mapper.FormatAmount(rec.Amount)
	out["currency"] = currency
	out["txn_date"] = rec.TxnDate
	out["due_date"] = rec.DueDate
	out["status"] = string(status)
	out["concept"] = rec.Concept
	out["error_desc"] = rec.ErrorDesc
	out["composite_ref"] = rec.CompositeRef
	out["customer_name"] = rec.CustomerName
	out["account_number"] = rec.AccountNumber
	out["bank_code"] = rec.BankCode
	out["product_type"] = rec.ProductType
	out["email"] = rec.Email
	out["validation_status"] = verdict.Status
	out["validation_errors"] = verdict.JoinedErrors()
	out["processed_at"] = c.now().UTC().Format(time.RFC3339)
	out["processed_by"] = c.processedBy
	out["lookup_key"] = lookupKey
	out["status_source"] = rec.StatusSource
	return out
}

// Row serializes a consolidated record into the canonical ledger column order.
func Row(rec store.Record) []string {
	return store.RowFromRecord(domain.LedgerColumns, rec)
}
