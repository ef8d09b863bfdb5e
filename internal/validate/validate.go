package validate

import (
	"strings"

	"github.com/payrail/settlement-recon/internal/domain"
)

// Defect codes, in check order.
const (
	CodeMissingReferenceID = "MISSING_REFERENCE_ID"
	CodeInvalidAmount      = "INVALID_AMOUNT"
)

// Summary statuses.
const (
	StatusOK            = "OK"
	StatusInvalidAmount = CodeInvalidAmount
	StatusMissingFields = "MISSING_FIELDS"
)

// Verdict is a non-fatal validation result. Defective rows still reach the
// ledger, carrying their defect codes in the audit columns.
type Verdict struct {
	Status string
	Errors []string
}

// JoinedErrors renders the ordered defect list for the pipe-joined audit column.
func (v Verdict) JoinedErrors() string {
	return strings.Join(v.Errors, "|")
}

// Validator checks canonical records. It is a required collaborator of every
// ingestion adapter; construct it explicitly, there is no optional probing.
type Validator struct{}

// New creates a Validator.
func New() *Validator {
	return &Validator{}
}

// Validate never fails; it returns a verdict. INVALID_AMOUNT outranks
// MISSING_FIELDS as the summary status when both kinds of defect are present.
func (v *Validator) Validate(rec domain.CanonicalRecord) Verdict {
	var errs []string
	if strings.TrimSpace(rec.ReferenceID) == "" {
		errs = append(errs, CodeMissingReferenceID)
	}
	if rec.Amount.Sign() <= 0 {
		errs = append(errs, CodeInvalidAmount)
	}

	if len(errs) == 0 {
		return Verdict{Status: StatusOK}
	}
	status := StatusMissingFields
	for _, e := range errs {
		if e == CodeInvalidAmount {
			status = StatusInvalidAmount
			break
		}
	}
	return Verdict{Status: status, Errors: errs}
}
