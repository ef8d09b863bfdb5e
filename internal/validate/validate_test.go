package validate

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/payrail/settlement-recon/internal/domain"
)

func rec(ref string, amount string) domain.CanonicalRecord {
	d, _ := decimal.NewFromString(amount)
	return domain.CanonicalRecord{ReferenceID: ref, Amount: d}
}

func TestValidate(t *testing.T) {
	v := New()

	tests := []struct {
		name       string
		rec        domain.CanonicalRecord
		wantStatus string
		wantErrors []string
	}{
		{"clean record", rec("R1", "100.50"), StatusOK, nil},
		{"missing reference", rec("", "100"), StatusMissingFields, []string{CodeMissingReferenceID}},
		{"blank reference", rec("   ", "100"), StatusMissingFields, []string{CodeMissingReferenceID}},
		{"zero amount", rec("R1", "0"), StatusInvalidAmount, []string{CodeInvalidAmount}},
		{"negative amount", rec("R1", "-5"), StatusInvalidAmount, []string{CodeInvalidAmount}},
		{"both defects", rec("", "0"), StatusInvalidAmount, []string{CodeMissingReferenceID, CodeInvalidAmount}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := v.Validate(tt.rec)
			if got.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", got.Status, tt.wantStatus)
			}
			if len(got.Errors) != len(tt.wantErrors) {
				t.Fatalf("Errors = %v, want %v", got.Errors, tt.wantErrors)
			}
			for i := range tt.wantErrors {
				if got.Errors[i] != tt.wantErrors[i] {
					t.Errorf("Errors[%d] = %q, want %q", i, got.Errors[i], tt.wantErrors[i])
				}
			}
		})
	}
}

func TestVerdict_JoinedErrors(t *testing.T) {
	v := Verdict{Errors: []string{CodeMissingReferenceID, CodeInvalidAmount}}
	if got := v.JoinedErrors(); got != "MISSING_REFERENCE_ID|INVALID_AMOUNT" {
		t.Errorf("JoinedErrors = %q", got)
	}
	if got := (Verdict{}).JoinedErrors(); got != "" {
		t.Errorf("empty JoinedErrors = %q, want empty", got)
	}
}
