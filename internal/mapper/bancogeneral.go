package mapper

import (
	"regexp"
	"strings"

	"github.com/payrail/settlement-recon/internal/config"
	"github.com/payrail/settlement-recon/internal/domain"
)

// References embedded in the Observaciones annotation: a CAPA prefix plus at
// least five alphanumerics, capped at 11 characters total.
var (
	bgReferencePattern = regexp.MustCompile(`CAPA[A-Z0-9]{5,}`)
	bgReferenceMaxLen  = 11
)

// BancoGeneral maps the Banco General settlement export. The reference is
// usually buried in the Observaciones annotation and the status follows the
// error-description rule: blank means SUCCESS, anything else FAILED.
type BancoGeneral struct {
	defaults config.BankDefaults
}

// NewBancoGeneral builds the Banco General mapper with per-bank defaults.
func NewBancoGeneral(defaults config.BankDefaults) *BancoGeneral {
	return &BancoGeneral{defaults: defaults}
}

func (m *BancoGeneral) Bank() string { return "BANCO_GENERAL" }

// extractReference pulls the reference token out of the annotation text.
func extractReference(annotation string) string {
	match := bgReferencePattern.FindString(strings.ToUpper(annotation))
	if match == "" {
		return ""
	}
	if len(match) > bgReferenceMaxLen {
		return match[:bgReferenceMaxLen]
	}
	return match
}

func (m *BancoGeneral) Map(raw map[string]string) (domain.CanonicalRecord, error) {
	compositeRef := pick(raw, "OBSERVACIONES", "Observaciones")
	errDesc := pick(raw, "DESCRIPCION DE ERROR", "Descripción de error", "Descripcion de error", "Descripcion Error")

	ref := pick(raw, "Referencia", "Ref", "Id")
	if ref == "" {
		ref = extractReference(compositeRef)
	}
	if ref == "" {
		return domain.CanonicalRecord{}, &MappingError{Field: "reference_id", Reason: "no reference column and none derivable from Observaciones"}
	}

	amount, err := ParseAmount(pick(raw, "MONTO", "Monto"))
	if err != nil {
		return domain.CanonicalRecord{}, &MappingError{Field: "amount", Reason: "not a number", Err: err}
	}

	status := domain.StatusSuccess
	if errDesc != "" {
		status = domain.StatusFailed
	}

	return domain.CanonicalRecord{
		ReferenceID:  ref,
		Amount:       amount,
		Currency:     m.defaults.Currency,
		TxnDate:      pick(raw, "FECHA", "Fecha"),
		Status:       status,
		Concept:      pick(raw, "ADDENDA", "Concepto"),
		CustomerName: pick(raw, "NOMBRE DEL BENEFICIARIO", "Cliente"),
		AccountNumber: pick(raw, "CUENTA"),
		BankCode:     "BANCO_GENERAL",
		CompositeRef: compositeRef,
		ErrorDesc:    errDesc,
	}, nil
}
