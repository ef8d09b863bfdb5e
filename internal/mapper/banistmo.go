package mapper

import (
	"github.com/payrail/settlement-recon/internal/config"
	"github.com/payrail/settlement-recon/internal/domain"
)

// Columns Banistmo exports have carried the status text under, in the order
// they are probed.
var banistmoStatusColumns = []string{
	"Status",
	"Resultado de la Transacción",
	"Resultado de la Transaccion",
	"Estado",
	"Estatus",
	"Resultado",
	"Transaction Result",
}

// Banistmo maps the Banistmo settlement export. The reference comes from an
// explicit Pay ID column and the status from free-text classification.
type Banistmo struct {
	defaults config.BankDefaults
}

// NewBanistmo builds the Banistmo mapper with per-bank defaults.
func NewBanistmo(defaults config.BankDefaults) *Banistmo {
	return &Banistmo{defaults: defaults}
}

func (m *Banistmo) Bank() string { return "BANISTMO" }

func (m *Banistmo) Map(raw map[string]string) (domain.CanonicalRecord, error) {
	ref := pick(raw, "Pay ID", "Referencia de Pago")
	if ref == "" {
		return domain.CanonicalRecord{}, &MappingError{Field: "reference_id", Reason: "Pay ID is empty"}
	}

	amountText := pick(raw, "Monto de Transacción", "Amount")
	amount, err := ParseAmount(amountText)
	if err != nil {
		return domain.CanonicalRecord{}, &MappingError{Field: "amount", Reason: "not a number", Err: err}
	}

	statusSource := pick(raw, banistmoStatusColumns...)
	status := domain.NormalizeStatus(statusSource)
	if statusSource == "" {
		if st, ok := domain.ParseStatus(m.defaults.Status); ok {
			status = st
		}
	}

	currency := pick(raw, "Moneda")
	if currency == "" {
		currency = m.defaults.Currency
	}

	return domain.CanonicalRecord{
		ReferenceID:   ref,
		Amount:        amount,
		Currency:      currency,
		TxnDate:       pick(raw, "Fecha", "Fecha de Transacción"),
		Status:        status,
		StatusSource:  statusSource,
		Concept:       pick(raw, "Descripción de la Transacción", "Concepto"),
		CustomerName:  pick(raw, "Nombre del Beneficiario", "Cliente"),
		AccountNumber: pick(raw, "Número de Cuenta Beneficiario"),
		BankCode:      pick(raw, "Banco Beneficiario"),
		ProductType:   pick(raw, "Producto Beneficiario"),
		Email:         pick(raw, "Email del Beneficiario"),
	}, nil
}
