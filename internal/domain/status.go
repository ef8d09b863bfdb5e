package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Direct vocabulary seen in real bank exports (Spanish, lowercase, accent-folded).
var directStatus = map[string]Status{
	"ejecutada": StatusSuccess,
	"ejecutado": StatusSuccess,
	"ok":        StatusSuccess,
	"procesada": StatusSuccess,
	"procesado": StatusSuccess,
	"aplicada":  StatusSuccess,
	"aplicado":  StatusSuccess,
	"pagada":    StatusSuccess,
	"pagado":    StatusSuccess,
	"abonada":   StatusSuccess,
	"abonado":   StatusSuccess,
	"aprobada":  StatusSuccess,
	"aprobado":  StatusSuccess,
	"exitosa":   StatusSuccess,
	"exitoso":   StatusSuccess,

	"rechazada":    StatusFailed,
	"rechazo":      StatusFailed,
	"fallida":      StatusFailed,
	"fallido":      StatusFailed,
	"error":        StatusFailed,
	"no procesada": StatusFailed,
	"no procesado": StatusFailed,
	"devuelta":     StatusFailed,
	"devuelto":     StatusFailed,
	"negada":       StatusFailed,
	"anulada":      StatusFailed,

	"reversada": StatusReversed,
	"reversado": StatusReversed,
	"reverso":   StatusReversed,
	"cancelada": StatusCancelled,
	"cancelado": StatusCancelled,

	"pendiente":  StatusPending,
	"en proceso": StatusPending,
}

// Keyword groups checked by substring, in fixed priority order: success,
// failure, reversal, cancellation. The bare stem "proces" is deliberately not
// a success hint; "procesada" is covered by the direct table and phrases like
// "no procesada" must fall through to the failure group.
var (
	successHints = []string{"ejecut", "aplic", "pagad", "abonad", "aprob", "exitos", "realiz"}
	failHints    = []string{"rechaz", "fallid", "error", "no proces", "devuelt", "negad", "anul"}
)

var accentFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldStatus lowercases, strips accents and collapses whitespace.
func foldStatus(s string) string {
	folded, _, err := transform.String(accentFolder, strings.ToLower(s))
	if err != nil {
		folded = strings.ToLower(s)
	}
	return strings.Join(strings.Fields(folded), " ")
}

// NormalizeStatus maps a free-text bank status to a canonical Status. It never
// fails: unrecognized input is conservatively PENDING.
func NormalizeStatus(raw string) Status {
	s := foldStatus(raw)
	if s == "" {
		return StatusPending
	}
	if st, ok := directStatus[s]; ok {
		return st
	}
	for _, hint := range successHints {
		if strings.Contains(s, hint) {
			return StatusSuccess
		}
	}
	for _, hint := range failHints {
		if strings.Contains(s, hint) {
			return StatusFailed
		}
	}
	if strings.Contains(s, "revers") {
		return StatusReversed
	}
	if strings.Contains(s, "cancel") {
		return StatusCancelled
	}
	return StatusPending
}

// ParseStatus interprets a value already expected to be canonical, tolerating
// case differences and the legacy "PENDIENTE" literal. ok is false when the
// value is not a canonical status.
func ParseStatus(s string) (Status, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SUCCESS":
		return StatusSuccess, true
	case "FAILED":
		return StatusFailed, true
	case "PENDING", "PENDIENTE":
		return StatusPending, true
	case "REVERSED":
		return StatusReversed, true
	case "CANCELLED":
		return StatusCancelled, true
	}
	return "", false
}
