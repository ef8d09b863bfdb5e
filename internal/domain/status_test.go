package domain

import "testing"

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want Status
	}{
		{"Ejecutada", StatusSuccess},
		{"EJECUTADO", StatusSuccess},
		{"procesada", StatusSuccess},
		{"Aplicado", StatusSuccess},
		{"Transacción exitosa", StatusSuccess},
		{"pago realizado", StatusSuccess},

		{"Rechazada", StatusFailed},
		{"rechazo por fondos", StatusFailed},
		{"No procesada", StatusFailed},
		{"NO PROCESADO", StatusFailed},
		{"Devuelta", StatusFailed},
		{"error de cuenta", StatusFailed},
		{"Anulada", StatusFailed},

		{"Reversada", StatusReversed},
		{"reverso aplicado por banco", StatusSuccess}, // "aplicado" outranks "revers"
		{"transaccion reversa", StatusReversed},

		{"Cancelada", StatusCancelled},
		{"cancelacion", StatusCancelled},

		{"Pendiente", StatusPending},
		{"En proceso", StatusPending},
		{"", StatusPending},
		{"???", StatusPending},
		{"estado desconocido", StatusPending},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := NormalizeStatus(tt.raw); got != tt.want {
				t.Errorf("NormalizeStatus(%q) = %s, want %s", tt.raw, got, tt.want)
			}
		})
	}
}

// Accented and differently-spaced spellings fold to the same status.
func TestNormalizeStatus_Folding(t *testing.T) {
	tests := []struct {
		raw  string
		want Status
	}{
		{"Ejecutáda", StatusSuccess},
		{"  ejecutada  ", StatusSuccess},
		{"no   procesada", StatusFailed},
		{"RECHAZÓ", StatusFailed},
	}
	for _, tt := range tests {
		if got := NormalizeStatus(tt.raw); got != tt.want {
			t.Errorf("NormalizeStatus(%q) = %s, want %s", tt.raw, got, tt.want)
		}
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want Status
		ok   bool
	}{
		{"SUCCESS", StatusSuccess, true},
		{"failed", StatusFailed, true},
		{" Pending ", StatusPending, true},
		{"PENDIENTE", StatusPending, true},
		{"REVERSED", StatusReversed, true},
		{"CANCELLED", StatusCancelled, true},
		{"", "", false},
		{"EJECUTADA", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseStatus(tt.raw)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseStatus(%q) = (%s, %v), want (%s, %v)", tt.raw, got, ok, tt.want, tt.ok)
		}
	}
}

func TestQueueKey(t *testing.T) {
	tests := []struct {
		name string
		rec  map[string]string
		want string
	}{
		{"reference first", map[string]string{"reference_id": "R1", "lookup_key": "L1"}, "R1"},
		{"lookup fallback", map[string]string{"reference_id": " ", "lookup_key": "L1"}, "L1"},
		{"composite fallback", map[string]string{"composite_ref": "C1"}, "C1"},
		{"nothing", map[string]string{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := QueueKey(tt.rec); got != tt.want {
				t.Errorf("QueueKey = %q, want %q", got, tt.want)
			}
		})
	}
}
