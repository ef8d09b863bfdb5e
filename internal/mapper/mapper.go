package mapper

import (
	"errors"
	"fmt"
	"strings"

	"github.com/payrail/settlement-recon/internal/domain"
)

// Mapper turns one raw CSV row (column name -> cell text) into a canonical
// record. Each bank gets its own implementation.
type Mapper interface {
	Bank() string
	Map(raw map[string]string) (domain.CanonicalRecord, error)
}

// MappingError marks a row that cannot produce a valid canonical record.
// The ingestion adapter skips the row and keeps going.
type MappingError struct {
	Field  string
	Reason string
	Err    error
}

func (e *MappingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("mapping %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("mapping %s: %s", e.Field, e.Reason)
}

func (e *MappingError) Unwrap() error { return e.Err }

// IsMappingError reports whether err is (or wraps) a MappingError.
func IsMappingError(err error) bool {
	var me *MappingError
	return errors.As(err, &me)
}

// pick returns the first non-blank value among the candidate columns.
func pick(raw map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(raw[k]); v != "" {
			return v
		}
	}
	return ""
}
