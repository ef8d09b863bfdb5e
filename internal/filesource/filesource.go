package filesource

import (
	"context"
	"time"
)

// File describes one raw export file waiting for ingestion.
type File struct {
	ID           string // backend handle: Drive file id, or a local path
	Name         string
	SizeBytes    int64
	LastModified time.Time
}

// Source lists and reads raw export files and retires them once processed.
type Source interface {
	// List returns the files in the raw area, optionally filtered by
	// extension (e.g. ".csv"; empty means everything).
	List(ctx context.Context, extension string) ([]File, error)

	// ReadAsText returns the file's full content.
	ReadAsText(ctx context.Context, f File) (string, error)

	// MoveToProcessed moves the file out of the raw area so the next run
	// doesn't pick it up again.
	MoveToProcessed(ctx context.Context, f File) error
}
