package filesource

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Local serves files from a directory. Used for development runs and tests;
// processed files move into a "processed" subdirectory.
type Local struct {
	dir string
}

// NewLocal creates a Local source rooted at dir.
func NewLocal(dir string) *Local {
	return &Local{dir: dir}
}

func (l *Local) List(_ context.Context, extension string) ([]File, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("local source: read dir %q: %w", l.dir, err)
	}
	var out []File
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if extension != "" && !strings.HasSuffix(strings.ToLower(e.Name()), strings.ToLower(extension)) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("local source: stat %q: %w", e.Name(), err)
		}
		out = append(out, File{
			ID:           filepath.Join(l.dir, e.Name()),
			Name:         e.Name(),
			SizeBytes:    info.Size(),
			LastModified: info.ModTime(),
		})
	}
	return out, nil
}

func (l *Local) ReadAsText(_ context.Context, f File) (string, error) {
	data, err := os.ReadFile(f.ID)
	if err != nil {
		return "", fmt.Errorf("local source: read %q: %w", f.ID, err)
	}
	return string(data), nil
}

func (l *Local) MoveToProcessed(_ context.Context, f File) error {
	processedDir := filepath.Join(l.dir, "processed")
	if err := os.MkdirAll(processedDir, 0o755); err != nil {
		return fmt.Errorf("local source: create processed dir: %w", err)
	}
	dest := filepath.Join(processedDir, f.Name)
	if err := os.Rename(f.ID, dest); err != nil {
		return fmt.Errorf("local source: move %q to processed: %w", f.Name, err)
	}
	return nil
}
