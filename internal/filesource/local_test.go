package filesource

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLocal_ListFiltersByExtension(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.csv", "b.CSV", "c.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "subdir"), 0o755); err != nil {
		t.Fatal(err)
	}

	files, err := NewLocal(dir).List(context.Background(), ".csv")
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("got %d files, want the two csv files: %v", len(files), files)
	}
}

func TestLocal_ReadAndMove(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.csv"), []byte("h1,h2\n1,2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	src := NewLocal(dir)
	ctx := context.Background()
	files, err := src.List(ctx, ".csv")
	if err != nil || len(files) != 1 {
		t.Fatalf("List = %v, %v", files, err)
	}

	content, err := src.ReadAsText(ctx, files[0])
	if err != nil {
		t.Fatalf("ReadAsText error: %v", err)
	}
	if content != "h1,h2\n1,2\n" {
		t.Errorf("content = %q", content)
	}

	if err := src.MoveToProcessed(ctx, files[0]); err != nil {
		t.Fatalf("MoveToProcessed error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "processed", "a.csv")); err != nil {
		t.Errorf("processed copy missing: %v", err)
	}
	remaining, _ := src.List(ctx, ".csv")
	if len(remaining) != 0 {
		t.Errorf("raw area should be empty, got %v", remaining)
	}
}
