package build

import (
	"os"
	"path/filepath"
	"testing"

	"vnforge/internal/logging"
)

func TestCleanStagingRemovesOnlyStagingDirs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{".staging-123", ".staging-abc/nested", "web-1"} {
		if err := os.MkdirAll(filepath.Join(dir, name), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, ".staging-file"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	removed := cleanStaging(dir, logging.NewNop())
	if len(removed) != 2 {
		t.Fatalf("expected 2 removed, got %v", removed)
	}
	for _, name := range []string{"web-1", ".staging-file"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("%s should survive: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, ".staging-123")); !os.IsNotExist(err) {
		t.Fatalf("staging dir not removed: %v", err)
	}
}

func TestCleanStagingMissingDir(t *testing.T) {
	if removed := cleanStaging(filepath.Join(t.TempDir(), "missing"), logging.NewNop()); len(removed) != 0 {
		t.Fatalf("expected nothing removed, got %v", removed)
	}
}
