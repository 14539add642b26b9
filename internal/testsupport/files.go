package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"automerge/internal/library"
)

// WriteSnapshot writes snap as JSON under the config base directory and
// returns the file path.
func WriteSnapshot(t testing.TB, dir string, snap library.Snapshot) string {
	t.Helper()

	var buf bytes.Buffer
	if err := library.WriteSnapshot(&buf, snap); err != nil {
		t.Fatalf("encode snapshot: %v", err)
	}
	path := filepath.Join(dir, "snapshot.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
