//go:build linux

package source

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadFanSpeedsFrom(t *testing.T) {
	root := t.TempDir()
	chip := filepath.Join(root, "hwmon0")
	if err := os.MkdirAll(chip, 0o755); err != nil {
		t.Fatal(err)
	}
	write := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(chip, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("fan1_input", "1200\n")
	write("fan2_input", "1150\n")
	write("fan3_input", "garbage\n")
	write("temp1_input", "45000\n")

	speeds := readFanSpeedsFrom(root)
	if len(speeds) != 2 {
		t.Fatalf("got %d fan readings, want 2: %v", len(speeds), speeds)
	}
	if speeds[0] != 1200 || speeds[1] != 1150 {
		t.Errorf("speeds = %v, want [1200 1150]", speeds)
	}
}

func TestReadFanSpeedsFromMissingRoot(t *testing.T) {
	if got := readFanSpeedsFrom(filepath.Join(t.TempDir(), "absent")); got != nil {
		t.Errorf("missing root yielded %v", got)
	}
}
