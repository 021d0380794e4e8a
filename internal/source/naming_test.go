package source

import (
	"os"
	"path/filepath"
	"testing"
)

func TestHasUniqueSuffix(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"2025-01-PLN-4821.csv", true},
		{"statement-1000.csv", true},
		{"2025-01-PLN.csv", false},
		{"statement-123.csv", false},
		{"statement-12345.csv", false},
		{"2025-01-PLN-4821", true},
	}
	for _, tt := range tests {
		if got := HasUniqueSuffix(tt.name); got != tt.want {
			t.Errorf("HasUniqueSuffix(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestSuffixedPath(t *testing.T) {
	got := SuffixedPath("/data/zen/2025/2025-01-PLN.csv")

	dir := filepath.Dir(got)
	if dir != "/data/zen/2025" {
		t.Fatalf("directory changed: %q", got)
	}
	base := filepath.Base(got)
	if !HasUniqueSuffix(base) {
		t.Fatalf("suffixed name %q does not match the suffix pattern", base)
	}
	if filepath.Ext(base) != ".csv" {
		t.Fatalf("extension lost: %q", base)
	}
}

func TestDiskRenamer_EnsureSuffix(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "2025-01-PLN.csv")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := DiskRenamer{}.EnsureSuffix(path)
	if err != nil {
		t.Fatalf("EnsureSuffix: %v", err)
	}
	if got == path {
		t.Fatal("path unchanged for a suffix-less file")
	}
	if _, err := os.Stat(got); err != nil {
		t.Fatalf("renamed file missing: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("original file still present after rename")
	}

	// A second call must be a no-op.
	again, err := DiskRenamer{}.EnsureSuffix(got)
	if err != nil {
		t.Fatalf("EnsureSuffix on suffixed file: %v", err)
	}
	if again != got {
		t.Fatalf("suffixed file renamed again: %q -> %q", got, again)
	}
}

func TestNopRenamer(t *testing.T) {
	got, err := NopRenamer{}.EnsureSuffix("/data/2025-01-PLN.csv")
	if err != nil || got != "/data/2025-01-PLN.csv" {
		t.Fatalf("NopRenamer = %q, %v", got, err)
	}
}
