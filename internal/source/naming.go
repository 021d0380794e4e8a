package source

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Statement filenames get a four-digit suffix before the extension, e.g.
// "2025-01-PLN-4821.csv". The suffix pins the file's identity: journal
// metadata links entries to the document by name, and a re-downloaded
// statement must not silently take over an already-imported file's name.

var suffixRe = regexp.MustCompile(`-\d{4}(\.[^.]+)?$`)

// HasUniqueSuffix reports whether a base filename already carries the
// four-digit suffix.
func HasUniqueSuffix(name string) bool {
	return suffixRe.MatchString(name)
}

// SuffixedPath returns path with a fresh four-digit suffix inserted before
// the extension. The digits are derived from a random UUID.
func SuffixedPath(path string) string {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	u := uuid.New()
	n := 1000 + binary.BigEndian.Uint32(u[:4])%9000
	return fmt.Sprintf("%s-%04d%s", stem, n, ext)
}

// Renamer decides what happens to statement files that lack the unique
// suffix. It is an explicit dependency of every source so the rename step
// is visible and replaceable rather than a hidden side effect of loading.
type Renamer interface {
	// EnsureSuffix returns the path the file should be read under. It may
	// rename the file on disk to get there.
	EnsureSuffix(path string) (string, error)
}

// DiskRenamer renames suffix-less files in place.
type DiskRenamer struct{}

func (DiskRenamer) EnsureSuffix(path string) (string, error) {
	if HasUniqueSuffix(filepath.Base(path)) {
		return path, nil
	}
	next := SuffixedPath(path)
	if err := os.Rename(path, next); err != nil {
		return path, fmt.Errorf("EnsureSuffix: %w", err)
	}
	return next, nil
}

// NopRenamer leaves files untouched. Used in tests and read-only runs.
type NopRenamer struct{}

func (NopRenamer) EnsureSuffix(path string) (string, error) { return path, nil }
