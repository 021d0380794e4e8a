// Package source defines statement sources: the collaborators that read a
// bank's statement files from disk and emit the normalized transactions the
// reconciliation engine consumes. Each bank lives in its own subpackage and
// registers a factory here; sources are selected by type name at runtime.
package source

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dvloznov/ledger-import/internal/importer"
)

// A Source reads one bank's statement files and produces the batch the
// engine reconciles. Load must be deterministic for unchanged files on
// disk: files are walked in sorted path order, rows in file order.
type Source interface {
	Name() string
	Load(ctx context.Context) (importer.Batch, error)
}

// Config is the common configuration every source is built from. Currency
// is only meaningful for sources whose statement format does not carry a
// currency column.
type Config struct {
	Type           string
	Directory      string
	AccountMap     map[string]string
	DefaultAccount string
	Currency       string

	// Renamer gives statement files their unique suffix during Load.
	// Nil means files are renamed on disk; tests inject NopRenamer.
	Renamer Renamer
}

// Factory builds a source from its configuration.
type Factory func(cfg Config) (Source, error)

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]Factory)
)

// Register makes a source type available to New. It is called from the
// init function of each source subpackage, so importing a subpackage is
// what enables its type.
func Register(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	if _, dup := factories[name]; dup {
		panic(fmt.Sprintf("source: Register called twice for %q", name))
	}
	factories[name] = f
}

// New builds a source from cfg, dispatching on cfg.Type.
func New(cfg Config) (Source, error) {
	factoriesMu.RLock()
	f, ok := factories[cfg.Type]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("New: unknown source type %q (registered: %v)", cfg.Type, Registered())
	}
	return f(cfg)
}

// Registered returns the registered source type names, sorted.
func Registered() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
