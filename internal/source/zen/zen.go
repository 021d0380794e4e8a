// Package zen reads Zen (ZEN.COM UAB) monthly CSV statements. Each file
// carries a header block (IBAN, currency, period, opening and closing
// balances) followed by a transaction table; one file exists per currency
// per month, organized under year subdirectories.
package zen

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dvloznov/ledger-import/internal/importer"
	"github.com/dvloznov/ledger-import/internal/logger"
	"github.com/dvloznov/ledger-import/internal/source"
)

// Name is the source type this package registers.
const Name = "zen"

func init() {
	source.Register(Name, func(cfg source.Config) (source.Source, error) {
		return New(cfg)
	})
}

// Source loads Zen statements from a directory tree.
type Source struct {
	dir      string
	accounts *importer.AccountMap
	renamer  source.Renamer
}

// New builds the source. The account map keys are IBAN_CURRENCY, e.g.
// "GB72TCCL04140411776433_PLN".
func New(cfg source.Config) (*Source, error) {
	accounts, err := importer.NewAccountMap(cfg.AccountMap, cfg.DefaultAccount)
	if err != nil {
		return nil, fmt.Errorf("zen.New: %w", err)
	}
	renamer := cfg.Renamer
	if renamer == nil {
		renamer = source.DiskRenamer{}
	}
	return &Source{dir: cfg.Directory, accounts: accounts, renamer: renamer}, nil
}

// Name implements source.Source.
func (s *Source) Name() string { return Name }

// Load implements source.Source. Unreadable or malformed files are logged
// and skipped; a statement problem never aborts the other files.
func (s *Source) Load(ctx context.Context) (importer.Batch, error) {
	log := logger.FromContext(ctx)

	paths, err := statementPaths(s.dir)
	if err != nil {
		return importer.Batch{}, fmt.Errorf("zen.Load: %w", err)
	}

	var observed []importer.Observed
	files := 0
	for _, path := range paths {
		path, err := s.renamer.EnsureSuffix(path)
		if err != nil {
			log.Warn().Err(err).Str("file", path).Msg("zen: keeping original filename")
		}

		stmt, err := readStatement(path)
		if err != nil {
			log.Warn().Err(err).Str("file", path).Msg("zen: skipping statement")
			continue
		}
		files++
		for _, txn := range stmt.Transactions {
			observed = append(observed, observe(stmt, txn))
		}
	}

	log.Info().Int("files", files).Int("transactions", len(observed)).Msg("zen: loaded statements")
	return importer.Batch{Kind: Name, Accounts: s.accounts, Observed: observed}, nil
}

func statementPaths(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".csv") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

func readStatement(path string) (*Statement, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseStatement(f, path)
}

// observe converts one statement row into the engine's normalized form.
// Exchange rows import like any other row: each side of a currency
// exchange lands in its own account's file with its own running balance,
// so both get their own entry with the offset left for categorization.
func observe(stmt *Statement, txn Transaction) importer.Observed {
	attrs := txn.attributes(stmt)

	payee := txn.Counterparty
	if payee == "" {
		payee = "Zen"
	}
	narration := txn.Type
	if narration == "" {
		narration = txn.Description
	}
	if narration == "" {
		narration = "Transaction"
	}

	return importer.Observed{
		Kind:         Name,
		Date:         txn.Date,
		Amount:       txn.Amount,
		Currency:     txn.Currency,
		BalanceAfter: txn.BalanceAfter,
		AccountID:    stmt.AccountID(),
		Payee:        payee,
		Narration:    narration,
		Attributes:   attrs,
		Source: importer.Provenance{
			File: stmt.Filename,
			Line: txn.Line,
		},
	}
}
