// Package pipeline wires one import run end to end: read the journal,
// load each configured statement source, reconcile every batch against the
// journal, and emit balance checkpoints. It owns the run sequencing; the
// reconciliation semantics live in the importer package.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/ledger-import/internal/config"
	"github.com/dvloznov/ledger-import/internal/importer"
	"github.com/dvloznov/ledger-import/internal/ledger"
	"github.com/dvloznov/ledger-import/internal/logger"
	"github.com/dvloznov/ledger-import/internal/source"
)

// Options adjust a single run.
type Options struct {
	// SourceFilter restricts the run to one source type. Empty runs all.
	SourceFilter string

	// Renamer overrides how statement files get their unique suffix.
	// Nil renames on disk.
	Renamer source.Renamer

	// Today overrides the current date, which decides the month balance
	// checkpoints stop at. Zero means the wall clock.
	Today civil.Date
}

// Run executes one reconciliation pass and returns its result. The
// journal and statement files are only read; nothing is written back.
func Run(ctx context.Context, cfg config.Config, opts Options) (*importer.Result, error) {
	log := logger.FromContext(ctx)

	journal, err := ledger.Read(cfg.Journal)
	if err != nil {
		return nil, fmt.Errorf("Run: reading journal: %w", err)
	}
	log.Info().
		Str("journal", cfg.Journal).
		Int("transactions", len(journal.Transactions)).
		Int("balances", len(journal.Balances)).
		Msg("journal loaded")

	batches, err := loadBatches(ctx, cfg, opts)
	if err != nil {
		return nil, fmt.Errorf("Run: %w", err)
	}

	today := opts.Today
	if today == (civil.Date{}) {
		today = civil.DateOf(time.Now())
	}

	return importer.Run(ctx, journal, batches, cfg.UncategorizedAccount, today), nil
}

func loadBatches(ctx context.Context, cfg config.Config, opts Options) ([]importer.Batch, error) {
	var batches []importer.Batch
	matched := false

	for _, sc := range cfg.Sources {
		if opts.SourceFilter != "" && sc.Type != opts.SourceFilter {
			continue
		}
		matched = true

		src, err := source.New(source.Config{
			Type:           sc.Type,
			Directory:      sc.Directory,
			AccountMap:     sc.AccountMap,
			DefaultAccount: sc.DefaultAccount,
			Currency:       sc.Currency,
			Renamer:        opts.Renamer,
		})
		if err != nil {
			return nil, fmt.Errorf("loadBatches: building source %q: %w", sc.Type, err)
		}

		batch, err := src.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("loadBatches: loading source %q: %w", sc.Type, err)
		}
		batches = append(batches, batch)
	}

	if opts.SourceFilter != "" && !matched {
		return nil, fmt.Errorf("loadBatches: no configured source of type %q", opts.SourceFilter)
	}
	return batches, nil
}
