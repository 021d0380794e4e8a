package importer

import (
	"context"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/ledger-import/internal/ledger"
	"github.com/dvloznov/ledger-import/internal/logger"
)

// Batch is the output of one source: the transactions it observed plus the
// account mapping that ties them to journal accounts. Kind labels the source
// in logs and in fingerprint namespaces.
type Batch struct {
	Kind     string
	Accounts *AccountMap
	Observed []Observed
}

// Run reconciles every batch against the journal and returns the combined
// result: entries to append, references to flag and the id set each batch
// validated. Batches are independent; each one is indexed against its own
// accounts so sources never see each other's postings.
func Run(ctx context.Context, journal *ledger.Journal, batches []Batch, uncategorized string, today civil.Date) *Result {
	log := logger.FromContext(ctx)

	total := newResult()
	for _, batch := range batches {
		owned := batch.Accounts.LedgerAccounts()
		idx := BuildIndex(journal.Transactions, owned)

		res := Reconcile(idx, batch.Observed, batch.Accounts, uncategorized)
		res.Pending = append(res.Pending, BalanceCheckpoints(batch.Observed, batch.Accounts, today)...)

		log.Info().
			Str("source", batch.Kind).
			Int("observed", len(batch.Observed)).
			Int("indexed", len(idx)).
			Int("pending", len(res.Pending)).
			Int("invalid", len(res.Invalid)).
			Int("skipped_unmapped", res.SkippedUnmapped).
			Msg("reconciled batch")

		total.merge(res)
	}
	return total
}
