package importer

import "github.com/dvloznov/ledger-import/internal/ledger"

// Synthesize builds the pending journal transaction for an observed
// transaction: the resolved account carries the observed signed amount and
// the full attribute metadata (identifier first), the uncategorized
// account carries the exact negation. The two legs sum to zero by
// construction; that is a journal invariant, not a nicety.
func Synthesize(o Observed, account, uncategorized string) *ledger.Transaction {
	if uncategorized == "" {
		uncategorized = DefaultUncategorizedAccount
	}

	meta := make([]ledger.Meta, 0, len(o.Attributes)+1)
	meta = append(meta, ledger.Meta{Key: SourceRefKey, Value: Fingerprint(o)})
	meta = append(meta, o.Attributes...)

	amount := ledger.NewAmount(o.Amount, o.Currency)

	return &ledger.Transaction{
		Date:      o.Date,
		Flag:      ledger.FlagOkay,
		Payee:     o.Payee,
		Narration: o.Narration,
		Postings: []ledger.Posting{
			{Account: account, Amount: amount, Meta: meta},
			{Account: uncategorized, Amount: amount.Neg()},
		},
	}
}
