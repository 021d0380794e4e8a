package importer

import "github.com/dvloznov/ledger-import/internal/ledger"

// PostingRef points at an existing journal posting together with the
// transaction that contains it.
type PostingRef struct {
	Txn     *ledger.Transaction
	Posting *ledger.Posting
}

// Index maps identifiers already recorded in the journal to the postings
// carrying them. An identifier legitimately maps to zero or one posting;
// more than one is a duplicate-import symptom, kept here untouched and
// reported by the reconciler rather than filtered.
type Index map[string][]PostingRef

// BuildIndex scans journal transactions for postings whose account is in
// the owned set and whose metadata carries an identifier under
// SourceRefKey. The scan is read-only.
func BuildIndex(txns []*ledger.Transaction, owned map[string]bool) Index {
	idx := make(Index)
	for _, txn := range txns {
		for i := range txn.Postings {
			p := &txn.Postings[i]
			if !owned[p.Account] {
				continue
			}
			ref := ledger.MetaValue(p.Meta, SourceRefKey)
			if ref == "" {
				continue
			}
			idx[ref] = append(idx[ref], PostingRef{Txn: txn, Posting: p})
		}
	}
	return idx
}
