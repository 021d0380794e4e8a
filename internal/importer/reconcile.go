package importer

import (
	"sort"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/ledger-import/internal/ledger"
)

// PendingEntry is a synthesized directive awaiting human review. Source is
// the statement position it came from; it is zero for balance assertions,
// which summarize a whole period.
type PendingEntry struct {
	Date   civil.Date
	Entry  ledger.Directive
	Source Provenance
}

// InvalidReference reports an identifier whose journal state disagrees
// with the current statements. Count is the number of postings requiring
// attention: for duplicates, every posting beyond the first; for stale
// identifiers, all of them.
type InvalidReference struct {
	ID    string
	Count int
	Refs  []PostingRef
	Stale bool
}

// Result accumulates everything one reconciliation pass produced. Nothing
// in it is persisted by the engine; the review layer decides what becomes
// permanent.
type Result struct {
	Pending []PendingEntry
	Invalid []InvalidReference

	// ValidIDs holds every identifier the current statements produce,
	// including ones that were skipped as unmapped. Identifiers in the
	// journal but absent here are stale.
	ValidIDs map[string]bool

	// SkippedUnmapped counts transactions dropped because their account
	// id resolved to no journal account. Dropping is deliberate and
	// countable, never silent.
	SkippedUnmapped int
}

func newResult() *Result {
	return &Result{ValidIDs: make(map[string]bool)}
}

func (r *Result) merge(other *Result) {
	r.Pending = append(r.Pending, other.Pending...)
	r.Invalid = append(r.Invalid, other.Invalid...)
	r.SkippedUnmapped += other.SkippedUnmapped
	for id := range other.ValidIDs {
		r.ValidIDs[id] = true
	}
}

// Reconcile runs one pass over the observed transactions of a single
// source against the journal index for that source's accounts.
//
// For each observed transaction its identifier is computed and remembered
// as valid, then looked up in the index: absent means new (a pending entry
// is synthesized), exactly one posting means already imported (no action),
// several postings mean a duplicate import (reported, never auto-fixed;
// deleting a human's journal entry is not this engine's call). Afterwards
// every indexed identifier the statements no longer produce is reported
// stale.
//
// The pass is idempotent: re-running it against an unchanged journal and
// unchanged statements stages nothing and, once the first run's entries
// are committed, reports nothing.
func Reconcile(index Index, observed []Observed, accounts *AccountMap, uncategorized string) *Result {
	res := newResult()

	for _, o := range observed {
		id := Fingerprint(o)
		res.ValidIDs[id] = true

		refs, found := index[id]
		if found {
			if len(refs) > 1 {
				res.Invalid = append(res.Invalid, InvalidReference{
					ID:    id,
					Count: len(refs) - 1,
					Refs:  refs,
				})
			}
			continue
		}

		account, ok := accounts.Resolve(o.AccountID)
		if !ok {
			res.SkippedUnmapped++
			continue
		}
		res.Pending = append(res.Pending, PendingEntry{
			Date:   o.Date,
			Entry:  Synthesize(o, account, uncategorized),
			Source: o.Source,
		})
	}

	// Stale pass, sorted so diagnostics are reproducible across runs.
	staleIDs := make([]string, 0)
	for id := range index {
		if !res.ValidIDs[id] {
			staleIDs = append(staleIDs, id)
		}
	}
	sort.Strings(staleIDs)
	for _, id := range staleIDs {
		refs := index[id]
		res.Invalid = append(res.Invalid, InvalidReference{
			ID:    id,
			Count: len(refs),
			Refs:  refs,
			Stale: true,
		})
	}

	return res
}
