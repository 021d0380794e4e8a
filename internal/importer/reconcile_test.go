package importer

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/ledger-import/internal/ledger"
)

func testAccounts(t *testing.T) *AccountMap {
	t.Helper()
	m, err := NewAccountMap(map[string]string{
		"GB72TCCL04140411776433_PLN": "Assets:Zen:PLN",
	}, "")
	if err != nil {
		t.Fatalf("NewAccountMap: %v", err)
	}
	return m
}

func importedTxn(o Observed, account string) *ledger.Transaction {
	return Synthesize(o, account, "")
}

func TestReconcile_NewTransactions(t *testing.T) {
	accounts := testAccounts(t)
	observed := []Observed{observedFixture()}

	second := observedFixture()
	second.Date.Day = 3
	second.Amount = decimal.RequireFromString("-8.50")
	second.BalanceAfter = decimal.RequireFromString("735.78")
	observed = append(observed, second)

	res := Reconcile(Index{}, observed, accounts, "")

	if len(res.Pending) != 2 {
		t.Fatalf("pending = %d, want 2", len(res.Pending))
	}
	if len(res.Invalid) != 0 {
		t.Fatalf("invalid = %d, want 0", len(res.Invalid))
	}
	for _, o := range observed {
		if !res.ValidIDs[Fingerprint(o)] {
			t.Fatalf("identifier %s not recorded as valid", Fingerprint(o))
		}
	}
	if res.Pending[0].Source.Line != 9 {
		t.Fatalf("pending entry lost provenance: %+v", res.Pending[0].Source)
	}
}

func TestReconcile_AlreadyImported(t *testing.T) {
	accounts := testAccounts(t)
	o := observedFixture()
	txn := importedTxn(o, "Assets:Zen:PLN")
	idx := BuildIndex([]*ledger.Transaction{txn}, accounts.LedgerAccounts())

	res := Reconcile(idx, []Observed{o}, accounts, "")

	if len(res.Pending) != 0 {
		t.Fatalf("pending = %d, want 0", len(res.Pending))
	}
	if len(res.Invalid) != 0 {
		t.Fatalf("invalid = %d, want 0", len(res.Invalid))
	}
	if !res.ValidIDs[Fingerprint(o)] {
		t.Fatal("already imported identifier must still be marked valid")
	}
}

func TestReconcile_DuplicateReference(t *testing.T) {
	accounts := testAccounts(t)
	o := observedFixture()
	txns := []*ledger.Transaction{
		importedTxn(o, "Assets:Zen:PLN"),
		importedTxn(o, "Assets:Zen:PLN"),
	}
	idx := BuildIndex(txns, accounts.LedgerAccounts())

	res := Reconcile(idx, []Observed{o}, accounts, "")

	if len(res.Pending) != 0 {
		t.Fatalf("pending = %d, want 0", len(res.Pending))
	}
	if len(res.Invalid) != 1 {
		t.Fatalf("invalid = %d, want 1", len(res.Invalid))
	}
	inv := res.Invalid[0]
	if inv.Stale {
		t.Fatal("duplicate reported as stale")
	}
	if inv.Count != 1 {
		t.Fatalf("duplicate count = %d, want 1 (postings beyond the first)", inv.Count)
	}
	if len(inv.Refs) != 2 {
		t.Fatalf("duplicate refs = %d, want 2", len(inv.Refs))
	}
}

func TestReconcile_StaleReference(t *testing.T) {
	accounts := testAccounts(t)
	o := observedFixture()
	idx := BuildIndex([]*ledger.Transaction{importedTxn(o, "Assets:Zen:PLN")}, accounts.LedgerAccounts())

	// The statements no longer produce this transaction.
	res := Reconcile(idx, nil, accounts, "")

	if len(res.Invalid) != 1 {
		t.Fatalf("invalid = %d, want 1", len(res.Invalid))
	}
	inv := res.Invalid[0]
	if !inv.Stale {
		t.Fatal("missing identifier not reported as stale")
	}
	if inv.ID != Fingerprint(o) {
		t.Fatalf("stale id = %s, want %s", inv.ID, Fingerprint(o))
	}
	if inv.Count != 1 {
		t.Fatalf("stale count = %d, want 1", inv.Count)
	}
}

func TestReconcile_StaleSorted(t *testing.T) {
	accounts := testAccounts(t)
	var txns []*ledger.Transaction
	for day := 1; day <= 5; day++ {
		o := observedFixture()
		o.Date.Day = day
		txns = append(txns, importedTxn(o, "Assets:Zen:PLN"))
	}
	idx := BuildIndex(txns, accounts.LedgerAccounts())

	res := Reconcile(idx, nil, accounts, "")

	if len(res.Invalid) != 5 {
		t.Fatalf("invalid = %d, want 5", len(res.Invalid))
	}
	for i := 1; i < len(res.Invalid); i++ {
		if res.Invalid[i-1].ID > res.Invalid[i].ID {
			t.Fatalf("stale reports not sorted: %s before %s", res.Invalid[i-1].ID, res.Invalid[i].ID)
		}
	}
}

func TestReconcile_SkipsUnmapped(t *testing.T) {
	accounts := testAccounts(t)
	o := observedFixture()
	o.AccountID = "LT000000000000000000_EUR"

	res := Reconcile(Index{}, []Observed{o}, accounts, "")

	if len(res.Pending) != 0 {
		t.Fatalf("pending = %d, want 0", len(res.Pending))
	}
	if res.SkippedUnmapped != 1 {
		t.Fatalf("skipped = %d, want 1", res.SkippedUnmapped)
	}
	// Skipped transactions still validate their identifier so a mapped
	// sibling account's run does not report them stale later.
	if !res.ValidIDs[Fingerprint(o)] {
		t.Fatal("skipped transaction's identifier not marked valid")
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	accounts := testAccounts(t)
	observed := []Observed{observedFixture()}

	first := Reconcile(Index{}, observed, accounts, "")
	if len(first.Pending) != 1 {
		t.Fatalf("first pass pending = %d, want 1", len(first.Pending))
	}

	// Commit the staged entry, then run again against the updated journal.
	var journal []*ledger.Transaction
	for _, p := range first.Pending {
		journal = append(journal, p.Entry.(*ledger.Transaction))
	}
	idx := BuildIndex(journal, accounts.LedgerAccounts())

	second := Reconcile(idx, observed, accounts, "")
	if len(second.Pending) != 0 || len(second.Invalid) != 0 {
		t.Fatalf("second pass not clean: pending=%d invalid=%d",
			len(second.Pending), len(second.Invalid))
	}
}

func TestBuildIndex_OwnedAccountsOnly(t *testing.T) {
	o := observedFixture()
	mine := importedTxn(o, "Assets:Zen:PLN")

	other := observedFixture()
	other.Date.Day = 4
	theirs := importedTxn(other, "Assets:Revolut:PLN")

	idx := BuildIndex([]*ledger.Transaction{mine, theirs}, map[string]bool{"Assets:Zen:PLN": true})

	if len(idx) != 1 {
		t.Fatalf("index size = %d, want 1", len(idx))
	}
	if _, ok := idx[Fingerprint(o)]; !ok {
		t.Fatal("owned posting missing from index")
	}
}

func TestRun_MergesBatches(t *testing.T) {
	accounts := testAccounts(t)
	o := observedFixture()

	revAccounts, err := NewAccountMap(nil, "Assets:Revolut:PLN")
	if err != nil {
		t.Fatalf("NewAccountMap: %v", err)
	}
	rev := observedFixture()
	rev.Kind = "revolut"
	rev.AccountID = "account_PLN"

	journal := &ledger.Journal{}
	today := civil.Date{Year: 2025, Month: 1, Day: 15}

	res := Run(t.Context(), journal, []Batch{
		{Kind: "zen", Accounts: accounts, Observed: []Observed{o}},
		{Kind: "revolut", Accounts: revAccounts, Observed: []Observed{rev}},
	}, "", today)

	// One transaction per batch; both observed in the open month, so no
	// balance assertions yet.
	if len(res.Pending) != 2 {
		t.Fatalf("pending = %d, want 2", len(res.Pending))
	}
	if !res.ValidIDs[Fingerprint(o)] || !res.ValidIDs[Fingerprint(rev)] {
		t.Fatal("merged result missing a batch's identifiers")
	}
}
