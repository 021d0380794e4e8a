package ledger

import (
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

const sampleJournal = `; personal journal
2025-01-01 open Assets:Zen:PLN

2025-01-02 * "STARBUCKS" "Card payment"
  Assets:Zen:PLN  -15.00 PLN
    source_ref: "zen:1d8a0e1cd5dc"
    source_bank: "Zen"
    counterparty: "STARBUCKS"
  Expenses:FIXME  15.00 PLN

2025-01-05 ! "Pending transfer"
  Assets:Zen:PLN  -100.00 PLN
    source_ref: "zen:9f2b11aa03c7"
  Expenses:FIXME  100.00 PLN

2025-02-01 balance Assets:Zen:PLN  644.28 PLN
`

func TestParse(t *testing.T) {
	j, err := Parse(strings.NewReader(sampleJournal), "main.journal")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(j.Transactions) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(j.Transactions))
	}
	if len(j.Balances) != 1 {
		t.Fatalf("expected 1 balance assertion, got %d", len(j.Balances))
	}

	txn := j.Transactions[0]
	if txn.Date != (civil.Date{Year: 2025, Month: 1, Day: 2}) {
		t.Errorf("unexpected date: %v", txn.Date)
	}
	if txn.Payee != "STARBUCKS" || txn.Narration != "Card payment" {
		t.Errorf("unexpected header: payee=%q narration=%q", txn.Payee, txn.Narration)
	}
	if len(txn.Postings) != 2 {
		t.Fatalf("expected 2 postings, got %d", len(txn.Postings))
	}

	leg := txn.Postings[0]
	if leg.Account != "Assets:Zen:PLN" {
		t.Errorf("unexpected account: %q", leg.Account)
	}
	if !leg.Amount.Equal(NewAmount(decimal.RequireFromString("-15.00"), "PLN")) {
		t.Errorf("unexpected amount: %v", leg.Amount)
	}
	if got := MetaValue(leg.Meta, "source_ref"); got != "zen:1d8a0e1cd5dc" {
		t.Errorf("unexpected source_ref: %q", got)
	}
	if got := MetaValue(leg.Meta, "counterparty"); got != "STARBUCKS" {
		t.Errorf("unexpected counterparty: %q", got)
	}
	if len(txn.Postings[1].Meta) != 0 {
		t.Errorf("FIXME posting should carry no metadata, got %v", txn.Postings[1].Meta)
	}

	if j.Transactions[1].Flag != "!" {
		t.Errorf("expected pending flag, got %q", j.Transactions[1].Flag)
	}

	bal := j.Balances[0]
	if bal.Account != "Assets:Zen:PLN" {
		t.Errorf("unexpected balance account: %q", bal.Account)
	}
	if !bal.Amount.Equal(NewAmount(decimal.RequireFromString("644.28"), "PLN")) {
		t.Errorf("unexpected balance amount: %v", bal.Amount)
	}
	if bal.Date != (civil.Date{Year: 2025, Month: 2, Day: 1}) {
		t.Errorf("unexpected balance date: %v", bal.Date)
	}
}

func TestParse_RecordsPositions(t *testing.T) {
	j, err := Parse(strings.NewReader(sampleJournal), "main.journal")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	txn := j.Transactions[0]
	if txn.SourceFile != "main.journal" {
		t.Errorf("unexpected source file: %q", txn.SourceFile)
	}
	if txn.Line != 4 {
		t.Errorf("expected transaction on line 4, got %d", txn.Line)
	}
	if txn.Postings[0].Line != 5 {
		t.Errorf("expected first posting on line 5, got %d", txn.Postings[0].Line)
	}
}

func TestParse_IgnoresUnknownDirectives(t *testing.T) {
	input := `2025-01-01 open Assets:Zen:PLN
2025-01-01 commodity PLN
2025-03-01 price PLN 0.25 USD
`
	j, err := Parse(strings.NewReader(input), "t.journal")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(j.Transactions) != 0 || len(j.Balances) != 0 {
		t.Errorf("expected empty journal, got %d txns / %d balances", len(j.Transactions), len(j.Balances))
	}
}

func TestRenderTransaction_RoundTrip(t *testing.T) {
	txn := &Transaction{
		Date:      civil.Date{Year: 2025, Month: 1, Day: 2},
		Flag:      FlagOkay,
		Payee:     "STARBUCKS",
		Narration: "Card payment",
		Postings: []Posting{
			{
				Account: "Assets:Zen:PLN",
				Amount:  NewAmount(decimal.RequireFromString("-15.00"), "PLN"),
				Meta: []Meta{
					{Key: "source_ref", Value: "zen:1d8a0e1cd5dc"},
					{Key: "source_bank", Value: "Zen"},
				},
			},
			{
				Account: "Expenses:FIXME",
				Amount:  NewAmount(decimal.RequireFromString("15.00"), "PLN"),
			},
		},
	}

	text := RenderDirective(txn)

	j, err := Parse(strings.NewReader(text), "rendered")
	if err != nil {
		t.Fatalf("Parse of rendered output failed: %v", err)
	}
	if len(j.Transactions) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(j.Transactions))
	}
	got := j.Transactions[0]
	if got.Payee != txn.Payee || got.Narration != txn.Narration {
		t.Errorf("header mismatch: %q %q", got.Payee, got.Narration)
	}
	if len(got.Postings) != 2 {
		t.Fatalf("expected 2 postings, got %d", len(got.Postings))
	}
	if MetaValue(got.Postings[0].Meta, "source_ref") != "zen:1d8a0e1cd5dc" {
		t.Errorf("source_ref lost in round trip")
	}
}

func TestRenderBalance(t *testing.T) {
	bal := &Balance{
		Date:    civil.Date{Year: 2025, Month: 2, Day: 1},
		Account: "Assets:Zen:PLN",
		Amount:  NewAmount(decimal.RequireFromString("744.28"), "PLN"),
	}
	want := "2025-02-01 balance Assets:Zen:PLN  744.28 PLN\n"
	if got := RenderDirective(bal); got != want {
		t.Errorf("RenderDirective() = %q, want %q", got, want)
	}
}

func TestAmountString_PreservesScale(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"-15.00", "-15.00 PLN"},
		{"744.28", "744.28 PLN"},
		{"0", "0 PLN"},
		{"1000.5", "1000.5 PLN"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			a, err := ParseAmount(tt.text, "PLN")
			if err != nil {
				t.Fatalf("ParseAmount failed: %v", err)
			}
			if got := a.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}
