package zen

import (
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/ledger-import/internal/importer"
	"github.com/dvloznov/ledger-import/internal/ledger"
)

const sampleStatement = `PLN monthly statement
Generated: 6 Jan 2026
Date: 1 Jan 2025 - 31 Jan 2025

Account owner
JAN KOWALSKI
Kwiatowa 1
00-001 Warszawa PL

Account details
"Local IBAN: "
"Local BIC/SWIFT: "
Global IBAN: GB72TCCL04140411776433
Global BIC/SWIFT: TCCLGB3L
Currency: PLN

Total income:,11185.68,PLN
Opening balance:,759.28,PLN
Total outcome:,-11360.47,PLN
Closing balance:,584.49,PLN


Transactions:
Date,Transaction type,Description,Settlement amount,Settlement currency,Original amount,Original currency,Currency rate,Fee description,Fee amount,Fee currency,Balance
1 Jan 2025,Card payment,"ORANGE FLEX              POL,POL CARD: MASTERCARD *7492",-15.00,PLN,-15.00,PLN,1.0,Fee for processing transaction,,,744.28
2 Jan 2025,Incoming transfer,"ZEN.COM UAB,   ZEN account top-up ",1000.00,PLN,1000.00,PLN,1.0,Fee for processing transaction,,,1744.28

This is a computer-generated document.
`

func TestParseStatement(t *testing.T) {
	stmt, err := ParseStatement(strings.NewReader(sampleStatement), "2025-01-PLN.csv")
	if err != nil {
		t.Fatalf("ParseStatement: %v", err)
	}

	if stmt.IBAN != "GB72TCCL04140411776433" {
		t.Errorf("IBAN = %q", stmt.IBAN)
	}
	if stmt.Currency != "PLN" {
		t.Errorf("Currency = %q", stmt.Currency)
	}
	if stmt.AccountID() != "GB72TCCL04140411776433_PLN" {
		t.Errorf("AccountID = %q", stmt.AccountID())
	}
	if stmt.PeriodStart != (civil.Date{Year: 2025, Month: 1, Day: 1}) {
		t.Errorf("PeriodStart = %s", stmt.PeriodStart)
	}
	if stmt.PeriodEnd != (civil.Date{Year: 2025, Month: 1, Day: 31}) {
		t.Errorf("PeriodEnd = %s", stmt.PeriodEnd)
	}
	if !stmt.OpeningBalance.Equal(decimal.RequireFromString("759.28")) {
		t.Errorf("OpeningBalance = %s", stmt.OpeningBalance)
	}
	if !stmt.ClosingBalance.Equal(decimal.RequireFromString("584.49")) {
		t.Errorf("ClosingBalance = %s", stmt.ClosingBalance)
	}

	if len(stmt.Transactions) != 2 {
		t.Fatalf("transactions = %d, want 2", len(stmt.Transactions))
	}

	txn := stmt.Transactions[0]
	if txn.Date != (civil.Date{Year: 2025, Month: 1, Day: 1}) {
		t.Errorf("txn date = %s", txn.Date)
	}
	if txn.Type != "Card payment" {
		t.Errorf("txn type = %q", txn.Type)
	}
	if got := ledger.FormatNumber(txn.Amount); got != "-15.00" {
		t.Errorf("amount = %q, want scale preserved", got)
	}
	if got := ledger.FormatNumber(txn.BalanceAfter); got != "744.28" {
		t.Errorf("balance = %q", got)
	}
	if txn.Counterparty != "ORANGE FLEX" {
		t.Errorf("counterparty = %q", txn.Counterparty)
	}
	if txn.CounterpartyAddress != "POL" {
		t.Errorf("address = %q", txn.CounterpartyAddress)
	}
	if txn.CardNumber != "7492" {
		t.Errorf("card = %q", txn.CardNumber)
	}

	txn2 := stmt.Transactions[1]
	if txn2.Counterparty != "ZEN.COM UAB" {
		t.Errorf("transfer counterparty = %q", txn2.Counterparty)
	}
	if !txn2.Amount.Equal(decimal.RequireFromString("1000.00")) {
		t.Errorf("transfer amount = %s", txn2.Amount)
	}
}

func TestParseStatement_NoIBAN(t *testing.T) {
	_, err := ParseStatement(strings.NewReader("Currency: PLN\nTransactions:\n"), "x.csv")
	if err == nil {
		t.Fatal("expected error for statement without IBAN")
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want civil.Date
	}{
		{"1 Jan 2025", civil.Date{Year: 2025, Month: 1, Day: 1}},
		{"28 Feb 2025", civil.Date{Year: 2025, Month: 2, Day: 28}},
		{"31 Dec 2024", civil.Date{Year: 2024, Month: 12, Day: 31}},
		{"2025-01-15", civil.Date{Year: 2025, Month: 1, Day: 15}},
	}
	for _, tt := range tests {
		got, err := parseDate(tt.in)
		if err != nil {
			t.Errorf("parseDate(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseDate(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}

	if _, err := parseDate("invalid"); err == nil {
		t.Error("parseDate(invalid) succeeded")
	}
}

func TestExtractCounterparty(t *testing.T) {
	tests := []struct {
		name     string
		txnType  string
		desc     string
		wantName string
		wantAddr string
		wantIBAN string
		wantCard string
	}{
		{
			name:     "card payment with location",
			txnType:  "Card payment",
			desc:     "STARBUCKS              POL,POL CARD: MASTERCARD *7492",
			wantName: "STARBUCKS",
			wantAddr: "POL",
			wantCard: "7492",
		},
		{
			name:     "card payment complex merchant",
			txnType:  "Card payment",
			desc:     "GOOGLE*ADS3573692684              IRL,IRL CARD: MASTERCARD *7492",
			wantName: "GOOGLE*ADS3573692684",
			wantAddr: "IRL",
			wantCard: "7492",
		},
		{
			name:     "incoming transfer",
			txnType:  "Incoming transfer",
			desc:     "ZEN.COM UAB,   ZEN account top-up, Card **6671 ",
			wantName: "ZEN.COM UAB",
		},
		{
			name:     "outgoing transfer with iban",
			txnType:  "Outgoing transfer",
			desc:     "Jan Kowalski,  PL Proce PL42156000132001525640000001",
			wantName: "Jan Kowalski",
			wantIBAN: "PL42156000132001525640000001",
		},
		{
			name:     "cashback",
			txnType:  "Cashback",
			desc:     "CASHBACK aliexpress 5e2b632c-b61a-7bcf-b216-0194afcff75d 4.0% 20250129Z",
			wantName: "aliexpress",
		},
		{
			name:     "cashback refund",
			txnType:  "Cashback Refund",
			desc:     "STORNO CASHBACK ALIEXPRESS.COM 10582ab7-0e0d-7997-a6e5-01950be55d5d 4.0% 20250215Z",
			wantName: "ALIEXPRESS.COM",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txn := Transaction{Type: tt.txnType, Description: tt.desc}
			extractCounterparty(&txn)
			if txn.Counterparty != tt.wantName {
				t.Errorf("counterparty = %q, want %q", txn.Counterparty, tt.wantName)
			}
			if txn.CounterpartyAddress != tt.wantAddr {
				t.Errorf("address = %q, want %q", txn.CounterpartyAddress, tt.wantAddr)
			}
			if txn.CounterpartyIBAN != tt.wantIBAN {
				t.Errorf("iban = %q, want %q", txn.CounterpartyIBAN, tt.wantIBAN)
			}
			if txn.CardNumber != tt.wantCard {
				t.Errorf("card = %q, want %q", txn.CardNumber, tt.wantCard)
			}
		})
	}
}

func TestObserve(t *testing.T) {
	stmt, err := ParseStatement(strings.NewReader(sampleStatement), "/data/zen/2025/2025-01-PLN-4821.csv")
	if err != nil {
		t.Fatalf("ParseStatement: %v", err)
	}

	o := observe(stmt, stmt.Transactions[0])

	if o.Kind != "zen" {
		t.Errorf("kind = %q", o.Kind)
	}
	if o.AccountID != "GB72TCCL04140411776433_PLN" {
		t.Errorf("account id = %q", o.AccountID)
	}
	if o.Payee != "ORANGE FLEX" {
		t.Errorf("payee = %q", o.Payee)
	}
	if o.Narration != "Card payment" {
		t.Errorf("narration = %q", o.Narration)
	}
	if o.SequenceInFingerprint {
		t.Error("zen rows must rely on the running balance, not the sequence")
	}
	if o.Source.File != "/data/zen/2025/2025-01-PLN-4821.csv" {
		t.Errorf("provenance file = %q", o.Source.File)
	}

	if got := ledger.MetaValue(o.Attributes, importer.SourceBankKey); got != "Zen" {
		t.Errorf("source_bank = %q", got)
	}
	if got := ledger.MetaValue(o.Attributes, importer.AccountIBANKey); got != "GB72TCCL04140411776433" {
		t.Errorf("account_iban = %q", got)
	}
	if got := ledger.MetaValue(o.Attributes, importer.SourceDocKey); got != "2025-01-PLN-4821.csv" {
		t.Errorf("document = %q, want the base name", got)
	}
	if got := ledger.MetaValue(o.Attributes, importer.TitleKey); got == "" {
		t.Error("title missing for description that differs from the counterparty")
	}
	// Same-currency rows carry no FX metadata.
	if got := ledger.MetaValue(o.Attributes, importer.OriginalCurrencyKey); got != "" {
		t.Errorf("original_currency = %q for a same-currency row", got)
	}
}
