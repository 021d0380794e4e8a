package revolut

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Statement is the per-currency view of one CSV file. Regular account CSVs
// mix currencies in a single file and split into one Statement per
// currency; credit-card CSVs carry a single implicit currency.
type Statement struct {
	Filename     string
	AccountType  string
	Currency     string
	Transactions []Transaction
}

// AccountID is the statement's key into the account map, e.g.
// "personal_PLN" or "creditcard_PLN".
func (s *Statement) AccountID() string {
	return s.AccountType + "_" + s.Currency
}

// Transaction is one CSV row.
type Transaction struct {
	Type         string
	Started      civil.Date
	Completed    civil.Date
	HasCompleted bool
	StartedRaw   string
	CompletedRaw string
	Description  string
	Amount       decimal.Decimal
	Fee          decimal.Decimal
	BalanceAfter decimal.Decimal
	// BalanceKnown is false when the Balance cell was blank. Such rows
	// exist on credit-card statements for settled rows the export has not
	// backfilled yet.
	BalanceKnown bool
	Currency     string
	Product      string
	State        string
	Line         int
}

// EntryDate is the date the transaction posts under: completion when
// known, otherwise initiation.
func (t Transaction) EntryDate() civil.Date {
	if t.HasCompleted {
		return t.Completed
	}
	return t.Started
}

// CSV format names.
const (
	FormatCreditCard = "creditcard"
	FormatAccount    = "account"
)

// DetectFormat classifies a CSV by its header line.
func DetectFormat(header string) (string, error) {
	header = strings.TrimPrefix(strings.TrimSpace(header), "\uFEFF")
	switch {
	case strings.HasPrefix(header, "Type,Started Date,Completed Date,Description,Amount,Fee,Balance"):
		return FormatCreditCard, nil
	case strings.HasPrefix(header, "Type,Product,"):
		return FormatAccount, nil
	default:
		return "", fmt.Errorf("DetectFormat: unknown CSV header %q", header)
	}
}

// transaction type display names, keyed by the raw CSV value. Credit-card
// exports use uppercase codes, account exports use title case.
var typeNames = map[string]string{
	"CARD_PAYMENT": "Card payment",
	"CARD_REFUND":  "Card refund",
	"TRANSFER":     "Transfer",
	"CASHBACK":     "Cashback",
	"FEE":          "Fee",
	"REFUND":       "Refund",
	"TOPUP":        "Top-up",
	"ATM":          "ATM withdrawal",
	"Card Payment": "Card payment",
	"Card Refund":  "Card refund",
	"Exchange":     "Exchange",
	"Top-Up":       "Top-up",
	"Reward":       "Reward",
}

func normalizeType(raw string) string {
	if name, ok := typeNames[raw]; ok {
		return name
	}
	return raw
}

// ParseCreditCardCSV reads the seven-column credit-card format:
//
//	Type,Started Date,Completed Date,Description,Amount,Fee,Balance
//
// The format has no currency column; the statement currency comes from
// configuration.
func ParseCreditCardCSV(r io.Reader, filename, currency string) (*Statement, error) {
	rows, fieldOf, err := readRows(r)
	if err != nil {
		return nil, fmt.Errorf("ParseCreditCardCSV: %s: %w", filename, err)
	}

	stmt := &Statement{Filename: filename, AccountType: FormatCreditCard, Currency: currency}
	for _, row := range rows {
		txn, ok := parseRow(row.record, row.line, fieldOf)
		if !ok {
			continue
		}
		txn.Currency = currency
		stmt.Transactions = append(stmt.Transactions, txn)
	}
	return stmt, nil
}

// ParseAccountCSV reads the ten-column account format:
//
//	Type,Product,Started Date,Completed Date,Description,Amount,Fee,Currency,State,Balance
//
// Rows are grouped by their Currency column into one Statement each,
// returned sorted by currency. Rows with a State other than COMPLETED are
// still settling and are dropped; their balance cell is blank anyway.
func ParseAccountCSV(r io.Reader, filename, accountType string) ([]*Statement, error) {
	rows, fieldOf, err := readRows(r)
	if err != nil {
		return nil, fmt.Errorf("ParseAccountCSV: %s: %w", filename, err)
	}

	byCurrency := make(map[string]*Statement)
	for _, row := range rows {
		txn, ok := parseRow(row.record, row.line, fieldOf)
		if !ok {
			continue
		}
		if txn.State != "" && txn.State != "COMPLETED" {
			continue
		}
		if txn.Currency == "" {
			txn.Currency = "PLN"
		}
		stmt, ok := byCurrency[txn.Currency]
		if !ok {
			stmt = &Statement{Filename: filename, AccountType: accountType, Currency: txn.Currency}
			byCurrency[txn.Currency] = stmt
		}
		stmt.Transactions = append(stmt.Transactions, txn)
	}

	stmts := make([]*Statement, 0, len(byCurrency))
	for _, stmt := range byCurrency {
		stmts = append(stmts, stmt)
	}
	sort.Slice(stmts, func(i, j int) bool { return stmts[i].Currency < stmts[j].Currency })
	return stmts, nil
}

type csvRow struct {
	record []string
	line   int
}

func readRows(r io.Reader) ([]csvRow, func([]string, string) string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("reading header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	fieldOf := func(record []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var rows []csvRow
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, csvRow{record: record, line: line})
	}
	return rows, fieldOf, nil
}

func parseRow(record []string, line int, fieldOf func([]string, string) string) (Transaction, bool) {
	startedRaw := fieldOf(record, "Started Date")
	if startedRaw == "" {
		return Transaction{}, false
	}
	started, err := parseDate(startedRaw)
	if err != nil {
		return Transaction{}, false
	}

	txn := Transaction{
		Type:        fieldOf(record, "Type"),
		Started:     started,
		StartedRaw:  startedRaw,
		Description: fieldOf(record, "Description"),
		Amount:      parseAmount(fieldOf(record, "Amount")),
		Fee:         parseAmount(fieldOf(record, "Fee")),
		Currency:    fieldOf(record, "Currency"),
		Product:     fieldOf(record, "Product"),
		State:       fieldOf(record, "State"),
		Line:        line,
	}

	if completedRaw := fieldOf(record, "Completed Date"); completedRaw != "" {
		if completed, err := parseDate(completedRaw); err == nil {
			txn.Completed = completed
			txn.CompletedRaw = completedRaw
			txn.HasCompleted = true
		}
	}

	if balance := fieldOf(record, "Balance"); balance != "" {
		txn.BalanceAfter = parseAmount(balance)
		txn.BalanceKnown = true
	}
	return txn, true
}

// parseDate accepts "2025-01-02 02:19:20" and the bare date form.
func parseDate(s string) (civil.Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return civil.DateOf(t), nil
	}
	d, err := civil.ParseDate(s)
	if err != nil {
		return civil.Date{}, fmt.Errorf("parseDate: %q", s)
	}
	return d, nil
}

func parseAmount(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}
	}
	return d
}
