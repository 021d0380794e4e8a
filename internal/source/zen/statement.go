package zen

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/ledger-import/internal/importer"
	"github.com/dvloznov/ledger-import/internal/ledger"
)

// Statement is one parsed monthly CSV file.
type Statement struct {
	Filename       string
	IBAN           string
	Currency       string
	PeriodStart    civil.Date
	PeriodEnd      civil.Date
	OpeningBalance decimal.Decimal
	ClosingBalance decimal.Decimal
	Transactions   []Transaction
}

// AccountID is the statement's key into the account map.
func (s *Statement) AccountID() string {
	return s.IBAN + "_" + s.Currency
}

// Transaction is one row of the statement's transaction table, with the
// counterparty fields already extracted from the description.
type Transaction struct {
	Date           civil.Date
	Type           string
	Description    string
	Amount         decimal.Decimal
	Currency       string
	OriginalAmount decimal.Decimal
	OriginalCurrency string
	CurrencyRate   decimal.Decimal
	FeeDescription string
	BalanceAfter   decimal.Decimal
	Line           int

	Counterparty        string
	CounterpartyAddress string
	CounterpartyIBAN    string
	CardNumber          string
}

// ParseStatement reads one Zen CSV statement: the key/value header block
// down to the "Transactions:" marker, then the transaction table.
func ParseStatement(r io.Reader, filename string) (*Statement, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("ParseStatement: %w", err)
	}
	content := strings.ReplaceAll(string(raw), "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	lines := strings.Split(content, "\n")

	stmt := &Statement{Filename: filename, Currency: "PLN"}
	tableStart := -1

	for i, line := range lines {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "Global IBAN:"):
			stmt.IBAN = strings.TrimSpace(strings.TrimPrefix(line, "Global IBAN:"))
		case strings.HasPrefix(line, "Currency:"):
			stmt.Currency = strings.TrimSpace(strings.TrimPrefix(line, "Currency:"))
		case strings.HasPrefix(line, "Date:"):
			parsePeriod(strings.TrimSpace(strings.TrimPrefix(line, "Date:")), stmt)
		case strings.Contains(line, "Opening balance:"):
			stmt.OpeningBalance = headerAmount(line)
		case strings.Contains(line, "Closing balance:"):
			stmt.ClosingBalance = headerAmount(line)
		case line == "Transactions:":
			tableStart = i + 1
		}
		if tableStart >= 0 {
			break
		}
	}

	if stmt.IBAN == "" {
		return nil, fmt.Errorf("ParseStatement: %s: no Global IBAN in header", filename)
	}
	if tableStart < 0 {
		return nil, fmt.Errorf("ParseStatement: %s: no Transactions: marker", filename)
	}

	txns, err := parseTable(strings.Join(lines[tableStart:], "\n"), tableStart)
	if err != nil {
		return nil, fmt.Errorf("ParseStatement: %s: %w", filename, err)
	}
	stmt.Transactions = txns
	return stmt, nil
}

func parsePeriod(s string, stmt *Statement) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return
	}
	if d, err := parseDate(strings.TrimSpace(parts[0])); err == nil {
		stmt.PeriodStart = d
	}
	if d, err := parseDate(strings.TrimSpace(parts[1])); err == nil {
		stmt.PeriodEnd = d
	}
}

// headerAmount parses lines like "Opening balance:,759.28,PLN".
func headerAmount(line string) decimal.Decimal {
	parts := strings.Split(line, ",")
	if len(parts) < 2 {
		return decimal.Decimal{}
	}
	return parseAmount(parts[1])
}

func parseTable(content string, tableStart int) ([]Transaction, error) {
	reader := csv.NewReader(strings.NewReader(content))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("parseTable: reading header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}

	field := func(record []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var txns []Transaction
	// Rows start two lines below the marker: the marker line itself plus
	// the column header.
	for lineNum := tableStart + 2; ; lineNum++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Footer lines are free text; stop at the first row the CSV
			// reader cannot make sense of.
			break
		}

		dateStr := field(record, "Date")
		if dateStr == "" || strings.HasPrefix(dateStr, "This is a computer") {
			continue
		}
		date, err := parseDate(dateStr)
		if err != nil {
			continue
		}

		txn := Transaction{
			Date:             date,
			Type:             field(record, "Transaction type"),
			Description:      field(record, "Description"),
			Amount:           parseAmount(field(record, "Settlement amount")),
			Currency:         defaultStr(field(record, "Settlement currency"), "PLN"),
			OriginalAmount:   parseAmount(field(record, "Original amount")),
			OriginalCurrency: defaultStr(field(record, "Original currency"), "PLN"),
			CurrencyRate:     parseAmount(field(record, "Currency rate")),
			FeeDescription:   field(record, "Fee description"),
			BalanceAfter:     parseAmount(field(record, "Balance")),
			Line:             lineNum,
		}
		extractCounterparty(&txn)
		txns = append(txns, txn)
	}
	return txns, nil
}

func defaultStr(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// parseDate accepts the statement's "2 Jan 2025" form and the ISO form
// some exports use.
func parseDate(s string) (civil.Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2 Jan 2006", s); err == nil {
		return civil.DateOf(t), nil
	}
	d, err := civil.ParseDate(s)
	if err != nil {
		return civil.Date{}, fmt.Errorf("parseDate: %q", s)
	}
	return d, nil
}

// parseAmount is forgiving: statement cells are occasionally empty and a
// blank cell means zero, not a broken row.
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

var (
	cardRe     = regexp.MustCompile(`CARD:\s*MASTERCARD\s*\*(\d{4})`)
	merchantRe = regexp.MustCompile(`^(.+?)\s{2,}(.+)$`)
	ibanRe     = regexp.MustCompile(`(?:PL|GB|DE|LT|FR)[A-Z0-9]{10,32}`)
	uuidRe     = regexp.MustCompile(`(?i)\s+[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)
)

// extractCounterparty pulls structured fields out of the free-text
// description. The layout depends on the transaction type:
//
//	Card payment:      "MERCHANT  LOCATION,COUNTRY CARD: MASTERCARD *7492"
//	Transfer:          "Counterparty,  Title IBAN"
//	Cashback:          "CASHBACK merchant uuid 4.0% 20250129Z"
func extractCounterparty(txn *Transaction) {
	desc := txn.Description
	if desc == "" {
		return
	}

	if m := cardRe.FindStringSubmatch(desc); m != nil {
		txn.CardNumber = m[1]
	}

	switch txn.Type {
	case "Card payment", "Card refund":
		merchant := desc
		if i := strings.Index(desc, ","); i >= 0 {
			merchant = desc[:i]
		}
		merchant = strings.TrimSpace(merchant)
		if m := merchantRe.FindStringSubmatch(merchant); m != nil {
			txn.Counterparty = strings.TrimSpace(m[1])
			txn.CounterpartyAddress = strings.TrimSpace(m[2])
		} else {
			txn.Counterparty = merchant
		}

	case "Incoming transfer", "Outgoing transfer":
		parts := strings.SplitN(desc, ",", 2)
		txn.Counterparty = strings.TrimSpace(parts[0])
		if len(parts) == 2 {
			txn.CounterpartyIBAN = ibanRe.FindString(parts[1])
		}

	case "Cashback", "Cashback Refund":
		upper := strings.ToUpper(desc)
		var rest string
		switch {
		case strings.HasPrefix(upper, "STORNO CASHBACK "):
			rest = strings.TrimSpace(desc[len("STORNO CASHBACK "):])
		case strings.HasPrefix(upper, "CASHBACK "):
			rest = strings.TrimSpace(desc[len("CASHBACK "):])
		default:
			return
		}
		if loc := uuidRe.FindStringIndex(rest); loc != nil {
			txn.Counterparty = strings.TrimSpace(rest[:loc[0]])
		} else if fields := strings.Fields(rest); len(fields) > 0 {
			txn.Counterparty = fields[0]
		}
	}
}

// attributes builds the ordered posting metadata for one row.
func (txn Transaction) attributes(stmt *Statement) []ledger.Meta {
	attrs := []ledger.Meta{
		{Key: importer.SourceBankKey, Value: "Zen"},
		{Key: importer.AccountIBANKey, Value: stmt.IBAN},
	}
	add := func(key, value string) {
		if value != "" {
			attrs = append(attrs, ledger.Meta{Key: key, Value: value})
		}
	}
	add(importer.TransactionTypeKey, txn.Type)
	add(importer.CounterpartyKey, txn.Counterparty)
	add(importer.CounterpartyAddressKey, txn.CounterpartyAddress)
	add(importer.CounterpartyIBANKey, txn.CounterpartyIBAN)
	add(importer.CardNumberKey, txn.CardNumber)
	if txn.OriginalCurrency != txn.Currency {
		add(importer.OriginalAmountKey, ledger.FormatNumber(txn.OriginalAmount))
		add(importer.OriginalCurrencyKey, txn.OriginalCurrency)
		add(importer.CurrencyRateKey, ledger.FormatNumber(txn.CurrencyRate))
	}
	if txn.Description != "" && txn.Description != txn.Counterparty {
		add(importer.TitleKey, txn.Description)
	}
	add(importer.SourceDocKey, filepath.Base(stmt.Filename))
	return attrs
}
