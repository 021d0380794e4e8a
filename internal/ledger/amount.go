// Package ledger holds the plain-text journal data model: amounts, postings,
// transactions and balance assertions, plus a read-only journal file reader.
// The import engine only ever reads existing entries and renders new ones;
// writing them back into the journal is the reviewer's job.
package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Amount is an exact decimal quantity of a single currency. Floating point
// is never used for amounts: fingerprints and balance assertions both rely
// on exact equality of the values as printed in the statement.
type Amount struct {
	Number   decimal.Decimal
	Currency string
}

// NewAmount builds an Amount from an exact decimal and a currency code.
func NewAmount(number decimal.Decimal, currency string) Amount {
	return Amount{Number: number, Currency: currency}
}

// ParseAmount parses a statement amount like "-15.00" into an Amount,
// preserving the printed scale (trailing zeros are significant for
// fingerprinting).
func ParseAmount(text, currency string) (Amount, error) {
	d, err := decimal.NewFromString(text)
	if err != nil {
		return Amount{}, fmt.Errorf("ParseAmount: %q: %w", text, err)
	}
	return Amount{Number: d, Currency: currency}, nil
}

// Neg returns the amount with the opposite sign, same currency.
func (a Amount) Neg() Amount {
	return Amount{Number: a.Number.Neg(), Currency: a.Currency}
}

// IsZero reports whether the amount is exactly zero.
func (a Amount) IsZero() bool {
	return a.Number.IsZero()
}

// Equal reports exact equality of value and currency. Scale is ignored,
// matching decimal comparison semantics ("15.0" equals "15.00").
func (a Amount) Equal(other Amount) bool {
	return a.Currency == other.Currency && a.Number.Equal(other.Number)
}

// String renders the amount in journal notation, e.g. "-15.00 PLN".
func (a Amount) String() string {
	return FormatNumber(a.Number) + " " + a.Currency
}

// FormatNumber renders a decimal at the scale it was parsed with.
// decimal.Decimal.String trims trailing zeros ("-15.00" would come back as
// "-15"); identifiers and assertions are built from statement text, so the
// printed scale must survive.
func FormatNumber(d decimal.Decimal) string {
	if d.Exponent() < 0 {
		return d.StringFixed(-d.Exponent())
	}
	return d.String()
}
