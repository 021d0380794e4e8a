// Package importer contains the identity and reconciliation engine: it
// fingerprints transactions observed in bank statements, compares them
// against identifiers already recorded in the journal, stages entries for
// the ones that are new, and reports duplicate or stale references for the
// rest. Statement parsing and journal write-back live outside this package.
package importer

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/ledger-import/internal/ledger"
)

// Metadata keys written on generated postings, standardized across all
// statement sources.
const (
	// SourceRefKey carries the transaction identifier used to match
	// statement transactions against journal postings.
	SourceRefKey = "source_ref"
	// SourceBankKey carries the human-readable bank name.
	SourceBankKey = "source_bank"

	TransactionTypeKey     = "transaction_type"
	CounterpartyKey        = "counterparty"
	CounterpartyAddressKey = "counterparty_address"
	CounterpartyIBANKey    = "counterparty_iban"
	AccountIBANKey         = "account_iban"
	TitleKey               = "title"
	CardNumberKey          = "card_number"
	OriginalAmountKey      = "original_amount"
	OriginalCurrencyKey    = "original_currency"
	CurrencyRateKey        = "currency_rate"
	SourceDocKey           = "document"
)

// DefaultUncategorizedAccount receives the offsetting leg of every
// generated transaction until a human categorizes it.
const DefaultUncategorizedAccount = "Expenses:FIXME"

// Provenance locates a transaction in its statement file. It is carried
// for diagnostics only and never participates in identity unless the
// sequence policy below is opted into.
type Provenance struct {
	File string
	Line int
}

// Observed is one normalized transaction as reported by a statement
// source. Amount and BalanceAfter are exact decimals taken from the
// statement text; both feed the identifier, so sources must never compute
// them through floating point.
type Observed struct {
	// Kind namespaces the identifier, e.g. "zen" or "revolut".
	Kind string

	Date         civil.Date
	Amount       decimal.Decimal
	Currency     string
	BalanceAfter decimal.Decimal

	// AccountID names the owning account in source terms, e.g.
	// "GB72TCCL04140411776433_PLN". The account map resolves it to a
	// journal account.
	AccountID string

	// Payee and Narration become the generated transaction header.
	Payee     string
	Narration string

	// Attributes is ordered posting metadata (counterparty, title, card
	// number, ...). The engine copies it verbatim onto the generated
	// posting, after the identifier.
	Attributes []ledger.Meta

	Source Provenance

	// SequenceInFingerprint mixes Source.Line into the identifier. Only
	// set this when the statement has no trustworthy running balance AND
	// the line number is stable across re-reads of the same file. It is
	// never safe across re-extraction passes that may reorder lines;
	// sources opting in accept that re-extraction breaks identity.
	SequenceInFingerprint bool
}
