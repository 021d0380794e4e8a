package ledger

import (
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
)

// FlagOkay marks a cleared transaction in the journal.
const FlagOkay = "*"

// Meta is a single key/value metadata pair attached to a posting.
// Order is significant: metadata is rendered in the order it was attached,
// so re-rendering an entry is byte-stable.
type Meta struct {
	Key   string
	Value string
}

// MetaValue returns the value for key in an ordered metadata list, or ""
// when the key is absent.
func MetaValue(meta []Meta, key string) string {
	for _, m := range meta {
		if m.Key == key {
			return m.Value
		}
	}
	return ""
}

// Posting is one account-leg of a transaction.
type Posting struct {
	Account string
	Amount  Amount
	Meta    []Meta

	// Line is the 1-based line number of the posting in its source file,
	// or 0 for postings synthesized this run.
	Line int
}

// Directive is an entry that can appear in a journal.
type Directive interface {
	// EntryDate is the date the directive applies on.
	EntryDate() civil.Date
	// Render writes the directive in journal text form, including the
	// trailing newline.
	Render(b *strings.Builder)
}

// Transaction is a dated journal transaction with two or more postings.
// Postings must sum to zero per currency; the synthesizer guarantees this
// by construction for generated entries.
type Transaction struct {
	Date      civil.Date
	Flag      string
	Payee     string
	Narration string
	Postings  []Posting

	// SourceFile and Line locate the transaction in the journal it was
	// read from; both are zero for transactions synthesized this run.
	SourceFile string
	Line       int
}

// EntryDate implements Directive.
func (t *Transaction) EntryDate() civil.Date { return t.Date }

// Render implements Directive. Output follows the journal convention:
//
//	2025-01-02 * "STARBUCKS" "Card payment"
//	  Assets:Zen:PLN  -15.00 PLN
//	    source_ref: "zen:1d8a0e1cd5dc"
//	  Expenses:FIXME  15.00 PLN
func (t *Transaction) Render(b *strings.Builder) {
	flag := t.Flag
	if flag == "" {
		flag = FlagOkay
	}
	b.WriteString(t.Date.String())
	b.WriteString(" ")
	b.WriteString(flag)
	if t.Payee != "" {
		fmt.Fprintf(b, " %q", t.Payee)
	}
	fmt.Fprintf(b, " %q\n", t.Narration)
	for _, p := range t.Postings {
		fmt.Fprintf(b, "  %s  %s\n", p.Account, p.Amount)
		for _, m := range p.Meta {
			fmt.Fprintf(b, "    %s: %q\n", m.Key, m.Value)
		}
	}
}

// Balance asserts the start-of-day balance of an account on a date.
type Balance struct {
	Date    civil.Date
	Account string
	Amount  Amount

	SourceFile string
	Line       int
}

// EntryDate implements Directive.
func (bal *Balance) EntryDate() civil.Date { return bal.Date }

// Render implements Directive, e.g.
//
//	2025-02-01 balance Assets:Zen:PLN  744.28 PLN
func (bal *Balance) Render(b *strings.Builder) {
	fmt.Fprintf(b, "%s balance %s  %s\n", bal.Date, bal.Account, bal.Amount)
}

// RenderDirective returns the journal text for a single directive.
func RenderDirective(d Directive) string {
	var b strings.Builder
	d.Render(&b)
	return b.String()
}
