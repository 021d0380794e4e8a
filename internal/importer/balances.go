package importer

import (
	"sort"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/ledger-import/internal/ledger"
)

type monthKey struct {
	Year  int
	Month time.Month
}

type monthBalance struct {
	date     civil.Date
	number   decimal.Decimal
	currency string
}

// BalanceCheckpoints derives one balance assertion per (account, calendar
// month) from the running balances the statements report: the balance
// after the chronologically last transaction of the month, asserted on the
// first day of the following month so it holds under the journal's
// start-of-day convention.
//
// The month containing today is still accumulating and is never asserted;
// asserting a half-finished balance would fail as soon as the next
// statement arrives. Transactions that opted into the sequence fallback
// did so because the statement reports no trustworthy running balance, so
// they are excluded here too.
func BalanceCheckpoints(observed []Observed, accounts *AccountMap, today civil.Date) []PendingEntry {
	type acctMonth struct {
		account string
		month   monthKey
	}
	last := make(map[acctMonth]monthBalance)

	for _, o := range observed {
		if o.SequenceInFingerprint {
			continue
		}
		account, ok := accounts.Resolve(o.AccountID)
		if !ok {
			continue
		}
		key := acctMonth{account: account, month: monthKey{Year: o.Date.Year, Month: o.Date.Month}}
		prev, seen := last[key]
		// Later dates win; on the same date the later statement row wins.
		if !seen || !o.Date.Before(prev.date) {
			last[key] = monthBalance{date: o.Date, number: o.BalanceAfter, currency: o.Currency}
		}
	}

	currentMonth := monthKey{Year: today.Year, Month: today.Month}

	keys := make([]acctMonth, 0, len(last))
	for key := range last {
		if key.month == currentMonth {
			continue
		}
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].account != keys[j].account {
			return keys[i].account < keys[j].account
		}
		if keys[i].month.Year != keys[j].month.Year {
			return keys[i].month.Year < keys[j].month.Year
		}
		return keys[i].month.Month < keys[j].month.Month
	})

	entries := make([]PendingEntry, 0, len(keys))
	for _, key := range keys {
		bal := last[key]
		date := firstOfNextMonth(key.month)
		entries = append(entries, PendingEntry{
			Date: date,
			Entry: &ledger.Balance{
				Date:    date,
				Account: key.account,
				Amount:  ledger.NewAmount(bal.number, bal.currency),
			},
		})
	}
	return entries
}

func firstOfNextMonth(m monthKey) civil.Date {
	if m.Month == time.December {
		return civil.Date{Year: m.Year + 1, Month: time.January, Day: 1}
	}
	return civil.Date{Year: m.Year, Month: m.Month + 1, Day: 1}
}
