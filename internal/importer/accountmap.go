package importer

import "errors"

// ErrNoAccounts is returned when an account map is constructed with
// neither explicit mappings nor a fallback account. This is the one fatal
// configuration error in the engine: without it every transaction of the
// source would be silently dropped.
var ErrNoAccounts = errors.New("account map requires at least one mapping or a fallback account")

// AccountMap resolves source account ids (IBAN_CURRENCY and similar keys)
// to journal account names, with an optional fallback for unmapped ids.
type AccountMap struct {
	byID     map[string]string
	fallback string
}

// NewAccountMap validates and builds an AccountMap.
func NewAccountMap(mapping map[string]string, fallback string) (*AccountMap, error) {
	if len(mapping) == 0 && fallback == "" {
		return nil, ErrNoAccounts
	}
	byID := make(map[string]string, len(mapping))
	for id, account := range mapping {
		byID[id] = account
	}
	return &AccountMap{byID: byID, fallback: fallback}, nil
}

// Resolve returns the journal account for a source account id. ok is false
// when the id is unmapped and no fallback is configured; the caller counts
// the transaction as skipped rather than failing the run.
func (m *AccountMap) Resolve(id string) (account string, ok bool) {
	if account, found := m.byID[id]; found {
		return account, true
	}
	if m.fallback != "" {
		return m.fallback, true
	}
	return "", false
}

// LedgerAccounts returns the set of journal accounts this source owns:
// every mapped account plus the fallback. The ledger index is restricted
// to this set so sources never see each other's identifiers.
func (m *AccountMap) LedgerAccounts() map[string]bool {
	owned := make(map[string]bool, len(m.byID)+1)
	for _, account := range m.byID {
		owned[account] = true
	}
	if m.fallback != "" {
		owned[m.fallback] = true
	}
	return owned
}
