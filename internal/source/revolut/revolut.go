// Package revolut reads Revolut CSV statements. Two CSV layouts exist:
// regular account exports, which mix currencies and carry a State column,
// and credit-card exports, which carry a single implicit currency.
// Statements live under subdirectories naming the account type, e.g.
// personal/, creditcard/, pro/.
package revolut

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/dvloznov/ledger-import/internal/importer"
	"github.com/dvloznov/ledger-import/internal/ledger"
	"github.com/dvloznov/ledger-import/internal/logger"
	"github.com/dvloznov/ledger-import/internal/source"
)

// Name is the source type this package registers.
const Name = "revolut"

func init() {
	source.Register(Name, func(cfg source.Config) (source.Source, error) {
		return New(cfg)
	})
}

// Source loads Revolut statements from a directory tree.
type Source struct {
	dir      string
	accounts *importer.AccountMap
	currency string
	renamer  source.Renamer
}

// New builds the source. The account map keys are accounttype_currency,
// e.g. "personal_PLN" or "creditcard_PLN". Config.Currency sets the
// credit-card statement currency and defaults to PLN.
func New(cfg source.Config) (*Source, error) {
	accounts, err := importer.NewAccountMap(cfg.AccountMap, cfg.DefaultAccount)
	if err != nil {
		return nil, fmt.Errorf("revolut.New: %w", err)
	}
	currency := cfg.Currency
	if currency == "" {
		currency = "PLN"
	}
	renamer := cfg.Renamer
	if renamer == nil {
		renamer = source.DiskRenamer{}
	}
	return &Source{dir: cfg.Directory, accounts: accounts, currency: currency, renamer: renamer}, nil
}

// Name implements source.Source.
func (s *Source) Name() string { return Name }

// Load implements source.Source.
func (s *Source) Load(ctx context.Context) (importer.Batch, error) {
	log := logger.FromContext(ctx)

	paths, err := csvPaths(s.dir)
	if err != nil {
		return importer.Batch{}, fmt.Errorf("revolut.Load: %w", err)
	}

	var observed []importer.Observed
	files := 0
	for _, path := range paths {
		path, err := s.renamer.EnsureSuffix(path)
		if err != nil {
			log.Warn().Err(err).Str("file", path).Msg("revolut: keeping original filename")
		}

		stmts, err := s.readFile(path)
		if err != nil {
			log.Warn().Err(err).Str("file", path).Msg("revolut: skipping statement")
			continue
		}
		files++
		for _, stmt := range stmts {
			for _, txn := range stmt.Transactions {
				observed = append(observed, observe(stmt, txn))
			}
		}
	}

	log.Info().Int("files", files).Int("transactions", len(observed)).Msg("revolut: loaded statements")
	return importer.Batch{Kind: Name, Accounts: s.accounts, Observed: observed}, nil
}

func csvPaths(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".csv") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// readFile detects the CSV layout from the header line and parses the
// file. The account type for regular exports is the statement's
// subdirectory under the source root.
func (s *Source) readFile(path string) ([]*Statement, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	header, err := br.ReadString('\n')
	if err != nil && header == "" {
		return nil, fmt.Errorf("readFile: %w", err)
	}
	format, err := DetectFormat(header)
	if err != nil {
		return nil, err
	}

	rest, err := io.ReadAll(br)
	if err != nil {
		return nil, fmt.Errorf("readFile: %w", err)
	}

	full := strings.NewReader(header + string(rest))
	switch format {
	case FormatCreditCard:
		stmt, err := ParseCreditCardCSV(full, path, s.currency)
		if err != nil {
			return nil, err
		}
		return []*Statement{stmt}, nil
	default:
		return ParseAccountCSV(full, path, s.accountType(path))
	}
}

func (s *Source) accountType(path string) string {
	rel, err := filepath.Rel(s.dir, path)
	if err != nil {
		return "personal"
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) < 2 {
		return "personal"
	}
	return parts[0]
}

var (
	transferRe = regexp.MustCompile(`(?i)^Transfer\s+(?:to|from)\s+(.+)$`)
	paymentRe  = regexp.MustCompile(`(?i)^Payment\s+(?:to|from)\s+(.+)$`)
)

// isInternal reports whether a description names a Revolut-internal
// operation (vault moves, plan fees, exchanges) rather than an external
// counterparty.
func isInternal(desc string) bool {
	lower := strings.ToLower(desc)
	switch {
	case strings.HasPrefix(desc, "To "),
		strings.HasPrefix(desc, "From "),
		strings.HasPrefix(desc, "Credit card"),
		strings.HasPrefix(desc, "Apple Pay"),
		strings.HasPrefix(desc, "Exchanged"):
		return true
	}
	return strings.Contains(lower, "portfolio") ||
		strings.Contains(lower, "plan fee") ||
		strings.Contains(lower, "plan termination") ||
		strings.Contains(lower, "refund") ||
		strings.Contains(lower, "fee")
}

func observe(stmt *Statement, txn Transaction) importer.Observed {
	displayType := normalizeType(txn.Type)
	desc := txn.Description

	var payee, counterparty string
	if isInternal(desc) {
		payee = "Revolut"
	} else {
		if m := transferRe.FindStringSubmatch(desc); m != nil {
			payee = strings.TrimSpace(m[1])
		} else if m := paymentRe.FindStringSubmatch(desc); m != nil {
			payee = strings.TrimSpace(m[1])
		} else {
			payee = desc
		}
		counterparty = payee
	}

	narration := displayType
	if isInternal(desc) && desc != "" {
		narration = desc
	}

	attrs := []ledger.Meta{
		{Key: importer.SourceBankKey, Value: "Revolut"},
	}
	add := func(key, value string) {
		if value != "" {
			attrs = append(attrs, ledger.Meta{Key: key, Value: value})
		}
	}
	add(importer.TransactionTypeKey, displayType)
	add(importer.CounterpartyKey, counterparty)
	if !txn.Fee.IsZero() {
		add(feeKey, ledger.FormatNumber(txn.Fee))
	}
	if txn.BalanceKnown {
		add(balanceKey, ledger.FormatNumber(txn.BalanceAfter))
	}
	add(startedDateKey, txn.StartedRaw)
	add(completedDateKey, txn.CompletedRaw)
	add(importer.SourceDocKey, filepath.Base(stmt.Filename))

	return importer.Observed{
		Kind:         Name,
		Date:         txn.EntryDate(),
		Amount:       txn.Amount,
		Currency:     txn.Currency,
		BalanceAfter: txn.BalanceAfter,
		AccountID:    stmt.AccountID(),
		Payee:        payee,
		Narration:    narration,
		Attributes:   attrs,
		Source: importer.Provenance{
			File: stmt.Filename,
			Line: txn.Line,
		},
		// Rows without a balance cell cannot rely on the running balance
		// for identity. The statement file's name is pinned by its unique
		// suffix, so the row's position within it is stable.
		SequenceInFingerprint: !txn.BalanceKnown,
	}
}

// Metadata keys specific to this source's statement columns.
const (
	feeKey           = "fee"
	balanceKey       = "balance"
	startedDateKey   = "started_date"
	completedDateKey = "completed_date"
)
