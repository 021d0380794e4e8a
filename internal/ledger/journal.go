package ledger

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Journal is a read-only snapshot of the entries in a journal file. Only
// the directive kinds the import engine cares about are retained;
// everything else (open/close, prices, documents) is skipped.
type Journal struct {
	Transactions []*Transaction
	Balances     []*Balance
}

var (
	quotedRe  = regexp.MustCompile(`"((?:[^"\\]|\\.)*)"`)
	metaRe    = regexp.MustCompile(`^([a-z][A-Za-z0-9_-]*):\s+"(.*)"\s*$`)
	accountRe = regexp.MustCompile(`^[A-Z][A-Za-z0-9\-]*(:[A-Za-z0-9\-]+)+$`)
)

// Read parses the journal file at path.
func Read(path string) (*Journal, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("Read: open journal: %w", err)
	}
	defer f.Close()
	return Parse(f, path)
}

// Parse reads journal text from r. filename is recorded on each parsed
// entry for diagnostics. The parser is deliberately shallow: it extracts
// transactions with their postings and posting metadata, and balance
// assertions. Costs, prices and unknown directives are ignored.
func Parse(r io.Reader, filename string) (*Journal, error) {
	j := &Journal{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var current *Transaction
	lineNo := 0

	flush := func() {
		if current != nil {
			j.Transactions = append(j.Transactions, current)
			current = nil
		}
	}

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		if trimmed == "" || strings.HasPrefix(trimmed, ";") {
			continue
		}

		indented := line != trimmed && (line[0] == ' ' || line[0] == '\t')
		if !indented {
			flush()
			parseTopLevel(j, &current, trimmed, filename, lineNo)
			continue
		}

		if current == nil {
			continue
		}
		if m := metaRe.FindStringSubmatch(trimmed); m != nil {
			// Metadata attaches to the most recent posting. Entry-level
			// metadata (before the first posting) is not used by the
			// engine and is dropped.
			if n := len(current.Postings); n > 0 {
				p := &current.Postings[n-1]
				p.Meta = append(p.Meta, Meta{Key: m[1], Value: unescape(m[2])})
			}
			continue
		}
		if p, ok := parsePosting(trimmed, lineNo); ok {
			current.Postings = append(current.Postings, p)
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("Parse: reading %s: %w", filename, err)
	}
	return j, nil
}

// parseTopLevel handles an unindented journal line. It either opens a new
// transaction (written into *current) or appends a balance assertion.
func parseTopLevel(j *Journal, current **Transaction, line, filename string, lineNo int) {
	if len(line) < 10 {
		return
	}
	date, err := civil.ParseDate(line[:10])
	if err != nil {
		return
	}
	rest := strings.TrimSpace(line[10:])

	switch {
	case strings.HasPrefix(rest, "balance "):
		fields := strings.Fields(strings.TrimPrefix(rest, "balance "))
		if len(fields) < 3 {
			return
		}
		number, err := decimal.NewFromString(fields[1])
		if err != nil {
			return
		}
		j.Balances = append(j.Balances, &Balance{
			Date:       date,
			Account:    fields[0],
			Amount:     NewAmount(number, fields[2]),
			SourceFile: filename,
			Line:       lineNo,
		})

	case strings.HasPrefix(rest, "*") || strings.HasPrefix(rest, "!") || strings.HasPrefix(rest, "txn"):
		flag := FlagOkay
		if strings.HasPrefix(rest, "!") {
			flag = "!"
		}
		payee, narration := parseHeaderStrings(rest)
		*current = &Transaction{
			Date:       date,
			Flag:       flag,
			Payee:      payee,
			Narration:  narration,
			SourceFile: filename,
			Line:       lineNo,
		}
	}
}

// parseHeaderStrings pulls the quoted payee/narration pair off a
// transaction header. With a single quoted string it is the narration.
func parseHeaderStrings(rest string) (payee, narration string) {
	matches := quotedRe.FindAllStringSubmatch(rest, -1)
	switch len(matches) {
	case 0:
		return "", ""
	case 1:
		return "", unescape(matches[0][1])
	default:
		return unescape(matches[0][1]), unescape(matches[1][1])
	}
}

// parsePosting parses an indented posting line: account, then optionally
// amount and currency. Cost and price annotations after the currency are
// ignored.
func parsePosting(trimmed string, lineNo int) (Posting, bool) {
	if i := strings.Index(trimmed, " ;"); i >= 0 {
		trimmed = strings.TrimSpace(trimmed[:i])
	}
	fields := strings.Fields(trimmed)
	if len(fields) == 0 || !accountRe.MatchString(fields[0]) {
		return Posting{}, false
	}
	p := Posting{Account: fields[0], Line: lineNo}
	if len(fields) >= 3 {
		if number, err := decimal.NewFromString(fields[1]); err == nil {
			p.Amount = NewAmount(number, fields[2])
		}
	}
	return p, true
}

func unescape(s string) string {
	s = strings.ReplaceAll(s, `\"`, `"`)
	return strings.ReplaceAll(s, `\\`, `\`)
}
