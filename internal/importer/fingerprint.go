package importer

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/dvloznov/ledger-import/internal/ledger"
)

// fingerprintLen is the number of hex digits kept from the digest. 48 bits
// is plenty for the few thousand transactions a personal journal sees, and
// keeps the metadata line short.
const fingerprintLen = 12

// Fingerprint derives the stable identifier for an observed transaction.
// It hashes only fields that survive re-extraction of the same statement:
// date, amount and the running balance after the transaction. Description
// text is deliberately excluded: upstream extraction is not byte-stable
// (whitespace, line wrapping), and including it would stage duplicates on
// every re-run.
//
// Two distinct transactions collide only when they share a day, an amount
// and the resulting balance; real statements avoid this because the
// running balance moves with every transaction.
//
// Changing this function's inputs is a breaking change: every identifier
// already written into a journal stops matching and is reported stale,
// requiring a manual migration.
func Fingerprint(o Observed) string {
	parts := []string{
		o.Date.String(),
		ledger.FormatNumber(o.Amount),
		ledger.FormatNumber(o.BalanceAfter),
	}
	if o.SequenceInFingerprint {
		parts = append(parts, strconv.Itoa(o.Source.Line))
	}
	sum := md5.Sum([]byte(strings.Join(parts, ":")))
	return o.Kind + ":" + hex.EncodeToString(sum[:])[:fingerprintLen]
}
