// Package lotcode generates the batch identifiers stamped on production
// movements. A lot code has the form Q{YY}{NNNN}{AAAA}: two-digit year,
// 4-digit per-area sequence number and 4-digit analysis number.
//
// The sequence resets to 1 on the first production of a new year. "New year"
// is decided against the year of the area's most recent production record in
// the ledger, not the wall clock alone, so a multi-year gap still restarts
// the sequence at 1. The reset rule lives here as a pure function so it can
// be tested without a store; persistence lives in internal/domain/lot.
package lotcode

import (
	"fmt"
	"time"
)

// Prefix is the constant first character of every lot code.
const Prefix = "Q"

// NextCounter computes the sequence number for the next lot code.
//
// stored is the current counter value, or 0 when no counter row exists yet
// for the area. lastProductionYear is the year of the area's most recent
// production movement; nil when the area has never produced (no reset
// possible then).
func NextCounter(stored int64, lastProductionYear *int, currentYear int) int64 {
	if stored <= 0 {
		return 1
	}
	if lastProductionYear != nil && *lastProductionYear != currentYear {
		return 1
	}
	return stored + 1
}

// Format renders the lot code for an already-advanced counter.
// Counter and analysis number are zero-padded to 4 digits; values beyond
// 9999 simply widen the field rather than truncate.
func Format(now time.Time, counter int64, analysisNumber int) string {
	return fmt.Sprintf("%s%02d%04d%04d", Prefix, now.Year()%100, counter, analysisNumber)
}
