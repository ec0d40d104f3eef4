// Package ledger records the date ranges whose frames have been rendered in
// the current run and answers whether an output's whole range is covered.
package ledger

import "ncanimate/internal/daterange"

// Ledger holds maximally merged rendered ranges. The zero value is empty and
// ready to use. It is not safe for concurrent use.
type Ledger struct {
	ranges []daterange.Range
}

// Add records r as rendered and re-merges the coverage.
func (l *Ledger) Add(r daterange.Range) {
	l.ranges = daterange.Merge(append(l.ranges, r))
}

// IsReady reports whether a single merged entry contains r.
func (l *Ledger) IsReady(r daterange.Range) bool {
	for _, entry := range l.ranges {
		if entry.Contains(r) {
			return true
		}
	}
	return false
}

// Ranges returns a copy of the merged coverage.
func (l *Ledger) Ranges() []daterange.Range {
	return append([]daterange.Range(nil), l.ranges...)
}

// Len is the number of merged entries.
func (l *Ledger) Len() int {
	return len(l.ranges)
}
