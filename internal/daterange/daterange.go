package daterange

import (
	"fmt"
	"sort"
	"time"
)

// Range is a half-open interval [Start, End). A zero Start or End leaves
// that side unbounded.
type Range struct {
	Start time.Time
	End   time.Time
}

// AllTime is the unbounded range. It contains every other range.
var AllTime = Range{}

// New returns the range [start, end) normalized to UTC.
func New(start, end time.Time) Range {
	r := Range{}
	if !start.IsZero() {
		r.Start = start.UTC()
	}
	if !end.IsZero() {
		r.End = end.UTC()
	}
	return r
}

// IsAllTime reports whether both sides are unbounded.
func (r Range) IsAllTime() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// Equal compares bounds by instant.
func (r Range) Equal(o Range) bool {
	return r.Start.Equal(o.Start) && r.End.Equal(o.End)
}

// Contains reports whether o lies entirely inside r.
func (r Range) Contains(o Range) bool {
	if !r.Start.IsZero() {
		if o.Start.IsZero() || o.Start.Before(r.Start) {
			return false
		}
	}
	return endCompare(o.End, r.End) <= 0
}

// Mergeable reports whether r and o overlap or touch.
func (r Range) Mergeable(o Range) bool {
	// r.Start <= o.End and o.Start <= r.End, with zero values unbounded.
	return startBeforeOrAtEnd(r.Start, o.End) && startBeforeOrAtEnd(o.Start, r.End)
}

// Compare orders by start, then by end. Unbounded starts sort first and
// unbounded ends sort last.
func (r Range) Compare(o Range) int {
	if c := startCompare(r.Start, o.Start); c != 0 {
		return c
	}
	return endCompare(r.End, o.End)
}

// Duration is the length of a bounded range; unbounded ranges report 0.
func (r Range) Duration() time.Duration {
	if r.Start.IsZero() || r.End.IsZero() {
		return 0
	}
	return r.End.Sub(r.Start)
}

func (r Range) String() string {
	if r.IsAllTime() {
		return "ALL_TIME"
	}
	return fmt.Sprintf("[%s, %s)", formatBound(r.Start), formatBound(r.End))
}

// Key is a stable map key for the range.
func (r Range) Key() string {
	return formatBound(r.Start) + "/" + formatBound(r.End)
}

func formatBound(t time.Time) string {
	if t.IsZero() {
		return "none"
	}
	return t.UTC().Format(time.RFC3339)
}

func startCompare(a, b time.Time) int {
	switch {
	case a.IsZero() && b.IsZero():
		return 0
	case a.IsZero():
		return -1
	case b.IsZero():
		return 1
	}
	return a.Compare(b)
}

func endCompare(a, b time.Time) int {
	switch {
	case a.IsZero() && b.IsZero():
		return 0
	case a.IsZero():
		return 1
	case b.IsZero():
		return -1
	}
	return a.Compare(b)
}

func startBeforeOrAtEnd(start, end time.Time) bool {
	if start.IsZero() || end.IsZero() {
		return true
	}
	return !start.After(end)
}

// Sort orders ranges in place using Compare.
func Sort(ranges []Range) {
	sort.SliceStable(ranges, func(i, j int) bool {
		return ranges[i].Compare(ranges[j]) < 0
	})
}

// Merge coalesces overlapping or adjacent ranges. The result is sorted by
// start and its members are pairwise disjoint and non-adjacent. The input
// slice is not modified.
func Merge(ranges []Range) []Range {
	if len(ranges) == 0 {
		return nil
	}
	sorted := make([]Range, len(ranges))
	copy(sorted, ranges)
	Sort(sorted)

	merged := make([]Range, 0, len(sorted))
	current := sorted[0]
	for _, next := range sorted[1:] {
		if current.Mergeable(next) {
			if endCompare(next.End, current.End) > 0 {
				current.End = next.End
			}
			continue
		}
		merged = append(merged, current)
		current = next
	}
	return append(merged, current)
}

// FillGaps returns the sorted covered ranges plus "no data" ranges for every
// uncovered part of bounding. Interior gaps are always added; leading and
// trailing gaps are added only when bounding is not AllTime. With no
// coverage a bounded range is returned as a single gap.
func FillGaps(covered []Range, bounding Range) []Range {
	if len(covered) == 0 {
		if bounding.IsAllTime() {
			return nil
		}
		return []Range{bounding}
	}
	sorted := make([]Range, len(covered))
	copy(sorted, covered)
	Sort(sorted)

	out := make([]Range, 0, len(sorted)*2+2)
	first := sorted[0]
	if !bounding.IsAllTime() && startCompare(bounding.Start, first.Start) < 0 {
		out = append(out, Range{Start: bounding.Start, End: first.Start})
	}

	lastEnd := first.End
	out = append(out, first)
	for _, r := range sorted[1:] {
		if !lastEnd.IsZero() && !r.Start.IsZero() && lastEnd.Before(r.Start) {
			out = append(out, Range{Start: lastEnd, End: r.Start})
		}
		out = append(out, r)
		if endCompare(r.End, lastEnd) > 0 {
			lastEnd = r.End
		}
	}

	if !bounding.IsAllTime() && !lastEnd.IsZero() && endCompare(lastEnd, bounding.End) < 0 {
		out = append(out, Range{Start: lastEnd, End: bounding.End})
	}
	return out
}
