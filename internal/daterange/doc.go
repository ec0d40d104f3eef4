// Package daterange provides half-open time intervals and the interval
// arithmetic the generation scheduler depends on.
//
// Merge collapses overlapping or adjacent ranges into a canonical sorted set
// and FillGaps pads a sorted coverage set with the "no data" ranges needed to
// span a bounding range. AllTime is the unbounded sentinel; gap filling never
// invents leading or trailing ranges for it.
package daterange
