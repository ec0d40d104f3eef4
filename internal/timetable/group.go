package timetable

import (
	"sort"

	"ncanimate/internal/daterange"
)

// IdentityGroup is the merged coverage of every frame fed by one identity set.
type IdentityGroup struct {
	Identities IdentitySet
	Ranges     []daterange.Range
}

func (g IdentityGroup) first() daterange.Range {
	if len(g.Ranges) == 0 {
		return daterange.Range{}
	}
	return g.Ranges[0]
}

// Group collects the frames lying inside bounding by identity set and merges
// each set's ranges. Frames without inputs are skipped; FillGaps turns their
// instants into no-data ranges later. Ranges belonging to different identity
// sets are never merged, even when they touch. Groups are returned in order
// of their earliest range.
func Group(bounding daterange.Range, frames []Frame) []IdentityGroup {
	byKey := map[string]*IdentityGroup{}
	for _, frame := range frames {
		if frame.Identities.Empty() || !bounding.Contains(frame.Range) {
			continue
		}
		key := frame.Identities.Key()
		group, ok := byKey[key]
		if !ok {
			group = &IdentityGroup{Identities: frame.Identities}
			byKey[key] = group
		}
		group.Ranges = append(group.Ranges, frame.Range)
	}

	groups := make([]IdentityGroup, 0, len(byKey))
	for _, group := range byKey {
		group.Ranges = daterange.Merge(group.Ranges)
		groups = append(groups, *group)
	}
	sort.Slice(groups, func(i, j int) bool {
		if c := groups[i].first().Compare(groups[j].first()); c != 0 {
			return c < 0
		}
		return groups[i].Identities.Key() < groups[j].Identities.Key()
	})
	return groups
}

// Flatten returns every range of every group in chronological order.
func Flatten(groups []IdentityGroup) []daterange.Range {
	var out []daterange.Range
	for _, group := range groups {
		out = append(out, group.Ranges...)
	}
	daterange.Sort(out)
	return out
}
