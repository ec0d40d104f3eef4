package timetable

import (
	"fmt"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// IdentitySet is the sorted, de-duplicated set of input file IDs feeding a
// frame. Frames sharing an identity set can be rendered together.
type IdentitySet []string

// NewIdentitySet normalizes ids into an IdentitySet. Blank IDs are dropped.
func NewIdentitySet(ids ...string) IdentitySet {
	set := make(IdentitySet, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			set = append(set, id)
		}
	}
	slices.Sort(set)
	return slices.Compact(set)
}

// Empty reports whether no input feeds the frame.
func (s IdentitySet) Empty() bool {
	return len(s) == 0
}

// Equal reports whether both sets hold the same IDs.
func (s IdentitySet) Equal(o IdentitySet) bool {
	return slices.Equal(s, o)
}

// Key is the canonical grouping key.
func (s IdentitySet) Key() string {
	return strings.Join(s, "\x1f")
}

// Fingerprint is a short hash of Key for log output.
func (s IdentitySet) Fingerprint() string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(s.Key()))
}

func (s IdentitySet) String() string {
	return "{" + strings.Join(s, ", ") + "}"
}
