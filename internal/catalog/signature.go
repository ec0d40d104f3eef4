package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Signature fingerprints the generation parameters of one output family for
// one region. A stored output whose signature differs was produced from an
// older definition and must be regenerated.
func (p *Product) Signature(kind Kind, regionID string) string {
	var b strings.Builder
	field := func(values ...string) {
		b.WriteString(strings.Join(values, "\x1f"))
		b.WriteByte('\x1e')
	}
	field("product", p.ID)
	field("kind", string(kind))
	field("region", regionID)
	field("frame", p.FrameTimeIncrement.String())
	if kind == KindVideo {
		field("video", p.VideoTimeIncrement.String())
	}
	heights := make([]string, 0, len(p.TargetHeights))
	for _, h := range p.Heights() {
		heights = append(heights, h.String())
	}
	field(append([]string{"heights"}, heights...)...)
	for _, input := range p.Inputs {
		field("input", input.Layer, input.DefinitionID)
	}
	for _, file := range p.Files(kind) {
		switch {
		case file.Map != nil:
			field("map", file.ID, file.Format, strconv.Itoa(file.Map.Width), strconv.Itoa(file.Map.Height))
		case file.Video != nil:
			field(append([]string{"video", file.ID, file.Format,
				strconv.Itoa(file.Video.FPS), strconv.Itoa(file.Video.Width), strconv.Itoa(file.Video.Height)},
				file.Video.CommandLines...)...)
		}
	}
	return fmt.Sprintf("%016x", xxhash.Sum64String(b.String()))
}
