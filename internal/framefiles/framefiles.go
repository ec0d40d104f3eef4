package framefiles

import (
	"path/filepath"
	"sort"
	"time"

	"ncanimate/internal/catalog"
	"ncanimate/internal/daterange"
	"ncanimate/internal/timetable"
)

// StampLayout formats a frame's start in its file name.
const StampLayout = "2006-01-02_15h04"

// Key identifies one frame file: region, height, frame start and format.
type Key struct {
	Region string
	Height string
	Start  string
	Format string
}

// NewKey builds the key of the frame covering r.
func NewKey(region string, height catalog.Height, r daterange.Range, format string) Key {
	return Key{Region: region, Height: height.String(), Start: stamp(r.Start), Format: format}
}

func (k Key) String() string {
	return k.Region + "/" + k.Height + "/" + k.Start + "." + k.Format
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return "all"
	}
	return t.UTC().Format(StampLayout)
}

// Layout maps frame keys of one product to files under Root:
//
//	<root>/<product>/<region>/<height>/frame_<start>.<format>
//
// The frame worker writes to the same layout.
type Layout struct {
	Root        string
	ProductID   string
	VideoFormat string
}

// ProductDir is the directory holding every frame of the product.
func (l Layout) ProductDir() string {
	return filepath.Join(l.Root, l.ProductID)
}

// Dir is the directory holding the frames of one region and height.
func (l Layout) Dir(region string, height catalog.Height) string {
	return filepath.Join(l.ProductDir(), region, height.String())
}

// FramePath returns the on-disk location of the frame k.
func (l Layout) FramePath(k Key) string {
	return filepath.Join(l.ProductDir(), k.Region, k.Height, "frame_"+k.Start+"."+k.Format)
}

// ForOutput lists the frame files an output consumes. Maps need one frame per
// render file format; videos need every frame in the video frame format.
func (l Layout) ForOutput(out timetable.Output) Index {
	idx := Index{}
	for _, frame := range out.Frames {
		switch out.Kind {
		case catalog.KindMap:
			for _, file := range out.Files {
				idx.add(l, NewKey(out.Region.ID, out.Height, frame.Range, file.Format))
			}
		case catalog.KindVideo:
			idx.add(l, NewKey(out.Region.ID, out.Height, frame.Range, l.VideoFormat))
		}
	}
	return idx
}

// ForOutputs merges ForOutput over outs.
func (l Layout) ForOutputs(outs []timetable.Output) Index {
	idx := Index{}
	for _, out := range outs {
		idx.Merge(l.ForOutput(out))
	}
	return idx
}

// Index maps frame keys to paths.
type Index map[Key]string

func (idx Index) add(l Layout, k Key) {
	idx[k] = l.FramePath(k)
}

// Merge copies every entry of other into idx.
func (idx Index) Merge(other Index) {
	for k, path := range other {
		idx[k] = path
	}
}

// Contains reports whether path is referenced by the index.
func (idx Index) Contains(path string) bool {
	for _, p := range idx {
		if p == path {
			return true
		}
	}
	return false
}

// Paths returns the sorted file paths.
func (idx Index) Paths() []string {
	paths := make([]string, 0, len(idx))
	for _, p := range idx {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Ordered returns the paths sorted by frame start, for assembling videos.
func (idx Index) Ordered() []string {
	keys := make([]Key, 0, len(idx))
	for k := range idx {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Start != keys[j].Start {
			return keys[i].Start < keys[j].Start
		}
		return keys[i].String() < keys[j].String()
	})
	paths := make([]string, 0, len(keys))
	for _, k := range keys {
		paths = append(paths, idx[k])
	}
	return paths
}
