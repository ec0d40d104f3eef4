package timetable

import (
	"fmt"
	"slices"
	"strings"

	"ncanimate/internal/catalog"
	"ncanimate/internal/daterange"
	"ncanimate/internal/metadata"
	"ncanimate/internal/services"
	"ncanimate/internal/textutil"
)

// Frame is one frame step and the input files that feed it, one per input
// definition that has data at the frame's start.
type Frame struct {
	Range      daterange.Range
	Inputs     []metadata.InputFile
	Identities IdentitySet
}

// HasData reports whether any input feeds the frame.
func (f Frame) HasData() bool {
	return !f.Identities.Empty()
}

// Output is one requested map or video for a region and height.
type Output struct {
	ID        string
	Name      string
	Kind      catalog.Kind
	Region    catalog.Region
	Height    catalog.Height
	Range     daterange.Range
	Files     []catalog.RenderFile
	Frames    []Frame
	Inputs    []metadata.InputFile
	Signature string
}

// FileName is the output file name for one render file.
func (o Output) FileName(file catalog.RenderFile) string {
	if file.ID == "" || file.ID == file.Format {
		return o.Name + "." + file.Format
	}
	return o.Name + "_" + textutil.SanitizeToken(file.ID) + "." + file.Format
}

// Options narrows what Build plans.
type Options struct {
	// Region limits planning to one region ID when set.
	Region string
}

// Timetable is the frame schedule and requested outputs for one product.
type Timetable struct {
	Product *catalog.Product
	Span    daterange.Range
	Regions []catalog.Region
	Frames  []Frame
	Maps    []Output
	Videos  []Output
}

// Outputs returns maps followed by videos.
func (t *Timetable) Outputs() []Output {
	out := make([]Output, 0, len(t.Maps)+len(t.Videos))
	out = append(out, t.Maps...)
	return append(out, t.Videos...)
}

// FramesIn returns the frames lying inside r.
func (t *Timetable) FramesIn(r daterange.Range) []Frame {
	var out []Frame
	for _, frame := range t.Frames {
		if r.Contains(frame.Range) {
			out = append(out, frame)
		}
	}
	return out
}

// Build plans frames and outputs for product from the available input files.
// Input files of definitions the product does not use are ignored.
func Build(product *catalog.Product, inputs []metadata.InputFile, opts Options) (*Timetable, error) {
	if product == nil {
		return nil, services.Wrap(services.ErrConfiguration, "timetable", "build", "product is required", nil)
	}
	regions, err := selectRegions(product, opts.Region)
	if err != nil {
		return nil, err
	}

	byDefinition := map[string][]metadata.InputFile{}
	definitions := product.DefinitionIDs()
	for _, file := range inputs {
		if slices.Contains(definitions, file.DefinitionID) {
			byDefinition[file.DefinitionID] = append(byDefinition[file.DefinitionID], file)
		}
	}

	table := &Timetable{Product: product, Regions: regions}
	table.Span = span(byDefinition)
	if table.Span.Start.IsZero() || table.Span.End.IsZero() {
		return table, nil
	}

	for _, r := range product.FrameTimeIncrement.Partition(table.Span) {
		table.Frames = append(table.Frames, buildFrame(r, definitions, byDefinition))
	}

	if len(product.Files(catalog.KindMap)) > 0 {
		table.Maps = table.mapOutputs()
	}
	if len(product.Files(catalog.KindVideo)) > 0 {
		table.Videos = table.videoOutputs()
	}
	return table, nil
}

func selectRegions(product *catalog.Product, regionID string) ([]catalog.Region, error) {
	if len(product.Regions) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "timetable", "regions",
			fmt.Sprintf("product %s defines no regions", product.ID), nil)
	}
	regionID = strings.TrimSpace(regionID)
	if regionID == "" {
		return product.Regions, nil
	}
	region, ok := product.Region(regionID)
	if !ok {
		return nil, services.Wrap(services.ErrConfiguration, "timetable", "regions",
			fmt.Sprintf("product %s has no region %q", product.ID, regionID), nil)
	}
	return []catalog.Region{region}, nil
}

// span is the union of the bounded input files. Files without bounds apply to
// every frame but do not widen the span.
func span(byDefinition map[string][]metadata.InputFile) daterange.Range {
	var out daterange.Range
	for _, files := range byDefinition {
		for _, file := range files {
			if file.Start.IsZero() || file.End.IsZero() {
				continue
			}
			if out.Start.IsZero() || file.Start.Before(out.Start) {
				out.Start = file.Start.UTC()
			}
			if out.End.IsZero() || file.End.After(out.End) {
				out.End = file.End.UTC()
			}
		}
	}
	return out
}

func buildFrame(r daterange.Range, definitions []string, byDefinition map[string][]metadata.InputFile) Frame {
	frame := Frame{Range: r}
	ids := make([]string, 0, len(definitions))
	for _, definition := range definitions {
		file, ok := coveringFile(r, byDefinition[definition])
		if !ok {
			continue
		}
		frame.Inputs = append(frame.Inputs, file)
		ids = append(ids, file.ID)
	}
	frame.Identities = NewIdentitySet(ids...)
	return frame
}

// coveringFile picks the most recently modified file whose time span holds
// the frame's start instant. Ties go to the smaller ID.
func coveringFile(r daterange.Range, files []metadata.InputFile) (metadata.InputFile, bool) {
	var (
		best  metadata.InputFile
		found bool
	)
	for _, file := range files {
		if !file.Start.IsZero() && file.Start.After(r.Start) {
			continue
		}
		if !file.End.IsZero() && !file.End.After(r.Start) {
			continue
		}
		if !found || file.LastModified.After(best.LastModified) ||
			(file.LastModified.Equal(best.LastModified) && file.ID < best.ID) {
			best, found = file, true
		}
	}
	return best, found
}

func (t *Timetable) mapOutputs() []Output {
	product := t.Product
	var outputs []Output
	for _, frame := range t.Frames {
		if !frame.HasData() {
			continue
		}
		for _, region := range t.Regions {
			for _, height := range product.Heights() {
				outputs = append(outputs, t.newOutput(catalog.KindMap, product.FrameTimeIncrement, region, height, frame.Range, []Frame{frame}))
			}
		}
	}
	return outputs
}

func (t *Timetable) videoOutputs() []Output {
	product := t.Product
	var outputs []Output
	for _, partition := range product.VideoTimeIncrement.Partition(t.Span) {
		if partition.IsAllTime() {
			partition = t.Span
		}
		var frames []Frame
		for _, frame := range t.FramesIn(partition) {
			if frame.HasData() {
				frames = append(frames, frame)
			}
		}
		if len(frames) == 0 {
			continue
		}
		for _, region := range t.Regions {
			for _, height := range product.Heights() {
				outputs = append(outputs, t.newOutput(catalog.KindVideo, product.VideoTimeIncrement, region, height, partition, frames))
			}
		}
	}
	return outputs
}

func (t *Timetable) newOutput(kind catalog.Kind, inc catalog.TimeIncrement, region catalog.Region, height catalog.Height, r daterange.Range, frames []Frame) Output {
	name := OutputName(t.Product.ID, kind, inc, r, region.ID, height)
	return Output{
		ID:        textutil.SafeID(t.Product.ID + "/" + name),
		Name:      name,
		Kind:      kind,
		Region:    region,
		Height:    height,
		Range:     r,
		Files:     t.Product.Files(kind),
		Frames:    frames,
		Inputs:    distinctInputs(frames),
		Signature: t.Product.Signature(kind, region.ID),
	}
}

// OutputName is "<product>_<kind>_<increment>_<date>_<region>_<height>".
func OutputName(productID string, kind catalog.Kind, inc catalog.TimeIncrement, r daterange.Range, regionID string, height catalog.Height) string {
	date := "all"
	if layout := inc.DateLayout(); layout != "" && !r.Start.IsZero() {
		date = r.Start.UTC().Format(layout)
	}
	return strings.Join([]string{productID, string(kind), inc.Label(), date, regionID, height.String()}, "_")
}

func distinctInputs(frames []Frame) []metadata.InputFile {
	seen := map[string]bool{}
	var out []metadata.InputFile
	for _, frame := range frames {
		for _, file := range frame.Inputs {
			if seen[file.ID] {
				continue
			}
			seen[file.ID] = true
			out = append(out, file)
		}
	}
	slices.SortFunc(out, func(a, b metadata.InputFile) int { return strings.Compare(a.ID, b.ID) })
	return out
}
