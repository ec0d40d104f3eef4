package catalog

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Kind distinguishes the two output product families.
type Kind string

const (
	KindMap   Kind = "map"
	KindVideo Kind = "video"
)

// Region is a named geographic extent a product is rendered for.
type Region struct {
	ID    string `toml:"id"`
	Label string `toml:"label"`
}

// Input links a rendered layer to the input dataset definition feeding it.
type Input struct {
	Layer        string `toml:"layer"`
	DefinitionID string `toml:"definition_id"`
}

// MapRender describes a still image output. Zero Width and Height keep the
// frame's own size.
type MapRender struct {
	Width  int
	Height int
}

// VideoRender describes an animation output. CommandLines run in order to
// encode the linked frame sequence; zip videos need none.
type VideoRender struct {
	FPS          int
	Width        int
	Height       int
	CommandLines []string
}

// RenderFile is a closed variant: exactly one of Map or Video is set and
// Kind says which.
type RenderFile struct {
	ID     string
	Kind   Kind
	Format string
	Map    *MapRender
	Video  *VideoRender
}

// Product is a product definition as consumed by the scheduler.
type Product struct {
	ID                 string
	Title              string
	Worker             string
	FrameTimeIncrement TimeIncrement
	VideoTimeIncrement TimeIncrement
	TargetHeights      []float64
	Regions            []Region
	Inputs             []Input
	RenderFiles        []RenderFile
	Properties         map[string]string
}

type productFile struct {
	ID                 string            `toml:"id"`
	Title              string            `toml:"title"`
	Worker             string            `toml:"worker"`
	FrameTimeIncrement TimeIncrement     `toml:"frame_time_increment"`
	VideoTimeIncrement TimeIncrement     `toml:"video_time_increment"`
	TargetHeights      []float64         `toml:"target_heights"`
	Regions            []Region          `toml:"regions"`
	Inputs             []Input           `toml:"inputs"`
	Files              []renderFileSpec  `toml:"render_files"`
	Properties         map[string]string `toml:"properties"`
}

type renderFileSpec struct {
	ID           string   `toml:"id"`
	Type         string   `toml:"type"`
	Format       string   `toml:"format"`
	FPS          int      `toml:"fps"`
	Width        int      `toml:"width"`
	Height       int      `toml:"height"`
	CommandLines []string `toml:"command_lines"`
}

// Parse decodes and validates a product definition.
func Parse(data []byte) (*Product, error) {
	var raw productFile
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse product definition: %w", err)
	}
	product := &Product{
		ID:                 strings.TrimSpace(raw.ID),
		Title:              strings.TrimSpace(raw.Title),
		Worker:             strings.TrimSpace(raw.Worker),
		FrameTimeIncrement: raw.FrameTimeIncrement,
		VideoTimeIncrement: raw.VideoTimeIncrement,
		TargetHeights:      raw.TargetHeights,
		Regions:            raw.Regions,
		Inputs:             raw.Inputs,
		Properties:         raw.Properties,
	}
	for _, spec := range raw.Files {
		file, err := spec.toRenderFile()
		if err != nil {
			return nil, fmt.Errorf("product %s: %w", product.ID, err)
		}
		product.RenderFiles = append(product.RenderFiles, file)
	}
	if err := product.Validate(); err != nil {
		return nil, err
	}
	return product, nil
}

func (s renderFileSpec) toRenderFile() (RenderFile, error) {
	file := RenderFile{
		ID:     strings.TrimSpace(s.ID),
		Kind:   Kind(strings.ToLower(strings.TrimSpace(s.Type))),
		Format: strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s.Format), ".")),
	}
	if file.ID == "" {
		file.ID = file.Format
	}
	switch file.Kind {
	case KindMap:
		file.Map = &MapRender{Width: s.Width, Height: s.Height}
	case KindVideo:
		file.Video = &VideoRender{FPS: s.FPS, Width: s.Width, Height: s.Height, CommandLines: s.CommandLines}
	default:
		return RenderFile{}, fmt.Errorf("render file %q: unknown type %q", file.ID, s.Type)
	}
	return file, nil
}

// Validate checks the invariants the scheduler relies on.
func (p *Product) Validate() error {
	if p.ID == "" {
		return errors.New("product definition: id is required")
	}
	if p.FrameTimeIncrement.IsZero() || p.FrameTimeIncrement.Unit == UnitAll {
		return fmt.Errorf("product %s: frame_time_increment must be a calendar increment", p.ID)
	}
	if len(p.Inputs) == 0 {
		return fmt.Errorf("product %s: at least one input is required", p.ID)
	}
	for _, input := range p.Inputs {
		if strings.TrimSpace(input.DefinitionID) == "" {
			return fmt.Errorf("product %s: input %q has no definition_id", p.ID, input.Layer)
		}
	}
	seen := map[string]bool{}
	for _, region := range p.Regions {
		if strings.TrimSpace(region.ID) == "" {
			return fmt.Errorf("product %s: region without id", p.ID)
		}
		if seen[region.ID] {
			return fmt.Errorf("product %s: duplicate region %q", p.ID, region.ID)
		}
		seen[region.ID] = true
	}
	ids := map[string]bool{}
	for _, file := range p.RenderFiles {
		if file.Format == "" {
			return fmt.Errorf("product %s: render file %q has no format", p.ID, file.ID)
		}
		if ids[file.ID] {
			return fmt.Errorf("product %s: duplicate render file %q", p.ID, file.ID)
		}
		ids[file.ID] = true
		if (file.Kind == KindMap) != (file.Map != nil) || (file.Kind == KindVideo) != (file.Video != nil) {
			return fmt.Errorf("product %s: render file %q is inconsistent with its kind", p.ID, file.ID)
		}
		if file.Kind == KindVideo {
			if p.VideoTimeIncrement.IsZero() {
				return fmt.Errorf("product %s: video render files need video_time_increment", p.ID)
			}
			if file.Video.FPS <= 0 {
				return fmt.Errorf("product %s: video %q needs a positive fps", p.ID, file.ID)
			}
			if file.Format != "zip" && len(file.Video.CommandLines) == 0 {
				return fmt.Errorf("product %s: video %q needs command_lines", p.ID, file.ID)
			}
		}
	}
	return nil
}

// Region returns the region with the given ID.
func (p *Product) Region(id string) (Region, bool) {
	for _, region := range p.Regions {
		if region.ID == id {
			return region, true
		}
	}
	return Region{}, false
}

// Heights lists the target heights, or a single unset height when none are
// configured.
func (p *Product) Heights() []Height {
	if len(p.TargetHeights) == 0 {
		return []Height{{}}
	}
	out := make([]Height, 0, len(p.TargetHeights))
	for _, v := range p.TargetHeights {
		out = append(out, HeightOf(v))
	}
	return out
}

// Files returns the render files of one kind.
func (p *Product) Files(kind Kind) []RenderFile {
	var out []RenderFile
	for _, file := range p.RenderFiles {
		if file.Kind == kind {
			out = append(out, file)
		}
	}
	return out
}

// DefinitionIDs lists the distinct input definitions, sorted.
func (p *Product) DefinitionIDs() []string {
	ids := make([]string, 0, len(p.Inputs))
	for _, input := range p.Inputs {
		if !slices.Contains(ids, input.DefinitionID) {
			ids = append(ids, input.DefinitionID)
		}
	}
	slices.Sort(ids)
	return ids
}

// IsRaster reports whether format is a pixel image format that can be resized.
func IsRaster(format string) bool {
	switch strings.ToLower(format) {
	case "png", "gif", "jpg", "jpeg":
		return true
	default:
		return false
	}
}

// Height is an optional target depth. The zero value means "not set".
type Height struct {
	value float64
	set   bool
}

// HeightOf returns a set height.
func HeightOf(v float64) Height {
	return Height{value: v, set: true}
}

// Value returns the height and whether it is set.
func (h Height) Value() (float64, bool) {
	return h.value, h.set
}

// String renders whole numbers with one decimal ("-49.0") and others as
// needed ("-1.5"). Unset heights render as "default".
func (h Height) String() string {
	if !h.set {
		return "default"
	}
	if h.value == math.Trunc(h.value) {
		return strconv.FormatFloat(h.value, 'f', 1, 64)
	}
	return strconv.FormatFloat(h.value, 'f', -1, 64)
}
