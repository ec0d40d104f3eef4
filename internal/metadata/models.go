package metadata

import (
	"time"

	"ncanimate/internal/daterange"
)

// TaskTypeNcAnimate is the only task type the generator accepts.
const TaskTypeNcAnimate = "ncanimate"

// StatusValid marks usable input files and product records.
const StatusValid = "VALID"

// RecordType is stored on every product record.
const RecordType = "NCANIMATE_PRODUCT"

// Task is a queued generation request.
type Task struct {
	ID        string
	Type      string
	ProductID string
	RegionID  string
	CreatedAt time.Time
}

// InputFile is one source dataset file known to the metadata store.
type InputFile struct {
	ID           string
	DefinitionID string
	URI          string
	Checksum     string
	Start        time.Time
	End          time.Time
	LastModified time.Time
	Status       string
}

// Range returns the time span the file covers.
func (f InputFile) Range() daterange.Range {
	return daterange.New(f.Start, f.End)
}

// RegionRef is the region block of a product record.
type RegionRef struct {
	ID    string `json:"id"`
	Label string `json:"label,omitempty"`
}

// InputRef records the provenance of one input file.
type InputRef struct {
	ID           string    `json:"id"`
	URI          string    `json:"uri"`
	Checksum     string    `json:"checksum,omitempty"`
	LastModified time.Time `json:"lastModified"`
}

// OutputRef describes one uploaded artifact of a product.
type OutputRef struct {
	ID     string `json:"id"`
	URI    string `json:"uri"`
	Type   string `json:"type"`
	Format string `json:"format"`
	FPS    int    `json:"fps,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// ProductRecord is the metadata saved for a finished map or video.
type ProductRecord struct {
	ID                 string      `json:"id"`
	DefinitionID       string      `json:"definitionId"`
	DatasetID          string      `json:"datasetId"`
	Type               string      `json:"type"`
	Status             string      `json:"status"`
	Kind               string      `json:"kind"`
	FrameDirURI        string      `json:"frameDirUri,omitempty"`
	LastModified       time.Time   `json:"lastModified"`
	Start              *time.Time  `json:"start,omitempty"`
	End                *time.Time  `json:"end,omitempty"`
	Region             RegionRef   `json:"region"`
	TargetHeight       string      `json:"targetHeight,omitempty"`
	FrameTimeIncrement string      `json:"frameTimeIncrement,omitempty"`
	MapTimeIncrement   string      `json:"mapTimeIncrement,omitempty"`
	VideoTimeIncrement string      `json:"videoTimeIncrement,omitempty"`
	InputFiles         []InputRef  `json:"inputFiles,omitempty"`
	OutputFiles        []OutputRef `json:"outputFiles,omitempty"`
	Preview            string      `json:"preview,omitempty"`
	Signature          string      `json:"signature"`
}

// Range returns the record's date range.
func (r ProductRecord) Range() daterange.Range {
	var start, end time.Time
	if r.Start != nil {
		start = *r.Start
	}
	if r.End != nil {
		end = *r.End
	}
	return daterange.New(start, end)
}

// SetRange stores r's bounds, leaving unbounded sides empty.
func (r *ProductRecord) SetRange(rng daterange.Range) {
	r.Start, r.End = nil, nil
	if !rng.Start.IsZero() {
		start := rng.Start.UTC()
		r.Start = &start
	}
	if !rng.End.IsZero() {
		end := rng.End.UTC()
		r.End = &end
	}
}
