package outdated

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"ncanimate/internal/catalog"
	"ncanimate/internal/logging"
	"ncanimate/internal/metadata"
	"ncanimate/internal/storage"
	"ncanimate/internal/timetable"
)

// Reasons reported in Decision.Reason.
const (
	ReasonUpToDate         = "up_to_date"
	ReasonMissingRecord    = "missing_record"
	ReasonInvalidRecord    = "invalid_record"
	ReasonSignatureChanged = "signature_changed"
	ReasonRangeChanged     = "range_changed"
	ReasonMissingArtifact  = "missing_artifact"
	ReasonInputsChanged    = "inputs_changed"
	ReasonNewerInput       = "newer_input"
)

// Decision is the verdict for one output.
type Decision struct {
	Outdated bool
	Reason   string
	Detail   string
}

// RecordSource reads stored product records.
type RecordSource interface {
	ProductRecord(ctx context.Context, id string) (*metadata.ProductRecord, error)
}

// ArtifactSource reports whether an artifact exists.
type ArtifactSource interface {
	Stat(ctx context.Context, uri string) (*storage.Artifact, error)
}

// Detector decides which outputs must be regenerated. Only the first
// LogLimit outdated decisions per output kind are logged in detail.
type Detector struct {
	Records      RecordSource
	Artifacts    ArtifactSource
	Destinations storage.Destinations
	LogLimit     int
	logger       *slog.Logger
	logged       map[catalog.Kind]int
}

// NewDetector constructs a Detector.
func NewDetector(records RecordSource, artifacts ArtifactSource, dest storage.Destinations, logLimit int, logger *slog.Logger) *Detector {
	return &Detector{
		Records:      records,
		Artifacts:    artifacts,
		Destinations: dest,
		LogLimit:     logLimit,
		logger:       logging.NewComponentLogger(logger, "outdated"),
		logged:       map[catalog.Kind]int{},
	}
}

// IsOutdated checks out against its stored record and artifacts.
func (d *Detector) IsOutdated(ctx context.Context, productID string, out timetable.Output) (Decision, error) {
	decision, err := d.decide(ctx, productID, out)
	if err != nil {
		return Decision{}, err
	}
	d.log(out, decision)
	return decision, nil
}

// Filter returns the outdated subset of outs, preserving order.
func (d *Detector) Filter(ctx context.Context, productID string, outs []timetable.Output) ([]timetable.Output, error) {
	var stale []timetable.Output
	for _, out := range outs {
		decision, err := d.IsOutdated(ctx, productID, out)
		if err != nil {
			return nil, err
		}
		if decision.Outdated {
			stale = append(stale, out)
		}
	}
	return stale, nil
}

func (d *Detector) decide(ctx context.Context, productID string, out timetable.Output) (Decision, error) {
	record, err := d.Records.ProductRecord(ctx, out.ID)
	if err != nil {
		return Decision{}, fmt.Errorf("load record %s: %w", out.ID, err)
	}
	if record == nil {
		return outdatedBecause(ReasonMissingRecord, ""), nil
	}
	if record.Status != metadata.StatusValid {
		return outdatedBecause(ReasonInvalidRecord, record.Status), nil
	}
	if record.Signature != out.Signature {
		return outdatedBecause(ReasonSignatureChanged, record.Signature+" -> "+out.Signature), nil
	}
	if !record.Range().Equal(out.Range) {
		return outdatedBecause(ReasonRangeChanged, record.Range().String()+" -> "+out.Range.String()), nil
	}

	for _, file := range out.Files {
		uri := d.Destinations.Output(productID, out.FileName(file))
		artifact, err := d.Artifacts.Stat(ctx, uri)
		if err != nil {
			return Decision{}, fmt.Errorf("stat %s: %w", uri, err)
		}
		if artifact == nil {
			return outdatedBecause(ReasonMissingArtifact, uri), nil
		}
	}

	recorded := make(map[string]metadata.InputRef, len(record.InputFiles))
	for _, ref := range record.InputFiles {
		recorded[ref.ID] = ref
	}
	current := make([]string, 0, len(out.Inputs))
	for _, input := range out.Inputs {
		current = append(current, input.ID)
	}
	previous := make([]string, 0, len(recorded))
	for id := range recorded {
		previous = append(previous, id)
	}
	slices.Sort(current)
	slices.Sort(previous)
	if !slices.Equal(current, previous) {
		return outdatedBecause(ReasonInputsChanged, fmt.Sprintf("%d -> %d input files", len(previous), len(current))), nil
	}
	for _, input := range out.Inputs {
		ref := recorded[input.ID]
		if input.LastModified.After(ref.LastModified) {
			return outdatedBecause(ReasonNewerInput, input.ID), nil
		}
	}
	return Decision{Reason: ReasonUpToDate}, nil
}

func outdatedBecause(reason, detail string) Decision {
	return Decision{Outdated: true, Reason: reason, Detail: detail}
}

func (d *Detector) log(out timetable.Output, decision Decision) {
	logger := d.logger
	if logger == nil {
		return
	}
	if !decision.Outdated {
		logger.Debug("output up to date", logging.String(logging.FieldOutputID, out.ID))
		return
	}
	if d.logged == nil {
		d.logged = map[catalog.Kind]int{}
	}
	d.logged[out.Kind]++
	count := d.logged[out.Kind]
	switch {
	case count <= d.LogLimit:
		attrs := []logging.Attr{
			logging.String(logging.FieldOutputID, out.ID),
			logging.String(logging.FieldDateRange, out.Range.String()),
			logging.String("kind", string(out.Kind)),
			logging.String("detail", decision.Detail),
		}
		attrs = append(attrs, logging.DecisionAttrs("outdated", "regenerate", decision.Reason)...)
		logger.Info("output is outdated", logging.Args(attrs...)...)
	case count == d.LogLimit+1:
		logger.Info("further outdated outputs not logged",
			logging.String("kind", string(out.Kind)),
			logging.Int("limit", d.LogLimit),
		)
	}
}
