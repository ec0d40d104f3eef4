package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"ncanimate/internal/assemble"
	"ncanimate/internal/catalog"
	"ncanimate/internal/cleanup"
	"ncanimate/internal/config"
	"ncanimate/internal/daterange"
	"ncanimate/internal/framefiles"
	"ncanimate/internal/framegen"
	"ncanimate/internal/ledger"
	"ncanimate/internal/logging"
	"ncanimate/internal/metadata"
	"ncanimate/internal/metrics"
	"ncanimate/internal/outdated"
	"ncanimate/internal/procexec"
	"ncanimate/internal/services"
	"ncanimate/internal/storage"
	"ncanimate/internal/textutil"
	"ncanimate/internal/timetable"
)

// ErrIncomplete is returned when some outdated outputs could not be
// generated. Outputs that were generated stay valid.
var ErrIncomplete = errors.New("some outputs could not be generated")

// InputSource lists input files by definition.
type InputSource interface {
	InputFiles(ctx context.Context, definitionIDs ...string) ([]metadata.InputFile, error)
}

// RecordStore reads and writes product records.
type RecordStore interface {
	ProductRecord(ctx context.Context, id string) (*metadata.ProductRecord, error)
	SaveProductRecord(ctx context.Context, record metadata.ProductRecord) error
}

// TaskSource loads queued tasks.
type TaskSource interface {
	Task(ctx context.Context, id string) (*metadata.Task, error)
}

// WorkerFactory builds the frame worker for a product and optional region.
type WorkerFactory func(product *catalog.Product, region string) (framegen.Worker, error)

// Dependencies are the collaborators a Scheduler drives.
type Dependencies struct {
	Catalog   catalog.Resolver
	Inputs    InputSource
	Records   RecordStore
	Tasks     TaskSource
	Artifacts storage.Store
	Metrics   *metrics.Metrics
	// NewWorker overrides worker discovery; tests use it to plug in fakes.
	NewWorker WorkerFactory
}

// Scheduler runs incremental generation for one product at a time.
type Scheduler struct {
	cfg    *config.Config
	deps   Dependencies
	logger *slog.Logger
}

// New constructs a Scheduler.
func New(cfg *config.Config, deps Dependencies, logger *slog.Logger) *Scheduler {
	if deps.Artifacts == nil {
		deps.Artifacts = storage.NewFileStore()
	}
	s := &Scheduler{cfg: cfg, deps: deps, logger: logging.NewComponentLogger(logger, "scheduler")}
	if s.deps.NewWorker == nil {
		s.deps.NewWorker = s.processWorker
	}
	return s
}

func (s *Scheduler) processWorker(product *catalog.Product, region string) (framegen.Worker, error) {
	path, err := framegen.ResolveWorker(product.Worker, s.cfg.Worker)
	if err != nil {
		return nil, err
	}
	s.logger.Info("frame worker resolved", logging.String("worker", path))
	return framegen.NewProcessWorker(s.cfg, path, region, s.logger), nil
}

// ResolveTask looks up a queued task and returns the product and region it
// asks for. The task region wins over the configured one. A missing task, a
// foreign task type or an empty product ID are configuration errors.
func (s *Scheduler) ResolveTask(ctx context.Context, taskID string) (productID, region string, err error) {
	if s.deps.Tasks == nil {
		return "", "", services.Wrap(services.ErrConfiguration, "scheduler", "task", "no task store configured", nil)
	}
	task, err := s.deps.Tasks.Task(ctx, taskID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return "", "", services.Wrap(services.ErrConfiguration, "scheduler", "task", fmt.Sprintf("task %q not found", taskID), err)
		}
		return "", "", fmt.Errorf("load task %q: %w", taskID, err)
	}
	if !strings.EqualFold(task.Type, metadata.TaskTypeNcAnimate) {
		return "", "", services.Wrap(services.ErrConfiguration, "scheduler", "task",
			fmt.Sprintf("task %q has type %q, expected %q", taskID, task.Type, metadata.TaskTypeNcAnimate), nil)
	}
	if strings.TrimSpace(task.ProductID) == "" {
		return "", "", services.Wrap(services.ErrConfiguration, "scheduler", "task", fmt.Sprintf("task %q has no product id", taskID), nil)
	}
	region = task.RegionID
	if region == "" {
		region = s.cfg.Generation.Region
	}
	return task.ProductID, region, nil
}

// GenerateTask generates the product a queued task asks for.
func (s *Scheduler) GenerateTask(ctx context.Context, taskID string) (Summary, error) {
	productID, region, err := s.ResolveTask(ctx, taskID)
	if err != nil {
		return Summary{}, err
	}
	return s.Generate(ctx, productID, region)
}

// Generate regenerates every outdated map and video of productID. region,
// when set, limits the run to that region. It returns ErrIncomplete (with a
// summary listing the failures) when any outdated output is left behind.
func (s *Scheduler) Generate(ctx context.Context, productID, region string) (Summary, error) {
	started := time.Now()
	ctx = services.WithProductID(ctx, productID)
	if region != "" {
		ctx = services.WithRegion(ctx, region)
	}
	logger := logging.WithContext(ctx, s.logger)

	product, err := s.deps.Catalog.Product(ctx, productID)
	if err != nil {
		return Summary{ProductID: productID}, err
	}
	inputs, err := s.deps.Inputs.InputFiles(ctx, product.DefinitionIDs()...)
	if err != nil {
		return Summary{ProductID: productID}, fmt.Errorf("load input files: %w", err)
	}
	table, err := timetable.Build(product, inputs, timetable.Options{Region: region})
	if err != nil {
		return Summary{ProductID: productID}, err
	}
	logger.Info("timetable built",
		logging.String(logging.FieldDateRange, table.Span.String()),
		logging.Int("input_files", len(inputs)),
		logging.Int("frames", len(table.Frames)),
		logging.Int("maps", len(table.Maps)),
		logging.Int("videos", len(table.Videos)),
	)

	run := &run{
		scheduler: s,
		product:   product,
		region:    region,
		table:     table,
		logger:    logger,
		summary:   Summary{ProductID: productID, Region: region},
		layout: framefiles.Layout{
			Root:        s.cfg.Paths.FrameDir,
			ProductID:   product.ID,
			VideoFormat: s.cfg.Generation.VideoFrameFormat,
		},
		dest: storage.Destinations{
			OutputTemplate:  s.cfg.Generation.OutputURITemplate,
			PreviewTemplate: s.cfg.Generation.PreviewURITemplate,
			OutputDir:       s.cfg.Paths.OutputDir,
		},
	}
	err = run.execute(ctx)
	run.summary.Elapsed = time.Since(started)
	return run.summary, err
}

// run is the state of one Generate call. The ledger and frame index are
// only touched between sub-range iterations.
type run struct {
	scheduler *Scheduler
	product   *catalog.Product
	region    string
	table     *timetable.Timetable
	layout    framefiles.Layout
	dest      storage.Destinations
	logger    *slog.Logger
	summary   Summary

	pending   []timetable.Output
	ledger    ledger.Ledger
	known     framefiles.Index
	assembler *assemble.Assembler
}

func (r *run) execute(ctx context.Context) error {
	s := r.scheduler
	detector := outdated.NewDetector(s.deps.Records, s.deps.Artifacts, r.dest, s.cfg.Generation.OutdatedLogLimit, r.logger)
	maps, err := detector.Filter(ctx, r.product.ID, r.table.Maps)
	if err != nil {
		return fmt.Errorf("check outdated maps: %w", err)
	}
	videos, err := detector.Filter(ctx, r.product.ID, r.table.Videos)
	if err != nil {
		return fmt.Errorf("check outdated videos: %w", err)
	}
	r.pending = append(maps, videos...)
	r.summary.Outdated = len(r.pending)
	r.summary.UpToDate = len(r.table.Outputs()) - len(r.pending)
	s.deps.Metrics.SetPendingOutputs(len(r.pending))

	if len(r.pending) == 0 {
		r.logger.Info("all outputs up to date; nothing to do",
			logging.Int("maps", len(r.table.Maps)),
			logging.Int("videos", len(r.table.Videos)),
		)
		return nil
	}
	r.logger.Info("outdated outputs found",
		logging.Int("maps", len(maps)),
		logging.Int("videos", len(videos)),
	)

	worker, err := s.deps.NewWorker(r.product, r.region)
	if err != nil {
		return err
	}
	driver := &framegen.Driver{
		Worker:      countingWorker{Worker: worker, metrics: s.deps.Metrics},
		FrameDir:    r.layout.ProductDir(),
		MaxAttempts: s.cfg.Worker.MaxAttempts,
		Logger:      r.logger,
	}

	workDir := filepath.Join(s.cfg.Paths.WorkDir, textutil.SanitizeToken(r.product.ID)+"_"+runToken(ctx))
	defer func() {
		_ = cleanup.RemoveWorkDir(workDir, r.logger)
	}()
	tools := procexec.NewRunner(r.logger)
	tools.StderrIsFailure = s.cfg.Tools.StderrIsFailure
	r.assembler = assemble.New(assemble.Options{
		Product:       r.product,
		Layout:        r.layout,
		WorkDir:       workDir,
		Destinations:  r.dest,
		Store:         s.deps.Artifacts,
		Runner:        tools,
		ResizeCommand: s.cfg.Tools.ResizeCommand,
		Logger:        r.logger,
	})

	// Cleanup candidates are the frames the outdated outputs need.
	r.known = r.layout.ForOutputs(r.pending)

	bounding := make([]daterange.Range, 0, len(r.pending))
	for _, out := range r.pending {
		bounding = append(bounding, out.Range)
	}
	for _, b := range daterange.Merge(bounding) {
		groups := timetable.Group(b, r.table.FramesIn(b))
		subRanges := daterange.FillGaps(timetable.Flatten(groups), b)
		r.logger.Info("rendering bounding range",
			logging.String(logging.FieldDateRange, b.String()),
			logging.Int("identity_groups", len(groups)),
			logging.Int("sub_ranges", len(subRanges)),
		)
		for _, sub := range subRanges {
			if err := r.renderSubRange(ctx, driver, sub); err != nil {
				return err
			}
		}
	}

	for _, out := range r.pending {
		r.fail(out, services.Wrap(services.ErrMissingFrames, "scheduler", "finish", "frames were never fully rendered", nil))
	}
	r.pending = nil
	s.deps.Metrics.SetPendingOutputs(0)

	if len(r.summary.Failed) > 0 {
		for _, failure := range r.summary.Failed {
			logging.ErrorWithContext(r.logger, "output could not be generated", "output_failed",
				logging.String(logging.FieldOutputID, failure.Output.ID),
				logging.String(logging.FieldDateRange, failure.Output.Range.String()),
				logging.String("reason", failure.Reason),
				logging.Error(failure.Err),
			)
		}
		return fmt.Errorf("%w: %d of %d outdated outputs failed", ErrIncomplete, len(r.summary.Failed), r.summary.Outdated)
	}
	return nil
}

// renderSubRange renders one sub-range, finishes the outputs it made ready
// and reclaims frames. Only cancellation and configuration errors abort the
// run; a failed render leaves the affected outputs pending.
func (r *run) renderSubRange(ctx context.Context, driver *framegen.Driver, sub daterange.Range) error {
	s := r.scheduler
	if err := driver.Render(ctx, r.product.ID, sub); err != nil {
		if ctx.Err() != nil || services.Fatal(err) {
			return err
		}
		logging.WarnWithContext(r.logger, "frame rendering failed for sub-range", "frame_render_failed",
			logging.String(logging.FieldDateRange, sub.String()),
			logging.Error(err),
			logging.String(logging.FieldImpact, "outputs covering this range will fail"),
		)
		return nil
	}
	r.ledger.Add(sub)
	r.summary.Rendered = append(r.summary.Rendered, sub)
	s.deps.Metrics.IncRenderedRanges()

	remaining := r.pending[:0:0]
	for _, out := range r.pending {
		if !r.ledger.IsReady(out.Range) {
			remaining = append(remaining, out)
			continue
		}
		r.finish(ctx, out)
	}
	r.pending = remaining
	s.deps.Metrics.SetPendingOutputs(len(r.pending))

	result := cleanup.Reclaim(r.known, r.layout.ForOutputs(r.pending), r.logger)
	r.summary.FramesReclaimed += len(result.Removed)
	s.deps.Metrics.AddFramesReclaimed(len(result.Removed))
	cleanup.LogDiskSpace(r.logger, r.layout.Root)
	return nil
}

func (r *run) finish(ctx context.Context, out timetable.Output) {
	s := r.scheduler
	record, err := r.assembler.Assemble(ctx, out)
	if err != nil {
		r.fail(out, err)
		return
	}
	if err := s.deps.Records.SaveProductRecord(ctx, record); err != nil {
		logging.WarnWithContext(r.logger, "failed to save product record", "record_save_failed",
			logging.String(logging.FieldOutputID, out.ID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "output will be regenerated next run"),
		)
	}
	r.summary.Generated = append(r.summary.Generated, Generated{Output: out, Files: len(record.OutputFiles)})
	s.deps.Metrics.OutputGenerated(string(out.Kind))
}

func (r *run) fail(out timetable.Output, err error) {
	reason := services.Classify(err)
	r.summary.Failed = append(r.summary.Failed, Failure{Output: out, Reason: reason, Err: err})
	r.scheduler.deps.Metrics.OutputFailed(string(out.Kind), reason)
}

func runToken(ctx context.Context) string {
	if id, ok := services.RunIDFromContext(ctx); ok && id != "" {
		return textutil.SanitizeToken(id)
	}
	return "run"
}

// countingWorker counts worker invocations for metrics.
type countingWorker struct {
	framegen.Worker
	metrics *metrics.Metrics
}

func (w countingWorker) Render(ctx context.Context, productID string, r daterange.Range) (procexec.Result, error) {
	w.metrics.IncRenderAttempts()
	return w.Worker.Render(ctx, productID, r)
}
