package assemble

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"ncanimate/internal/catalog"
	"ncanimate/internal/framefiles"
	"ncanimate/internal/logging"
	"ncanimate/internal/metadata"
	"ncanimate/internal/procexec"
	"ncanimate/internal/services"
	"ncanimate/internal/storage"
	"ncanimate/internal/timetable"
)

// Options configures an Assembler.
type Options struct {
	Product       *catalog.Product
	Layout        framefiles.Layout
	WorkDir       string
	Destinations  storage.Destinations
	Store         storage.Store
	// Runner executes resize and video commands. The default judges them by
	// exit status alone.
	Runner        *procexec.Runner
	ResizeCommand string
	Logger        *slog.Logger
}

// Assembler turns the frames of a ready output into its final artifacts,
// uploads them and describes the result as a metadata record.
type Assembler struct {
	product       *catalog.Product
	layout        framefiles.Layout
	workDir       string
	dest          storage.Destinations
	store         storage.Store
	runner        *procexec.Runner
	resizeCommand string
	logger        *slog.Logger
	now           func() time.Time
}

// New constructs an Assembler.
func New(opts Options) *Assembler {
	runner := opts.Runner
	if runner == nil {
		runner = procexec.NewRunner(opts.Logger)
		runner.StderrIsFailure = false
	}
	store := opts.Store
	if store == nil {
		store = storage.NewFileStore()
	}
	return &Assembler{
		product:       opts.Product,
		layout:        opts.Layout,
		workDir:       opts.WorkDir,
		dest:          opts.Destinations,
		store:         store,
		runner:        runner,
		resizeCommand: opts.ResizeCommand,
		logger:        logging.NewComponentLogger(opts.Logger, "assemble"),
		now:           time.Now,
	}
}

// Assemble produces every render file of out and returns its record. A
// missing frame fails with services.ErrMissingFrames.
func (a *Assembler) Assemble(ctx context.Context, out timetable.Output) (metadata.ProductRecord, error) {
	if err := os.MkdirAll(a.workDir, 0o755); err != nil {
		return metadata.ProductRecord{}, fmt.Errorf("create work dir: %w", err)
	}
	logger := a.logger.With(logging.String(logging.FieldOutputID, out.ID))

	var (
		outputs []metadata.OutputRef
		preview string
		err     error
	)
	started := time.Now()
	switch out.Kind {
	case catalog.KindMap:
		outputs, err = a.assembleMap(ctx, out)
	case catalog.KindVideo:
		outputs, preview, err = a.assembleVideo(ctx, out)
	default:
		err = services.Wrap(services.ErrValidation, "assemble", "dispatch", fmt.Sprintf("unknown output kind %q", out.Kind), nil)
	}
	if err != nil {
		return metadata.ProductRecord{}, err
	}
	logger.Info("output assembled",
		logging.String("kind", string(out.Kind)),
		logging.Int("files", len(outputs)),
		logging.Duration("elapsed", time.Since(started)),
	)
	return a.record(out, outputs, preview), nil
}

func (a *Assembler) upload(ctx context.Context, local, uri string) error {
	if err := a.store.Upload(ctx, local, uri); err != nil {
		return err
	}
	if err := os.Remove(local); err != nil && !os.IsNotExist(err) {
		a.logger.Debug("failed to remove local output", logging.String("path", local), logging.Error(err))
	}
	return nil
}

func replaceWithSymlink(target, link string) error {
	if err := os.Remove(link); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.Symlink(target, link)
}

func (a *Assembler) runCommand(ctx context.Context, line string, vars map[string]string) error {
	cmd, err := procexec.NewCommand(catalog.Expand(line, vars))
	if err != nil {
		return err
	}
	_, err = a.runner.Run(ctx, cmd)
	return err
}
