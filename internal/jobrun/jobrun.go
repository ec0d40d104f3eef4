package jobrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"ncanimate/internal/catalog"
	"ncanimate/internal/cleanup"
	"ncanimate/internal/config"
	"ncanimate/internal/logging"
	"ncanimate/internal/maintenance"
	"ncanimate/internal/metadata"
	"ncanimate/internal/metrics"
	"ncanimate/internal/notifications"
	"ncanimate/internal/scheduler"
	"ncanimate/internal/services"
	"ncanimate/internal/storage"
	"ncanimate/internal/textutil"
)

// staleWorkDirAge is how old an abandoned working directory must be before
// a new run removes it.
const staleWorkDirAge = 24 * time.Hour

// ErrLocked is returned when another run holds the product lock.
var ErrLocked = errors.New("another run is generating this product")

// Options selects what a job does. TaskID wins over ProductID.
type Options struct {
	TaskID    string
	ProductID string
	Region    string
	// DryRun only applies to maintenance operations.
	DryRun   bool
	LogLevel string
	// Logger replaces the configured logger; tests use it.
	Logger *slog.Logger
	// NewWorker replaces worker discovery.
	NewWorker scheduler.WorkerFactory
	// Notifier replaces the configured ntfy service.
	Notifier notifications.Service
}

// Result describes a finished job.
type Result struct {
	RunID       string
	ProductID   string
	Maintenance *maintenance.Counts
	Summary     *scheduler.Summary
}

// Run executes one job: a maintenance operation when the task ID is
// reserved, otherwise an incremental generation of one product.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) (Result, error) {
	if cfg == nil {
		return Result{}, fmt.Errorf("config is required")
	}
	ctx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	result := Result{RunID: runID}

	if err := cfg.EnsureDirectories(); err != nil {
		return result, services.Wrap(services.ErrConfiguration, "jobrun", "directories", "", err)
	}

	logger := opts.Logger
	if logger == nil {
		level := opts.LogLevel
		if level == "" {
			level = cfg.Logging.Level
		}
		loggerOpts, err := logging.FileOptions(level, cfg.Logging.Format, cfg.Paths.LogDir, "ncanimate")
		if err != nil {
			return result, err
		}
		logger, err = logging.New(loggerOpts)
		if err != nil {
			return result, fmt.Errorf("init logger: %w", err)
		}
	}
	logger = logging.WithContext(ctx, logger)

	store, err := metadata.Open(cfg.Paths.Database)
	if err != nil {
		return result, fmt.Errorf("open metadata store: %w", err)
	}
	defer store.Close()

	taskID := strings.TrimSpace(opts.TaskID)
	if maintenance.IsSentinel(taskID) {
		counts, err := maintenance.New(store, opts.DryRun, logger).Run(ctx, taskID)
		result.Maintenance = &counts
		return result, err
	}

	deps := scheduler.Dependencies{
		Catalog:   catalog.NewFileResolver(cfg.Paths.CatalogDir),
		Inputs:    store,
		Records:   store,
		Tasks:     store,
		Artifacts: storage.NewFileStore(),
		NewWorker: opts.NewWorker,
	}
	productID, region := strings.TrimSpace(opts.ProductID), strings.TrimSpace(opts.Region)
	if taskID != "" {
		productID, region, err = scheduler.New(cfg, deps, logger).ResolveTask(ctx, taskID)
		if err != nil {
			return result, err
		}
		logger.Info("task resolved",
			logging.String("task_id", taskID),
			logging.String(logging.FieldProductID, productID),
			logging.String(logging.FieldRegion, region),
		)
	} else if region == "" {
		region = cfg.Generation.Region
	}
	if productID == "" {
		return result, services.Wrap(services.ErrConfiguration, "jobrun", "resolve", "a task id or product id is required", nil)
	}
	result.ProductID = productID

	lock, err := acquireLock(cfg.Paths.WorkDir, productID)
	if err != nil {
		return result, err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release product lock", logging.String("lock", lock.Path()), logging.Error(err))
		}
	}()

	// Held lock: no directory of this product is in use.
	cleanup.CleanStale(ctx, cfg.Paths.WorkDir, textutil.SanitizeToken(productID), staleWorkDirAge, logger)

	m := metrics.New(productID)
	deps.Metrics = m

	started := time.Now()
	summary, runErr := scheduler.New(cfg, deps, logger).Generate(ctx, productID, region)
	result.Summary = &summary

	m.Finish(time.Since(started), runErr == nil, time.Now())
	writeMetrics(cfg, productID, m, logger)
	notify(ctx, cfg, opts.Notifier, summary, runErr, logger)

	if runErr != nil {
		logging.ErrorWithContext(logger, "generation run failed", "run_failed",
			logging.String("reason", services.Classify(runErr)),
			logging.Error(runErr),
		)
		return result, runErr
	}
	logger.Info("generation run finished",
		logging.Int("generated", len(summary.Generated)),
		logging.Int("up_to_date", summary.UpToDate),
		logging.Int("frames_reclaimed", summary.FramesReclaimed),
		logging.Duration("elapsed", summary.Elapsed),
	)
	return result, nil
}

// acquireLock takes the per-product lock file without blocking.
func acquireLock(dir, productID string) (*flock.Flock, error) {
	path := filepath.Join(dir, textutil.SanitizeToken(productID)+".lock")
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s (lock %s)", ErrLocked, productID, path)
	}
	return lock, nil
}

func writeMetrics(cfg *config.Config, productID string, m *metrics.Metrics, logger *slog.Logger) {
	template := strings.TrimSpace(cfg.Metrics.Textfile)
	if template == "" {
		return
	}
	path := catalog.Expand(template, map[string]string{"product": textutil.SanitizeToken(productID)})
	if err := m.WriteTextfile(path); err != nil {
		logging.WarnWithContext(logger, "failed to write metrics textfile", "metrics_write_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "run metrics not exported"),
		)
	}
}

// notify reports the outcome of a generation run. A run that got as far as
// rendering is described by its summary; earlier failures by the error.
func notify(ctx context.Context, cfg *config.Config, svc notifications.Service, summary scheduler.Summary, runErr error, logger *slog.Logger) {
	if svc == nil {
		svc = notifications.NewService(cfg)
	}
	ctx = context.WithoutCancel(ctx)
	var err error
	if runErr == nil || errors.Is(runErr, scheduler.ErrIncomplete) {
		err = svc.NotifyRunCompleted(ctx, summary)
	} else {
		err = svc.NotifyRunFailed(ctx, summary.ProductID, runErr)
	}
	if err != nil {
		logging.WarnWithContext(logger, "failed to send run notification", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run outcome not announced"),
		)
	}
}
