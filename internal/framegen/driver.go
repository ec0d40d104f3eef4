package framegen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ncanimate/internal/daterange"
	"ncanimate/internal/fileutil"
	"ncanimate/internal/logging"
	"ncanimate/internal/procexec"
	"ncanimate/internal/services"
)

// Worker renders every frame of a product inside a date range.
type Worker interface {
	Render(ctx context.Context, productID string, r daterange.Range) (procexec.Result, error)
}

// Step is the decision taken after one render attempt.
type Step int

const (
	StepDone Step = iota
	StepRetry
	StepAbort
)

func (s Step) String() string {
	switch s {
	case StepDone:
		return "done"
	case StepRetry:
		return "retry"
	case StepAbort:
		return "abort"
	default:
		return "unknown"
	}
}

// AttemptResult is what the retry policy looks at after an attempt.
type AttemptResult struct {
	Attempt   int
	Result    procexec.Result
	Err       error
	NewFrames int
}

// NextStep decides what follows an attempt. A failed attempt that produced
// new frames is retried; one that produced nothing, or was cancelled, aborts.
func NextStep(a AttemptResult) Step {
	switch {
	case a.Err == nil:
		return StepDone
	case errors.Is(a.Err, context.Canceled), errors.Is(a.Err, context.DeadlineExceeded):
		return StepAbort
	case a.NewFrames > 0:
		return StepRetry
	default:
		return StepAbort
	}
}

// Driver runs the frame worker over a range until it succeeds or stops
// making progress. Progress is the number of files under FrameDir.
type Driver struct {
	Worker   Worker
	FrameDir string
	// MaxAttempts caps attempts for productive but failing workers; zero
	// means no cap.
	MaxAttempts int
	Logger      *slog.Logger
}

// Render renders the frames of productID inside r.
func (d *Driver) Render(ctx context.Context, productID string, r daterange.Range) error {
	if d.Worker == nil {
		return services.Wrap(services.ErrConfiguration, "framegen", "render", "no frame worker configured", nil)
	}
	logger := logging.NewComponentLogger(d.Logger, "framegen").With(
		logging.String(logging.FieldProductID, productID),
		logging.String(logging.FieldDateRange, r.String()),
	)

	for attempt := 1; ; attempt++ {
		before, err := fileutil.CountFiles(d.FrameDir)
		if err != nil {
			return fmt.Errorf("count frames before attempt: %w", err)
		}
		started := time.Now()
		result, renderErr := d.Worker.Render(ctx, productID, r)
		after, err := fileutil.CountFiles(d.FrameDir)
		if err != nil {
			return fmt.Errorf("count frames after attempt: %w", err)
		}

		outcome := AttemptResult{Attempt: attempt, Result: result, Err: renderErr, NewFrames: after - before}
		step := NextStep(outcome)
		logger.Info("frame render attempt finished",
			logging.Int("attempt", attempt),
			logging.String("status", result.Status.String()),
			logging.Int("exit_code", result.ExitCode),
			logging.Int("new_frames", outcome.NewFrames),
			logging.Duration("elapsed", time.Since(started)),
			logging.String("next_step", step.String()),
		)

		switch step {
		case StepDone:
			return nil
		case StepAbort:
			return fmt.Errorf("render %s %s: %w", productID, r, renderErr)
		}
		if d.MaxAttempts > 0 && attempt >= d.MaxAttempts {
			return services.Wrap(services.ErrExternalTool, "framegen", "render",
				fmt.Sprintf("%s %s: giving up after %d productive attempts", productID, r, attempt), renderErr)
		}
		logging.WarnWithContext(logger, "frame worker failed after producing frames; retrying", "frame_render_retry",
			logging.Int("attempt", attempt),
			logging.Error(renderErr),
			logging.String(logging.FieldImpact, "frames already written are kept"),
		)
	}
}
