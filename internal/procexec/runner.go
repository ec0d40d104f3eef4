package procexec

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"ncanimate/internal/logging"
	"ncanimate/internal/services"
)

// Conventional exit codes reported by Result.ExitCode.
const (
	ExitSuccess         = 0
	ExitError           = 1
	ExitCommandNotFound = 127
	ExitInterrupted     = 130
	ExitKilled          = 137
	ExitTerminated      = 143
)

const maxDiagnostics = 20

// Status classifies how a process run ended.
type Status int

const (
	StatusSucceeded Status = iota
	StatusFailed
	StatusSpawnError
	StatusInterrupted
)

func (s Status) String() string {
	switch s {
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusSpawnError:
		return "spawn_error"
	case StatusInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// ErrAlreadyRunning is returned when Run is called on a busy Runner.
var ErrAlreadyRunning = errors.New("process runner already running")

// Command describes one subprocess invocation.
type Command struct {
	Args []string
	// Env entries override (or add to) the inherited environment.
	Env      map[string]string
	Dir      string
	OnStdout func(line string)
	OnStderr func(line string)
}

// NewCommand parses line into a Command.
func NewCommand(line string) (Command, error) {
	args := ParseCommandLine(line)
	if len(args) == 0 {
		return Command{}, services.Wrap(services.ErrValidation, "procexec", "parse", "empty command line", nil)
	}
	return Command{Args: args}, nil
}

func (c Command) String() string {
	return strings.Join(c.Args, " ")
}

// Result reports the outcome of a run.
type Result struct {
	Status   Status
	ExitCode int
	// StderrSeen is true when the process wrote anything to stderr.
	StderrSeen  bool
	Diagnostics []string
	Duration    time.Duration
}

// Succeeded reports whether the run counts as a success.
func (r Result) Succeeded() bool {
	return r.Status == StatusSucceeded
}

// Runner executes subprocesses one at a time, draining stdout and stderr
// concurrently so neither pipe can fill and block the child.
type Runner struct {
	// StderrIsFailure marks runs that wrote to stderr as failed.
	StderrIsFailure bool
	logger          *slog.Logger
	running         atomic.Bool
}

// NewRunner constructs a Runner with the strict stderr policy.
func NewRunner(logger *slog.Logger) *Runner {
	return &Runner{StderrIsFailure: true, logger: logging.NewComponentLogger(logger, "procexec")}
}

// Run starts cmd and blocks until it exits or ctx is cancelled, in which
// case the whole process group is killed. The returned error is nil only
// when the run succeeded.
func (r *Runner) Run(ctx context.Context, cmd Command) (Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(cmd.Args) == 0 {
		return Result{Status: StatusSpawnError, ExitCode: ExitError},
			services.Wrap(services.ErrValidation, "procexec", "run", "no command", nil)
	}
	if !r.running.CompareAndSwap(false, true) {
		return Result{}, ErrAlreadyRunning
	}
	defer r.running.Store(false)

	logger := r.logger
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := ctx.Err(); err != nil {
		return Result{Status: StatusInterrupted, ExitCode: ExitInterrupted}, fmt.Errorf("run %s: %w", cmd.Args[0], err)
	}

	started := time.Now()
	proc := exec.Command(cmd.Args[0], cmd.Args[1:]...) //nolint:gosec
	proc.Dir = cmd.Dir
	proc.Env = mergeEnv(os.Environ(), cmd.Env)
	proc.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := proc.StdoutPipe()
	if err != nil {
		return spawnFailure(cmd, err)
	}
	stderr, err := proc.StderrPipe()
	if err != nil {
		return spawnFailure(cmd, err)
	}
	logger.Debug("starting process", logging.String("command", cmd.String()), logging.String("dir", cmd.Dir))
	if err := proc.Start(); err != nil {
		return spawnFailure(cmd, err)
	}

	var (
		wg        sync.WaitGroup
		stderrHit atomic.Bool
		diag      diagnostics
	)
	onStdout := cmd.OnStdout
	if onStdout == nil {
		onStdout = func(line string) { logger.Debug(line, logging.String("stream", "stdout")) }
	}
	onStderr := func(line string) {
		stderrHit.Store(true)
		diag.add(line)
		if cmd.OnStderr != nil {
			cmd.OnStderr(line)
			return
		}
		logger.Info(line, logging.String("stream", "stderr"))
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := drain(stdout, onStdout); err != nil {
			diag.readErr(err)
			killGroup(proc)
		}
	}()
	go func() {
		defer wg.Done()
		if err := drain(stderr, onStderr); err != nil {
			diag.readErr(err)
			killGroup(proc)
		}
	}()

	drained := make(chan struct{})
	go func() {
		wg.Wait()
		close(drained)
	}()

	interrupted := false
	select {
	case <-drained:
	case <-ctx.Done():
		interrupted = true
		killGroup(proc)
	}
	waitErr := proc.Wait()
	<-drained

	result := Result{
		ExitCode:    exitCode(waitErr),
		StderrSeen:  stderrHit.Load(),
		Diagnostics: diag.lines(),
		Duration:    time.Since(started),
	}

	switch {
	case interrupted:
		result.Status = StatusInterrupted
		result.ExitCode = ExitInterrupted
		return result, fmt.Errorf("run %s: %w", cmd.Args[0], ctx.Err())
	case waitErr != nil:
		result.Status = StatusFailed
	case diag.failed():
		result.Status = StatusFailed
		if result.ExitCode == ExitSuccess {
			result.ExitCode = ExitError
		}
	case result.StderrSeen && r.StderrIsFailure:
		result.Status = StatusFailed
	default:
		result.Status = StatusSucceeded
		return result, nil
	}
	return result, services.Wrap(services.ErrExternalTool, "procexec", cmd.Args[0],
		fmt.Sprintf("exit code %d%s", result.ExitCode, stderrSuffix(result)), nil)
}

func spawnFailure(cmd Command, err error) (Result, error) {
	code := ExitError
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		code = ExitCommandNotFound
	}
	return Result{Status: StatusSpawnError, ExitCode: code},
		services.Wrap(services.ErrExternalTool, "procexec", "start", cmd.Args[0], err)
}

func stderrSuffix(r Result) string {
	if len(r.Diagnostics) == 0 {
		return ""
	}
	return ": " + r.Diagnostics[len(r.Diagnostics)-1]
}

// drain forwards every line of r to fn. Lines of any length are accepted.
func drain(r io.Reader, fn func(string)) error {
	reader := bufio.NewReaderSize(r, 64*1024)
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			fn(strings.TrimRight(line, "\r\n"))
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, fs.ErrClosed) {
				return nil
			}
			return err
		}
	}
}

func killGroup(proc *exec.Cmd) {
	if proc.Process == nil {
		return
	}
	if err := unix.Kill(-proc.Process.Pid, unix.SIGKILL); err != nil {
		_ = proc.Process.Kill()
	}
}

func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return 128 + int(ws.Signal())
		}
		return exitErr.ExitCode()
	}
	return ExitError
}

func mergeEnv(base []string, overrides map[string]string) []string {
	if len(overrides) == 0 {
		return base
	}
	out := make([]string, 0, len(base)+len(overrides))
	for _, entry := range base {
		key, _, _ := strings.Cut(entry, "=")
		if _, replaced := overrides[key]; replaced {
			continue
		}
		out = append(out, entry)
	}
	keys := make([]string, 0, len(overrides))
	for key := range overrides {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		out = append(out, key+"="+overrides[key])
	}
	return out
}

type diagnostics struct {
	mu   sync.Mutex
	tail []string
	err  error
}

func (d *diagnostics) add(line string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.tail) == maxDiagnostics {
		copy(d.tail, d.tail[1:])
		d.tail = d.tail[:maxDiagnostics-1]
	}
	d.tail = append(d.tail, line)
}

func (d *diagnostics) readErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err == nil {
		d.err = err
	}
}

func (d *diagnostics) failed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err != nil
}

func (d *diagnostics) lines() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.tail))
	copy(out, d.tail)
	if d.err != nil {
		out = append(out, "read output: "+d.err.Error())
	}
	return out
}
