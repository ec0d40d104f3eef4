package procexec_test

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"

	"ncanimate/internal/logging"
	"ncanimate/internal/procexec"
	"ncanimate/internal/services"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func shell(script string) procexec.Command {
	return procexec.Command{Args: []string{"sh", "-c", script}}
}

func TestRunSuccessCollectsStdout(t *testing.T) {
	requireShell(t)
	runner := procexec.NewRunner(logging.NewNop())

	var lines []string
	cmd := shell(`echo one; echo two`)
	cmd.OnStdout = func(line string) { lines = append(lines, line) }

	result, err := runner.Run(context.Background(), cmd)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Succeeded() || result.ExitCode != procexec.ExitSuccess {
		t.Fatalf("unexpected result %+v", result)
	}
	if strings.Join(lines, ",") != "one,two" {
		t.Fatalf("unexpected stdout lines %v", lines)
	}
}

func TestRunNonZeroExit(t *testing.T) {
	requireShell(t)
	runner := procexec.NewRunner(logging.NewNop())

	result, err := runner.Run(context.Background(), shell("exit 3"))
	if err == nil || !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if result.Status != procexec.StatusFailed || result.ExitCode != 3 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestRunStderrPolicy(t *testing.T) {
	requireShell(t)

	strict := procexec.NewRunner(logging.NewNop())
	result, err := strict.Run(context.Background(), shell("echo warning >&2; exit 0"))
	if err == nil || result.Status != procexec.StatusFailed {
		t.Fatalf("expected stderr to fail strict run, got %+v (%v)", result, err)
	}
	if result.ExitCode != 0 || !result.StderrSeen {
		t.Fatalf("expected exit code 0 with stderr seen, got %+v", result)
	}
	if len(result.Diagnostics) != 1 || result.Diagnostics[0] != "warning" {
		t.Fatalf("unexpected diagnostics %v", result.Diagnostics)
	}

	lenient := procexec.NewRunner(logging.NewNop())
	lenient.StderrIsFailure = false
	result, err = lenient.Run(context.Background(), shell("echo warning >&2; exit 0"))
	if err != nil || !result.Succeeded() {
		t.Fatalf("expected lenient run to succeed, got %+v (%v)", result, err)
	}
}

func TestRunSpawnError(t *testing.T) {
	runner := procexec.NewRunner(logging.NewNop())
	result, err := runner.Run(context.Background(), procexec.Command{Args: []string{"/nonexistent/ncanimate-worker"}})
	if err == nil {
		t.Fatal("expected spawn error")
	}
	if result.Status != procexec.StatusSpawnError || result.ExitCode != procexec.ExitCommandNotFound {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestRunAppliesEnvironmentOverrides(t *testing.T) {
	requireShell(t)
	runner := procexec.NewRunner(logging.NewNop())

	var out string
	cmd := shell(`echo "$NCANIMATE_REGION/$DATABASE_NAME"`)
	cmd.Env = map[string]string{"NCANIMATE_REGION": "qld", "DATABASE_NAME": "ereefs"}
	cmd.OnStdout = func(line string) { out = line }
	if _, err := runner.Run(context.Background(), cmd); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out != "qld/ereefs" {
		t.Fatalf("unexpected env output %q", out)
	}
}

// Both pipes receive far more than a pipe buffer; the run must still finish.
func TestRunLargeOutputDoesNotDeadlock(t *testing.T) {
	requireShell(t)
	runner := procexec.NewRunner(logging.NewNop())
	runner.StderrIsFailure = false

	var (
		mu          sync.Mutex
		stdoutBytes int
		stderrBytes int
	)
	cmd := shell(`head -c 300000 /dev/zero | tr '\000' 'a'; head -c 300000 /dev/zero | tr '\000' 'b' >&2; echo; echo done`)
	cmd.OnStdout = func(line string) {
		mu.Lock()
		stdoutBytes += len(line)
		mu.Unlock()
	}
	cmd.OnStderr = func(line string) {
		mu.Lock()
		stderrBytes += len(line)
		mu.Unlock()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	result, err := runner.Run(ctx, cmd)
	if err != nil {
		t.Fatalf("Run: %v (%+v)", err, result)
	}
	if stdoutBytes != 300000+len("done") {
		t.Fatalf("unexpected stdout byte count %d", stdoutBytes)
	}
	if stderrBytes != 300000 {
		t.Fatalf("unexpected stderr byte count %d", stderrBytes)
	}
}

func TestRunCancellationKillsProcess(t *testing.T) {
	requireShell(t)
	runner := procexec.NewRunner(logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	started := time.Now()
	result, err := runner.Run(ctx, shell("sleep 30"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
	if result.Status != procexec.StatusInterrupted || result.ExitCode != procexec.ExitInterrupted {
		t.Fatalf("unexpected result %+v", result)
	}
	if time.Since(started) > 10*time.Second {
		t.Fatal("cancellation did not stop the child promptly")
	}
}

func TestRunRefusesConcurrentStart(t *testing.T) {
	requireShell(t)
	runner := procexec.NewRunner(logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		cmd := shell("echo ready; sleep 30")
		cmd.OnStdout = func(string) { close(started) }
		_, _ = runner.Run(ctx, cmd)
	}()

	select {
	case <-started:
	case <-time.After(10 * time.Second):
		t.Fatal("first run did not start")
	}
	if _, err := runner.Run(context.Background(), shell("true")); !errors.Is(err, procexec.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
	cancel()
	<-done
}

func TestNewCommandRejectsEmpty(t *testing.T) {
	if _, err := procexec.NewCommand("   "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	cmd, err := procexec.NewCommand(`ffmpeg -i "a b.png"`)
	if err != nil || len(cmd.Args) != 3 || cmd.Args[2] != "a b.png" {
		t.Fatalf("unexpected command %#v (%v)", cmd, err)
	}
}
