package framegen

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"ncanimate/internal/config"
	"ncanimate/internal/daterange"
	"ncanimate/internal/procexec"
	"ncanimate/internal/services"
)

// Environment variables passed to the frame worker.
const (
	EnvDatabaseServerAddress = "DATABASE_SERVER_ADDRESS"
	EnvDatabaseServerPort    = "DATABASE_SERVER_PORT"
	EnvDatabaseName          = "DATABASE_NAME"
	EnvRegion                = "NCANIMATE_REGION"
)

// ProcessWorker runs an external frame renderer: a jar launched with java, or
// any other executable called directly with "<product> <start> <end>".
type ProcessWorker struct {
	Path        string
	Java        string
	JavaOptions []string
	Env         map[string]string
	Runner      *procexec.Runner
}

// NewProcessWorker builds a worker for path using cfg's java and database
// settings. region, when set, restricts the worker to one region.
func NewProcessWorker(cfg *config.Config, path, region string, logger *slog.Logger) *ProcessWorker {
	runner := procexec.NewRunner(logger)
	runner.StderrIsFailure = cfg.Worker.StderrIsFailure
	return &ProcessWorker{
		Path:        path,
		Java:        cfg.Worker.Java,
		JavaOptions: cfg.Worker.JavaOptions,
		Env:         WorkerEnv(cfg.Database, region),
		Runner:      runner,
	}
}

// WorkerEnv returns the environment overrides for the frame worker. Empty
// values are left out so the worker falls back to its own defaults.
func WorkerEnv(db config.Database, region string) map[string]string {
	env := map[string]string{}
	if db.ServerAddress != "" {
		env[EnvDatabaseServerAddress] = db.ServerAddress
	}
	if db.ServerPort > 0 {
		env[EnvDatabaseServerPort] = strconv.Itoa(db.ServerPort)
	}
	if db.Name != "" {
		env[EnvDatabaseName] = db.Name
	}
	if region = strings.TrimSpace(region); region != "" {
		env[EnvRegion] = region
	}
	return env
}

// Command returns the invocation for productID over r.
func (w *ProcessWorker) Command(productID string, r daterange.Range) procexec.Command {
	var args []string
	if strings.EqualFold(filepath.Ext(w.Path), ".jar") {
		java := w.Java
		if java == "" {
			java = "java"
		}
		args = append(args, java)
		args = append(args, w.JavaOptions...)
		args = append(args, "-jar", w.Path)
	} else {
		args = append(args, w.Path)
	}
	args = append(args, productID, FormatBound(r.Start), FormatBound(r.End))
	return procexec.Command{Args: args, Env: w.Env}
}

// Render runs the worker once.
func (w *ProcessWorker) Render(ctx context.Context, productID string, r daterange.Range) (procexec.Result, error) {
	runner := w.Runner
	if runner == nil {
		runner = procexec.NewRunner(nil)
	}
	return runner.Run(ctx, w.Command(productID, r))
}

// FormatBound renders a range bound as a worker argument; unbounded sides
// become "none".
func FormatBound(t time.Time) string {
	if t.IsZero() {
		return "none"
	}
	return t.UTC().Format(time.RFC3339)
}

// ResolveWorker finds the frame worker. productWorker (from the catalog) and
// cfg.Path are tried in order; each may name a file or a directory searched
// with cfg.Pattern. When neither yields a worker, cfg.SearchDir (or the
// directory of the running executable) is searched.
func ResolveWorker(productWorker string, cfg config.Worker) (string, error) {
	pattern, err := regexp.Compile("^(?:" + cfg.Pattern + ")$")
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "framegen", "resolve worker", "invalid worker pattern", err)
	}

	for _, candidate := range []string{productWorker, cfg.Path} {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		info, err := os.Stat(candidate)
		if err != nil {
			continue
		}
		if !info.IsDir() {
			return candidate, nil
		}
		if found, ok := searchDir(candidate, pattern); ok {
			return found, nil
		}
	}

	dir := strings.TrimSpace(cfg.SearchDir)
	if dir == "" {
		exe, err := os.Executable()
		if err != nil {
			return "", services.Wrap(services.ErrConfiguration, "framegen", "resolve worker", "locate executable", err)
		}
		dir = filepath.Dir(exe)
	}
	if found, ok := searchDir(dir, pattern); ok {
		return found, nil
	}
	return "", services.Wrap(services.ErrConfiguration, "framegen", "resolve worker",
		fmt.Sprintf("no file matching %q in %s", cfg.Pattern, dir), services.ErrNotFound)
}

// searchDir returns the last matching regular file by name, which for
// versioned jars is the newest release.
func searchDir(dir string, pattern *regexp.Regexp) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	var matches []string
	for _, entry := range entries {
		if entry.Type().IsRegular() && pattern.MatchString(entry.Name()) {
			matches = append(matches, entry.Name())
		}
	}
	if len(matches) == 0 {
		return "", false
	}
	sort.Strings(matches)
	return filepath.Join(dir, matches[len(matches)-1]), true
}
