package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"ncanimate/internal/config"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range []string{"TASK_ID", "DATABASE_SERVER_ADDRESS", "DATABASE_SERVER_PORT", "DATABASE_NAME", "NCANIMATE_REGION", "NCANIMATE_CONFIG"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	t.Chdir(t.TempDir())
	return home
}

func TestLoadDefaultsExpandPaths(t *testing.T) {
	home := isolate(t)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if resolved != filepath.Join(home, ".config", "ncanimate", "config.toml") {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if cfg.Paths.FrameDir != filepath.Join(home, ".local", "share", "ncanimate", "frames") {
		t.Fatalf("unexpected frame dir %q", cfg.Paths.FrameDir)
	}
	if cfg.Generation.OutdatedLogLimit != 3 {
		t.Fatalf("unexpected outdated log limit %d", cfg.Generation.OutdatedLogLimit)
	}
	if !cfg.Worker.StderrIsFailure {
		t.Fatal("expected strict stderr policy by default")
	}
	if cfg.Tools.StderrIsFailure {
		t.Fatal("assembly tools must be judged by exit status by default")
	}
	if cfg.Worker.MaxAttempts != 0 {
		t.Fatalf("expected unlimited attempts by default, got %d", cfg.Worker.MaxAttempts)
	}
}

func TestLoadFileAndEnvironmentOverlay(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfgVal := config.Default()
	cfgVal.Paths.FrameDir = filepath.Join(dir, "frames")
	cfgVal.Database.Name = "from-file"
	cfgVal.Worker.MaxAttempts = 4
	data, err := toml.Marshal(cfgVal)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("DATABASE_NAME", "from-env")
	t.Setenv("DATABASE_SERVER_PORT", "27018")
	t.Setenv("NCANIMATE_REGION", "qld")

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected config at %q, got %q (exists=%v)", path, resolved, exists)
	}
	if cfg.Paths.FrameDir != filepath.Join(dir, "frames") {
		t.Fatalf("unexpected frame dir %q", cfg.Paths.FrameDir)
	}
	if cfg.Database.Name != "from-env" || cfg.Database.ServerPort != 27018 {
		t.Fatalf("expected env overlay, got %+v", cfg.Database)
	}
	if cfg.Generation.Region != "qld" {
		t.Fatalf("expected region from env, got %q", cfg.Generation.Region)
	}
	if cfg.Worker.MaxAttempts != 4 {
		t.Fatalf("expected max attempts from file, got %d", cfg.Worker.MaxAttempts)
	}
}

func TestLoadEnvironmentReadsDotEnv(t *testing.T) {
	isolate(t)
	envFile := filepath.Join(t.TempDir(), "job.env")
	if err := os.WriteFile(envFile, []byte("TASK_ID=task-42\nNCANIMATE_REGION=torres-strait\n"), 0o644); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Cleanup(func() {
		os.Unsetenv("TASK_ID")
		os.Unsetenv("NCANIMATE_REGION")
	})

	env, err := config.LoadEnvironment(envFile)
	if err != nil {
		t.Fatalf("LoadEnvironment: %v", err)
	}
	if env.TaskID != "task-42" || env.Region != "torres-strait" {
		t.Fatalf("unexpected environment %+v", env)
	}
}

func TestLoadEnvironmentMissingFileIsFine(t *testing.T) {
	isolate(t)
	if _, err := config.LoadEnvironment(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("expected missing env file to be ignored, got %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"negative attempts", func(c *config.Config) { c.Worker.MaxAttempts = -1 }, "max_attempts"},
		{"bad pattern", func(c *config.Config) { c.Worker.Pattern = "(" }, "worker.pattern"},
		{"template without filename", func(c *config.Config) { c.Generation.OutputURITemplate = "file:///out" }, "{filename}"},
		{"bad log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"missing frame dir", func(c *config.Config) { c.Paths.FrameDir = "" }, "paths.frame_dir"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if _, _, exists, err := config.Load(path); err != nil || !exists {
		t.Fatalf("expected sample to load, exists=%v err=%v", exists, err)
	}
}
