package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"ncanimate/internal/config"
	"ncanimate/internal/testsupport"
)

const cliProduct = `
id = "p"
frame_time_increment = "hourly"
video_time_increment = "daily"

[[regions]]
id = "qld"

[[inputs]]
layer = "temp"
definition_id = "hydro"

[[render_files]]
type = "map"
format = "png"
`

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	t.Setenv("HOME", testsupport.BaseDir(cfg))
	t.Setenv("TASK_ID", "")
	testsupport.WriteProduct(t, cfg, "p", cliProduct)

	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestProductsCommandListsCatalog(t *testing.T) {
	env := setupCLITestEnv(t)
	out, err := runCLI(t, env, "products")
	if err != nil {
		t.Fatalf("products: %v", err)
	}
	for _, want := range []string{"Product", "hourly", "daily", "qld", "map:png"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestGenerateWithoutInputsIsNoop(t *testing.T) {
	env := setupCLITestEnv(t)
	out, err := runCLI(t, env, "generate", "p")
	if err != nil {
		t.Fatalf("generate: %v\n%s", err, out)
	}
	if !strings.Contains(out, "0 generated") || !strings.Contains(out, "[OK]") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestGenerateUnknownProductFails(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, err := runCLI(t, env, "generate", "absent"); err == nil {
		t.Fatal("expected error for unknown product")
	}
}

func TestRootRequiresTaskID(t *testing.T) {
	env := setupCLITestEnv(t)
	_, err := runCLI(t, env)
	if err == nil || !strings.Contains(err.Error(), "TASK_ID") {
		t.Fatalf("expected missing task id error, got %v", err)
	}
}

func TestConfigValidateUsesConfigFlag(t *testing.T) {
	env := setupCLITestEnv(t)
	out, err := runCLI(t, env, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(out, env.configPath) || !strings.Contains(out, "Configuration valid") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	env := setupCLITestEnv(t)
	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	if _, err := runCLI(t, env, "config", "init", "--path", target); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config not written: %v", err)
	}
	if _, err := runCLI(t, env, "config", "init", "--path", target); err == nil {
		t.Fatal("expected refusal to overwrite")
	}
	if _, err := runCLI(t, env, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestCheckReportsMissingWorker(t *testing.T) {
	env := setupCLITestEnv(t)
	out, err := runCLI(t, env, "check")
	if err == nil {
		t.Fatal("expected check failure without a frame worker")
	}
	for _, want := range []string{"Environment", "Catalog directory", "[OK]", "[ERROR]"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}
