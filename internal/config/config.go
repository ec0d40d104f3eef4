package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the directories the generator reads from and writes to.
type Paths struct {
	CatalogDir string `toml:"catalog_dir"`
	FrameDir   string `toml:"frame_dir"`
	WorkDir    string `toml:"work_dir"`
	OutputDir  string `toml:"output_dir"`
	LogDir     string `toml:"log_dir"`
	Database   string `toml:"database"`
}

// Worker configures the external frame renderer.
type Worker struct {
	// Path is a worker file or a directory searched with Pattern. Products may
	// override it in the catalog.
	Path        string   `toml:"path"`
	SearchDir   string   `toml:"search_dir"`
	Pattern     string   `toml:"pattern"`
	Java        string   `toml:"java"`
	JavaOptions []string `toml:"java_options"`
	// MaxAttempts caps render attempts per range. Zero keeps retrying for as
	// long as each attempt produces new frames.
	MaxAttempts int `toml:"max_attempts"`
	// StderrIsFailure treats any stderr output as a failed attempt even when
	// the exit status is zero.
	StderrIsFailure bool `toml:"stderr_is_failure"`
}

// Database holds the connection values forwarded to the frame worker.
type Database struct {
	ServerAddress string `toml:"server_address"`
	ServerPort    int    `toml:"server_port"`
	Name          string `toml:"name"`
}

// Tools lists external commands used during assembly.
type Tools struct {
	ResizeCommand string `toml:"resize_command"`
	// StderrIsFailure fails resize and video commands that write to stderr.
	// Encoders such as ffmpeg log progress there, so it is off by default.
	StderrIsFailure bool `toml:"stderr_is_failure"`
}

// Generation tunes scheduling and output naming.
type Generation struct {
	OutdatedLogLimit   int    `toml:"outdated_log_limit"`
	OutputURITemplate  string `toml:"output_uri_template"`
	PreviewURITemplate string `toml:"preview_uri_template"`
	VideoFrameFormat   string `toml:"video_frame_format"`
	Region             string `toml:"region"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Metrics configures the node-exporter textfile written after each run.
type Metrics struct {
	Textfile string `toml:"textfile"`
}

// Notifications configures ntfy messages sent when a run finishes.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	// OnSuccess also notifies runs that generated every outdated output.
	OnSuccess bool `toml:"on_success"`
}

// Config encapsulates all configuration values for the generator.
//
// Configuration sections by subsystem:
//   - Paths: catalog, frame, working, output, log directories and the metadata database
//   - Worker: frame renderer discovery and retry behaviour
//   - Database: connection values forwarded to the frame renderer
//   - Tools: external helpers used while assembling maps
//   - Generation: output naming templates and logging limits
//   - Logging: log format and level
//   - Metrics: Prometheus textfile output
//   - Notifications: ntfy topic for run outcomes
type Config struct {
	Paths         Paths         `toml:"paths"`
	Worker        Worker        `toml:"worker"`
	Database      Database      `toml:"database"`
	Tools         Tools         `toml:"tools"`
	Generation    Generation    `toml:"generation"`
	Logging       Logging       `toml:"logging"`
	Metrics       Metrics       `toml:"metrics"`
	Notifications Notifications `toml:"notifications"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. Environment
// overrides are applied after the file and before validation.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	env, err := LoadEnvironment("")
	if err != nil {
		return nil, "", false, err
	}
	if strings.TrimSpace(path) == "" {
		path = env.ConfigPath
	}

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		if err := toml.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	env.Apply(&cfg)

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("ncanimate.toml")
	if err != nil {
		return "", false, err
	}
	for _, candidate := range []string{defaultPath, projectPath} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true, nil
		}
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a generation run writes to.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.FrameDir, c.Paths.WorkDir, c.Paths.OutputDir, c.Paths.LogDir}
	if c.Paths.Database != "" {
		dirs = append(dirs, filepath.Dir(c.Paths.Database))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && pathValue[1] == '/' {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
