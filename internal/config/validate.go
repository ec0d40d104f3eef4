package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateWorker(); err != nil {
		return err
	}
	if err := c.validateGeneration(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	required := map[string]string{
		"paths.catalog_dir": c.Paths.CatalogDir,
		"paths.frame_dir":   c.Paths.FrameDir,
		"paths.work_dir":    c.Paths.WorkDir,
		"paths.database":    c.Paths.Database,
	}
	for name, value := range required {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s must be set", name)
		}
	}
	return nil
}

func (c *Config) validateWorker() error {
	if c.Worker.MaxAttempts < 0 {
		return errors.New("worker.max_attempts must be zero (unlimited) or positive")
	}
	if _, err := regexp.Compile(c.Worker.Pattern); err != nil {
		return fmt.Errorf("worker.pattern: %w", err)
	}
	if c.Database.ServerPort < 0 || c.Database.ServerPort > 65535 {
		return fmt.Errorf("database.server_port %d out of range", c.Database.ServerPort)
	}
	return nil
}

func (c *Config) validateGeneration() error {
	if c.Generation.OutdatedLogLimit < 0 {
		return errors.New("generation.outdated_log_limit must not be negative")
	}
	if !strings.Contains(c.Generation.OutputURITemplate, "{filename}") {
		return errors.New("generation.output_uri_template must contain {filename}")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
