package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeWorker(); err != nil {
		return err
	}
	c.normalizeGeneration()
	c.normalizeLogging()
	c.normalizeNotifications()
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		name  string
		value *string
	}{
		{"paths.catalog_dir", &c.Paths.CatalogDir},
		{"paths.frame_dir", &c.Paths.FrameDir},
		{"paths.work_dir", &c.Paths.WorkDir},
		{"paths.output_dir", &c.Paths.OutputDir},
		{"paths.log_dir", &c.Paths.LogDir},
		{"paths.database", &c.Paths.Database},
		{"metrics.textfile", &c.Metrics.Textfile},
	}
	for _, f := range fields {
		expanded, err := expandPath(strings.TrimSpace(*f.value))
		if err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		*f.value = expanded
	}
	return nil
}

func (c *Config) normalizeWorker() error {
	var err error
	if c.Worker.Path, err = expandPath(strings.TrimSpace(c.Worker.Path)); err != nil {
		return fmt.Errorf("worker.path: %w", err)
	}
	if c.Worker.SearchDir, err = expandPath(strings.TrimSpace(c.Worker.SearchDir)); err != nil {
		return fmt.Errorf("worker.search_dir: %w", err)
	}
	if strings.TrimSpace(c.Worker.Pattern) == "" {
		c.Worker.Pattern = defaultWorkerPattern
	}
	if strings.TrimSpace(c.Worker.Java) == "" {
		c.Worker.Java = defaultJava
	}
	return nil
}

func (c *Config) normalizeGeneration() {
	g := &c.Generation
	if g.OutdatedLogLimit == 0 {
		g.OutdatedLogLimit = defaultOutdatedLogLimit
	}
	if strings.TrimSpace(g.OutputURITemplate) == "" {
		g.OutputURITemplate = defaultOutputURITemplate
	}
	if strings.TrimSpace(g.PreviewURITemplate) == "" {
		g.PreviewURITemplate = defaultPreviewURITemplate
	}
	g.VideoFrameFormat = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(g.VideoFrameFormat), "."))
	if g.VideoFrameFormat == "" {
		g.VideoFrameFormat = defaultVideoFrameFormat
	}
	g.Region = strings.TrimSpace(g.Region)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyTimeout
	}
}
