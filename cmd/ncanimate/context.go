package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"ncanimate/internal/config"
	"ncanimate/internal/jobrun"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, _, err := config.Load(c.configFlagValue())
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = path
	})
	return c.config, c.configErr
}

func (c *commandContext) configFlagValue() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) logLevel() string {
	if c.logLevelFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.logLevelFlag)
}

// runJob runs one job and prints its outcome; the error is returned so the
// process exits non-zero after the summary is shown.
func (c *commandContext) runJob(cmd *cobra.Command, opts jobrun.Options) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	opts.LogLevel = c.logLevel()
	result, runErr := jobrun.Run(cmd.Context(), cfg, opts)
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	for _, line := range resultLines(result, runErr, colorize) {
		if _, err := out.Write([]byte(line + "\n")); err != nil {
			return err
		}
	}
	return runErr
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
