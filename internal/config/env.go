package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Environment holds the variables the batch scheduler injects into a job.
type Environment struct {
	TaskID                string `envconfig:"TASK_ID"`
	DatabaseServerAddress string `envconfig:"DATABASE_SERVER_ADDRESS"`
	DatabaseServerPort    int    `envconfig:"DATABASE_SERVER_PORT"`
	DatabaseName          string `envconfig:"DATABASE_NAME"`
	Region                string `envconfig:"NCANIMATE_REGION"`
	ConfigPath            string `envconfig:"NCANIMATE_CONFIG"`
}

// LoadEnvironment reads envFile (".env" when empty) if it exists, then
// decodes the process environment. Variables already set in the process win
// over the file.
func LoadEnvironment(envFile string) (*Environment, error) {
	if strings.TrimSpace(envFile) == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	var env Environment
	if err := envconfig.Process("", &env); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}
	env.TaskID = strings.TrimSpace(env.TaskID)
	env.Region = strings.TrimSpace(env.Region)
	return &env, nil
}

// Apply overlays non-empty environment values onto cfg.
func (e *Environment) Apply(cfg *Config) {
	if e == nil || cfg == nil {
		return
	}
	if v := strings.TrimSpace(e.DatabaseServerAddress); v != "" {
		cfg.Database.ServerAddress = v
	}
	if e.DatabaseServerPort > 0 {
		cfg.Database.ServerPort = e.DatabaseServerPort
	}
	if v := strings.TrimSpace(e.DatabaseName); v != "" {
		cfg.Database.Name = v
	}
	if e.Region != "" {
		cfg.Generation.Region = e.Region
	}
}
