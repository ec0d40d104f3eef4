package config

const (
	defaultConfigPath         = "~/.config/ncanimate/config.toml"
	defaultCatalogDir         = "~/.config/ncanimate/products"
	defaultFrameDir           = "~/.local/share/ncanimate/frames"
	defaultWorkDir            = "~/.local/share/ncanimate/work"
	defaultOutputDir          = "~/.local/share/ncanimate/output"
	defaultLogDir             = "~/.local/share/ncanimate/logs"
	defaultDatabasePath       = "~/.local/share/ncanimate/ncanimate.db"
	defaultWorkerPattern      = `ereefs-ncanimate2-frame.*-jar-with-dependencies\.jar`
	defaultJava               = "java"
	defaultDatabaseAddress    = "localhost"
	defaultDatabasePort       = 27017
	defaultDatabaseName       = "ereefs"
	defaultOutdatedLogLimit   = 3
	defaultOutputURITemplate  = "file://{output_dir}/{product}/{filename}"
	defaultPreviewURITemplate = "file://{output_dir}/{product}/preview/{basename}.png"
	defaultVideoFrameFormat   = "png"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultNtfyTimeout        = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			CatalogDir: defaultCatalogDir,
			FrameDir:   defaultFrameDir,
			WorkDir:    defaultWorkDir,
			OutputDir:  defaultOutputDir,
			LogDir:     defaultLogDir,
			Database:   defaultDatabasePath,
		},
		Worker: Worker{
			Pattern:         defaultWorkerPattern,
			Java:            defaultJava,
			JavaOptions:     []string{"-XX:MaxRAMPercentage=80.0"},
			StderrIsFailure: true,
		},
		Database: Database{
			ServerAddress: defaultDatabaseAddress,
			ServerPort:    defaultDatabasePort,
			Name:          defaultDatabaseName,
		},
		Generation: Generation{
			OutdatedLogLimit:   defaultOutdatedLogLimit,
			OutputURITemplate:  defaultOutputURITemplate,
			PreviewURITemplate: defaultPreviewURITemplate,
			VideoFrameFormat:   defaultVideoFrameFormat,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
		},
	}
}
