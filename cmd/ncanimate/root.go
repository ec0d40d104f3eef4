package main

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"ncanimate/internal/config"
	"ncanimate/internal/jobrun"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var logLevelFlag string
	var dryRun bool

	ctx := newCommandContext(&configFlag, &logLevelFlag)

	rootCmd := &cobra.Command{
		Use:   "ncanimate [task-id]",
		Short: "Incrementally generate map and video products",
		Long: "Runs the generation task named by the argument or TASK_ID. Only outputs whose\n" +
			"inputs, parameters or artifacts changed since the last run are regenerated.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID := ""
			if len(args) == 1 {
				taskID = strings.TrimSpace(args[0])
			}
			if taskID == "" {
				env, err := config.LoadEnvironment("")
				if err != nil {
					return err
				}
				taskID = env.TaskID
			}
			if taskID == "" {
				return errors.New("no task id: pass one as an argument or set TASK_ID")
			}
			return ctx.runJob(cmd, jobrun.Options{TaskID: taskID, DryRun: dryRun})
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Override the configured log level")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Only report what a maintenance task would change")

	rootCmd.AddCommand(newGenerateCommand(ctx))
	rootCmd.AddCommand(newProductsCommand(ctx))
	rootCmd.AddCommand(newCheckCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
