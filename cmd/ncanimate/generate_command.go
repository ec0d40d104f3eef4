package main

import (
	"strings"

	"github.com/spf13/cobra"

	"ncanimate/internal/jobrun"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var region string

	cmd := &cobra.Command{
		Use:   "generate <product-id>",
		Short: "Generate the outdated outputs of one product",
		Long: "Generates a product directly, without a task record. The region defaults to\n" +
			"generation.region from the configuration; when neither is set every region\n" +
			"of the product is considered.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runJob(cmd, jobrun.Options{
				ProductID: strings.TrimSpace(args[0]),
				Region:    strings.TrimSpace(region),
			})
		},
	}

	cmd.Flags().StringVar(&region, "region", "", "Only generate outputs of this region")
	return cmd
}
