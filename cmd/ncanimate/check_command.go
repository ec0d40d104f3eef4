package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ncanimate/internal/catalog"
	"ncanimate/internal/deps"
	"ncanimate/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check [product-id...]",
		Short: "Check directories, the metadata store, workers and external tools",
		Long: "Without arguments every product in the catalog is checked. Exits non-zero\n" +
			"when a check fails or a required tool is missing.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			resolver := catalog.NewFileResolver(cfg.Paths.CatalogDir)
			var products []*catalog.Product
			if len(args) == 0 {
				products, err = resolver.List(cmd.Context())
				if err != nil {
					return err
				}
			} else {
				for _, id := range args {
					product, err := resolver.Product(cmd.Context(), strings.TrimSpace(id))
					if err != nil {
						return err
					}
					products = append(products, product)
				}
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			results := preflight.RunAll(cmd.Context(), cfg, products)
			statuses := preflight.CheckSystemDeps(cfg, products)

			lines := renderSectionHeader("Environment", colorize)
			lines = append(lines, checkLines(results, colorize)...)
			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("External tools", colorize)...)
			lines = append(lines, dependencyLines(statuses, colorize)...)
			for _, line := range lines {
				fmt.Fprintln(out, line)
			}

			failed := len(preflight.Failed(results))
			missing := len(deps.Missing(statuses))
			if failed > 0 || missing > 0 {
				return errors.New(checkFailureMessage(failed, missing))
			}
			return nil
		},
	}
}

func checkFailureMessage(failed, missing int) string {
	var parts []string
	if failed > 0 {
		parts = append(parts, fmt.Sprintf("%d check(s) failed", failed))
	}
	if missing > 0 {
		parts = append(parts, fmt.Sprintf("%d required tool(s) missing", missing))
	}
	return strings.Join(parts, ", ")
}
