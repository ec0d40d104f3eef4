package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ncanimate/internal/catalog"
)

func newProductsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "products",
		Short: "List the product definitions in the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			products, err := catalog.NewFileResolver(cfg.Paths.CatalogDir).List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(products) == 0 {
				fmt.Fprintf(out, "No products in %s\n", cfg.Paths.CatalogDir)
				return nil
			}
			fmt.Fprintln(out, renderTable(productTable(products)))
			return nil
		},
	}
}

func productTable(products []*catalog.Product) tableSpec {
	rows := make([][]string, 0, len(products))
	for _, p := range products {
		regions := make([]string, 0, len(p.Regions))
		for _, r := range p.Regions {
			regions = append(regions, r.ID)
		}
		files := make([]string, 0, len(p.RenderFiles))
		for _, f := range p.RenderFiles {
			files = append(files, fmt.Sprintf("%s:%s", f.Kind, f.ID))
		}
		rows = append(rows, []string{
			p.ID,
			orDash(p.FrameTimeIncrement.String()),
			orDash(p.VideoTimeIncrement.String()),
			orDash(strings.Join(regions, ", ")),
			orDash(strings.Join(files, ", ")),
			fmt.Sprintf("%d", len(p.Inputs)),
		})
	}
	return tableSpec{
		headers:      []string{"Product", "Frames", "Videos", "Regions", "Render files", "Inputs"},
		rows:         rows,
		rightAligned: map[int]bool{5: true},
	}
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
