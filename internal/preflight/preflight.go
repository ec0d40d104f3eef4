package preflight

import (
	"context"

	"ncanimate/internal/catalog"
	"ncanimate/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll checks every directory the generator writes to, the catalog, the
// metadata store and, for each product, its frame worker.
func RunAll(ctx context.Context, cfg *config.Config, products []*catalog.Product) []Result {
	if cfg == nil {
		return nil
	}
	results := []Result{
		CheckDirectoryReadable("Catalog directory", cfg.Paths.CatalogDir),
		CheckDirectoryAccess("Frame directory", cfg.Paths.FrameDir),
		CheckDirectoryAccess("Working directory", cfg.Paths.WorkDir),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDatabase(ctx, cfg.Paths.Database),
	}
	for _, product := range products {
		results = append(results, CheckWorker(product, cfg.Worker))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
