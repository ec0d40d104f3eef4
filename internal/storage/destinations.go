package storage

import (
	"strings"

	"ncanimate/internal/catalog"
)

// Destinations expands the configured URI templates for outputs and their
// previews. Templates may use {output_dir}, {product}, {filename} and
// {basename} (the file name without extension).
type Destinations struct {
	OutputTemplate  string
	PreviewTemplate string
	OutputDir       string
}

// Output returns the destination of one output file.
func (d Destinations) Output(productID, filename string) string {
	return catalog.Expand(d.OutputTemplate, d.vars(productID, filename))
}

// Preview returns the destination of a video's preview image.
func (d Destinations) Preview(productID, filename string) string {
	return catalog.Expand(d.PreviewTemplate, d.vars(productID, filename))
}

func (d Destinations) vars(productID, filename string) map[string]string {
	basename := filename
	if i := strings.LastIndexByte(filename, '.'); i > 0 {
		basename = filename[:i]
	}
	return map[string]string{
		"output_dir": strings.TrimSuffix(d.OutputDir, "/"),
		"product":    productID,
		"filename":   filename,
		"basename":   basename,
	}
}
