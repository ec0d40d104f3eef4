package preflight

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"ncanimate/internal/catalog"
	"ncanimate/internal/config"
	"ncanimate/internal/deps"
	"ncanimate/internal/framegen"
	"ncanimate/internal/metadata"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.W_OK|unix.X_OK, "read/write ok")
}

// CheckDirectoryReadable verifies that the directory exists and can be listed.
func CheckDirectoryReadable(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.X_OK, "read ok")
}

func checkDirectory(name, path string, mode uint32, ok string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, mode); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, ok)}
}

// CheckDatabase opens the metadata store, creating it when absent, and
// reports how many input files it knows.
func CheckDatabase(ctx context.Context, path string) Result {
	const name = "Metadata store"
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	store, err := metadata.Open(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	defer store.Close()
	files, err := store.InputFiles(ctx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d input files)", path, len(files))}
}

// CheckWorker resolves the frame worker of product.
func CheckWorker(product *catalog.Product, cfg config.Worker) Result {
	name := "Frame worker " + product.ID
	path, err := framegen.ResolveWorker(product.Worker, cfg)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckSystemDeps evaluates the external commands runs of products need:
// java for jar workers, the resize command, and the encoder of every video
// render file.
func CheckSystemDeps(cfg *config.Config, products []*catalog.Product) []deps.Status {
	needJava := false
	for _, product := range products {
		if path, err := framegen.ResolveWorker(product.Worker, cfg.Worker); err == nil && isJar(path) {
			needJava = true
		}
	}
	requirements := []deps.Requirement{{
		Name:        "Java",
		Command:     cfg.Worker.Java,
		Description: "Runs jar frame workers",
		Optional:    !needJava,
	}}
	if cmd := deps.CommandName(cfg.Tools.ResizeCommand); cmd != "" {
		requirements = append(requirements, deps.Requirement{
			Name:        "Resize",
			Command:     cmd,
			Description: "Resizes raster map frames",
			Optional:    true,
		})
	}
	for _, product := range products {
		for _, file := range product.Files(catalog.KindVideo) {
			if file.Video == nil {
				continue
			}
			for _, line := range file.Video.CommandLines {
				cmd := deps.CommandName(line)
				if cmd == "" {
					continue
				}
				requirements = append(requirements, deps.Requirement{
					Name:        filepath.Base(cmd),
					Command:     cmd,
					Description: fmt.Sprintf("Encodes %s videos of %s", file.Format, product.ID),
				})
			}
		}
	}
	return deps.CheckBinaries(deps.Dedupe(requirements))
}

func isJar(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".jar")
}
