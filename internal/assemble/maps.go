package assemble

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strconv"

	"ncanimate/internal/catalog"
	"ncanimate/internal/fileutil"
	"ncanimate/internal/framefiles"
	"ncanimate/internal/logging"
	"ncanimate/internal/metadata"
	"ncanimate/internal/services"
	"ncanimate/internal/timetable"
)

func (a *Assembler) assembleMap(ctx context.Context, out timetable.Output) ([]metadata.OutputRef, error) {
	refs := make([]metadata.OutputRef, 0, len(out.Files))
	for _, file := range out.Files {
		if file.Map == nil {
			continue
		}
		frame := a.layout.FramePath(framefiles.NewKey(out.Region.ID, out.Height, out.Range, file.Format))
		if !fileutil.Exists(frame) {
			return nil, services.Wrap(services.ErrMissingFrames, "assemble", "map", frame, nil)
		}

		name := out.FileName(file)
		local := filepath.Join(a.workDir, name)
		if err := a.prepareMap(ctx, file, frame, local); err != nil {
			return nil, fmt.Errorf("map %s: %w", name, err)
		}
		uri := a.dest.Output(a.product.ID, name)
		if err := a.upload(ctx, local, uri); err != nil {
			return nil, fmt.Errorf("upload %s: %w", name, err)
		}
		refs = append(refs, metadata.OutputRef{
			ID:     file.ID,
			URI:    uri,
			Type:   "MAP",
			Format: file.Format,
			Width:  file.Map.Width,
			Height: file.Map.Height,
		})
	}
	return refs, nil
}

// prepareMap resizes raster frames whose size differs from the requested
// one; everything else is linked as is.
func (a *Assembler) prepareMap(ctx context.Context, file catalog.RenderFile, frame, local string) error {
	if !needsResize(file, frame) {
		return replaceWithSymlink(frame, local)
	}
	if a.resizeCommand == "" {
		logging.WarnWithContext(a.logger, "frame size differs but no resize command is configured", "map_resize_skipped",
			logging.String("frame", frame),
			logging.String(logging.FieldErrorHint, "set tools.resize_command"),
			logging.String(logging.FieldImpact, "map published at frame size"),
		)
		return replaceWithSymlink(frame, local)
	}
	_ = os.Remove(local)
	return a.runCommand(ctx, a.resizeCommand, map[string]string{
		"input":  frame,
		"output": local,
		"width":  strconv.Itoa(file.Map.Width),
		"height": strconv.Itoa(file.Map.Height),
	})
}

func needsResize(file catalog.RenderFile, frame string) bool {
	if file.Map == nil || !catalog.IsRaster(file.Format) || (file.Map.Width <= 0 && file.Map.Height <= 0) {
		return false
	}
	width, height, err := imageSize(frame)
	if err != nil {
		return false
	}
	return (file.Map.Width > 0 && width != file.Map.Width) || (file.Map.Height > 0 && height != file.Map.Height)
}

func imageSize(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}
