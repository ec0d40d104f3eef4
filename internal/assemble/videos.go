package assemble

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"ncanimate/internal/fileutil"
	"ncanimate/internal/logging"
	"ncanimate/internal/metadata"
	"ncanimate/internal/services"
	"ncanimate/internal/timetable"
)

// FramePattern names the linked frames handed to video commands.
const FramePattern = "frame_%05d"

func (a *Assembler) assembleVideo(ctx context.Context, out timetable.Output) ([]metadata.OutputRef, string, error) {
	frames := a.layout.ForOutput(out).Ordered()
	if len(frames) == 0 {
		return nil, "", services.Wrap(services.ErrMissingFrames, "assemble", "video", out.ID+": no frames planned", nil)
	}
	var missing []string
	for _, frame := range frames {
		if !fileutil.Exists(frame) {
			missing = append(missing, frame)
		}
	}
	if len(missing) > 0 {
		return nil, "", services.Wrap(services.ErrMissingFrames, "assemble", "video",
			fmt.Sprintf("%d of %d frames missing, first %s", len(missing), len(frames), missing[0]), nil)
	}

	scratch := filepath.Join(a.workDir, out.Name+"_frames")
	if err := os.RemoveAll(scratch); err != nil {
		return nil, "", fmt.Errorf("reset %s: %w", scratch, err)
	}
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		return nil, "", fmt.Errorf("create %s: %w", scratch, err)
	}
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			a.logger.Debug("failed to remove frame links", logging.String("path", scratch), logging.Error(err))
		}
	}()

	linked := make([]string, 0, len(frames))
	for i, frame := range frames {
		link := filepath.Join(scratch, fmt.Sprintf(FramePattern, i)+"."+a.layout.VideoFormat)
		if err := os.Symlink(frame, link); err != nil {
			return nil, "", fmt.Errorf("link frame %s: %w", frame, err)
		}
		linked = append(linked, link)
	}

	refs := make([]metadata.OutputRef, 0, len(out.Files))
	for _, file := range out.Files {
		if file.Video == nil {
			continue
		}
		name := out.FileName(file)
		local := filepath.Join(a.workDir, name)
		_ = os.Remove(local)

		if file.Format == "zip" {
			if err := writeZip(local, linked); err != nil {
				return nil, "", fmt.Errorf("zip %s: %w", name, err)
			}
		} else {
			vars := map[string]string{
				"frames": scratch,
				"input":  filepath.Join(scratch, FramePattern+"."+a.layout.VideoFormat),
				"output": local,
				"format": file.Format,
				"fps":    strconv.Itoa(file.Video.FPS),
				"width":  strconv.Itoa(file.Video.Width),
				"height": strconv.Itoa(file.Video.Height),
			}
			for _, line := range file.Video.CommandLines {
				if err := a.runCommand(ctx, line, vars); err != nil {
					return nil, "", fmt.Errorf("video %s: %w", name, err)
				}
			}
			if !fileutil.Exists(local) {
				return nil, "", services.Wrap(services.ErrExternalTool, "assemble", "video", name+": commands produced no output", nil)
			}
		}

		uri := a.dest.Output(a.product.ID, name)
		if err := a.upload(ctx, local, uri); err != nil {
			return nil, "", fmt.Errorf("upload %s: %w", name, err)
		}
		refs = append(refs, metadata.OutputRef{
			ID:     file.ID,
			URI:    uri,
			Type:   "VIDEO",
			Format: file.Format,
			FPS:    file.Video.FPS,
			Width:  file.Video.Width,
			Height: file.Video.Height,
		})
	}

	preview := a.dest.Preview(a.product.ID, out.Name+"."+a.layout.VideoFormat)
	if err := a.store.Upload(ctx, frames[0], preview); err != nil {
		return nil, "", fmt.Errorf("upload preview: %w", err)
	}
	return refs, preview, nil
}

// writeZip archives the frames under their linked names.
func writeZip(path string, frames []string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	zw := zip.NewWriter(f)
	for _, frame := range frames {
		if err := addToZip(zw, frame); err != nil {
			_ = zw.Close()
			_ = f.Close()
			return err
		}
	}
	if err := zw.Close(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func addToZip(zw *zip.Writer, path string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()
	w, err := zw.Create(filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(w, in)
	return err
}
