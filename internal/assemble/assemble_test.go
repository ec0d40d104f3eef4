package assemble_test

import (
	"archive/zip"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"ncanimate/internal/assemble"
	"ncanimate/internal/catalog"
	"ncanimate/internal/daterange"
	"ncanimate/internal/framefiles"
	"ncanimate/internal/logging"
	"ncanimate/internal/metadata"
	"ncanimate/internal/procexec"
	"ncanimate/internal/services"
	"ncanimate/internal/storage"
	"ncanimate/internal/timetable"
)

var start = time.Date(2010, 9, 1, 0, 0, 0, 0, time.UTC)

type fixture struct {
	root      string
	layout    framefiles.Layout
	outputDir string
	assembler *assemble.Assembler
}

func newFixture(t *testing.T, product *catalog.Product, resize string) fixture {
	t.Helper()
	return newFixtureWithRunner(t, product, resize, nil)
}

func newFixtureWithRunner(t *testing.T, product *catalog.Product, resize string, runner *procexec.Runner) fixture {
	t.Helper()
	root := t.TempDir()
	layout := framefiles.Layout{Root: filepath.Join(root, "frames"), ProductID: product.ID, VideoFormat: "png"}
	outputDir := filepath.Join(root, "output")
	a := assemble.New(assemble.Options{
		Product: product,
		Layout:  layout,
		WorkDir: filepath.Join(root, "work"),
		Destinations: storage.Destinations{
			OutputTemplate:  "file://{output_dir}/{product}/{filename}",
			PreviewTemplate: "file://{output_dir}/{product}/preview/{basename}.png",
			OutputDir:       outputDir,
		},
		Runner:        runner,
		ResizeCommand: resize,
		Logger:        logging.NewNop(),
	})
	return fixture{root: root, layout: layout, outputDir: outputDir, assembler: a}
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode: %v", err)
	}
}

func hourFrame(h int) timetable.Frame {
	r := daterange.New(start.Add(time.Duration(h)*time.Hour), start.Add(time.Duration(h+1)*time.Hour))
	return timetable.Frame{Range: r, Identities: timetable.NewIdentitySet("in-1")}
}

func mapProduct(width, height int) *catalog.Product {
	return &catalog.Product{
		ID:                 "p",
		FrameTimeIncrement: catalog.TimeIncrement{Count: 1, Unit: catalog.UnitHour},
		RenderFiles: []catalog.RenderFile{
			{ID: "png", Kind: catalog.KindMap, Format: "png", Map: &catalog.MapRender{Width: width, Height: height}},
		},
	}
}

func mapOutput(product *catalog.Product) timetable.Output {
	frame := hourFrame(0)
	return timetable.Output{
		ID:        "p/p_map",
		Name:      "p_map",
		Kind:      catalog.KindMap,
		Region:    catalog.Region{ID: "torres-strait"},
		Range:     frame.Range,
		Files:     product.Files(catalog.KindMap),
		Frames:    []timetable.Frame{frame},
		Inputs:    []metadata.InputFile{{ID: "in-1", URI: "file:///in.nc", Checksum: "md5:1", LastModified: start}},
		Signature: "sig",
	}
}

func TestAssembleMapLinksFrameAndBuildsRecord(t *testing.T) {
	product := mapProduct(0, 0)
	fx := newFixture(t, product, "")
	out := mapOutput(product)
	writePNG(t, fx.layout.FramePath(framefiles.NewKey("torres-strait", out.Height, out.Range, "png")), 4, 4)

	record, err := fx.assembler.Assemble(context.Background(), out)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	uploaded := filepath.Join(fx.outputDir, "p", "p_map.png")
	info, err := os.Lstat(uploaded)
	if err != nil || info.Mode()&os.ModeSymlink != 0 {
		t.Fatalf("expected a regular uploaded file, err=%v", err)
	}
	if len(record.OutputFiles) != 1 || record.OutputFiles[0].Type != "MAP" || record.OutputFiles[0].URI != "file://"+uploaded {
		t.Fatalf("unexpected output files %+v", record.OutputFiles)
	}
	if record.Region.Label != "Torres Strait" || record.DefinitionID != "p" || record.Signature != "sig" {
		t.Fatalf("unexpected record %+v", record)
	}
	if !record.Range().Equal(out.Range) || len(record.InputFiles) != 1 || record.InputFiles[0].Checksum != "md5:1" {
		t.Fatalf("unexpected provenance %+v", record)
	}
	if _, err := os.Lstat(filepath.Join(fx.root, "work", "p_map.png")); !os.IsNotExist(err) {
		t.Fatal("local output should be removed after upload")
	}
}

func TestAssembleMapResizesWithCommand(t *testing.T) {
	if _, err := exec.LookPath("cp"); err != nil {
		t.Skip("cp not available")
	}
	product := mapProduct(8, 8)
	fx := newFixture(t, product, `cp "{input}" "{output}"`)
	out := mapOutput(product)
	writePNG(t, fx.layout.FramePath(framefiles.NewKey("torres-strait", out.Height, out.Range, "png")), 4, 4)

	record, err := fx.assembler.Assemble(context.Background(), out)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if record.OutputFiles[0].Width != 8 {
		t.Fatalf("expected requested width in record, got %+v", record.OutputFiles[0])
	}
}

func TestAssembleMapMissingFrame(t *testing.T) {
	product := mapProduct(0, 0)
	fx := newFixture(t, product, "")
	_, err := fx.assembler.Assemble(context.Background(), mapOutput(product))
	if !errors.Is(err, services.ErrMissingFrames) {
		t.Fatalf("expected missing frames error, got %v", err)
	}
}

func videoProduct(file catalog.RenderFile) *catalog.Product {
	return &catalog.Product{
		ID:                 "p",
		FrameTimeIncrement: catalog.TimeIncrement{Count: 1, Unit: catalog.UnitHour},
		VideoTimeIncrement: catalog.TimeIncrement{Count: 1, Unit: catalog.UnitDay},
		RenderFiles:        []catalog.RenderFile{file},
	}
}

func videoOutput(product *catalog.Product, frames ...timetable.Frame) timetable.Output {
	return timetable.Output{
		ID:     "p/p_video",
		Name:   "p_video",
		Kind:   catalog.KindVideo,
		Region: catalog.Region{ID: "qld", Label: "Queensland"},
		Range:  daterange.New(start, start.Add(24*time.Hour)),
		Files:  product.Files(catalog.KindVideo),
		Frames: frames,
	}
}

func TestAssembleZipVideo(t *testing.T) {
	product := videoProduct(catalog.RenderFile{ID: "zip", Kind: catalog.KindVideo, Format: "zip", Video: &catalog.VideoRender{FPS: 5}})
	fx := newFixture(t, product, "")
	out := videoOutput(product, hourFrame(1), hourFrame(0))
	for _, frame := range out.Frames {
		writePNG(t, fx.layout.FramePath(framefiles.NewKey("qld", out.Height, frame.Range, "png")), 2, 2)
	}

	record, err := fx.assembler.Assemble(context.Background(), out)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	archive, err := zip.OpenReader(filepath.Join(fx.outputDir, "p", "p_video.zip"))
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	defer archive.Close()
	if len(archive.File) != 2 || archive.File[0].Name != "frame_00000.png" {
		t.Fatalf("unexpected archive entries %d", len(archive.File))
	}
	if record.Preview != "file://"+filepath.Join(fx.outputDir, "p", "preview", "p_video.png") {
		t.Fatalf("unexpected preview %q", record.Preview)
	}
	if _, err := os.Stat(filepath.Join(fx.outputDir, "p", "preview", "p_video.png")); err != nil {
		t.Fatalf("preview not uploaded: %v", err)
	}
	if record.VideoTimeIncrement != "daily" || record.OutputFiles[0].FPS != 5 {
		t.Fatalf("unexpected record %+v", record)
	}
}

func TestAssembleVideoRunsCommandLines(t *testing.T) {
	if _, err := exec.LookPath("cp"); err != nil {
		t.Skip("cp not available")
	}
	product := videoProduct(catalog.RenderFile{
		ID: "mp4", Kind: catalog.KindVideo, Format: "mp4",
		Video: &catalog.VideoRender{FPS: 10, CommandLines: []string{`cp "{frames}/frame_00000.png" "{output}"`}},
	})
	fx := newFixture(t, product, "")
	out := videoOutput(product, hourFrame(0))
	writePNG(t, fx.layout.FramePath(framefiles.NewKey("qld", out.Height, out.Frames[0].Range, "png")), 2, 2)

	if _, err := fx.assembler.Assemble(context.Background(), out); err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if _, err := os.Stat(filepath.Join(fx.outputDir, "p", "p_video.mp4")); err != nil {
		t.Fatalf("video not uploaded: %v", err)
	}
}

func TestAssembleVideoCommandFailure(t *testing.T) {
	product := videoProduct(catalog.RenderFile{
		ID: "mp4", Kind: catalog.KindVideo, Format: "mp4",
		Video: &catalog.VideoRender{FPS: 10, CommandLines: []string{"/nonexistent/encoder {input} {output}"}},
	})
	fx := newFixture(t, product, "")
	out := videoOutput(product, hourFrame(0))
	writePNG(t, fx.layout.FramePath(framefiles.NewKey("qld", out.Height, out.Frames[0].Range, "png")), 2, 2)

	_, err := fx.assembler.Assemble(context.Background(), out)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

// writeChattyEncoder writes an encoder that logs a banner to stderr, the way
// ffmpeg does, and then copies its input to its output.
func writeChattyEncoder(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	path := filepath.Join(t.TempDir(), "encoder.sh")
	script := "#!/bin/sh\necho 'ffmpeg version 6.1 Copyright (c) the FFmpeg developers' >&2\ncp \"$1\" \"$2\"\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write encoder: %v", err)
	}
	return path
}

func chattyVideoProduct(encoder string) *catalog.Product {
	return videoProduct(catalog.RenderFile{
		ID: "mp4", Kind: catalog.KindVideo, Format: "mp4",
		Video: &catalog.VideoRender{FPS: 10, CommandLines: []string{`"` + encoder + `" "{frames}/frame_00000.png" "{output}"`}},
	})
}

func TestAssembleVideoToleratesEncoderStderr(t *testing.T) {
	product := chattyVideoProduct(writeChattyEncoder(t))
	fx := newFixture(t, product, "")
	out := videoOutput(product, hourFrame(0))
	writePNG(t, fx.layout.FramePath(framefiles.NewKey("qld", out.Height, out.Frames[0].Range, "png")), 2, 2)

	if _, err := fx.assembler.Assemble(context.Background(), out); err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if _, err := os.Stat(filepath.Join(fx.outputDir, "p", "p_video.mp4")); err != nil {
		t.Fatalf("video not uploaded: %v", err)
	}
}

func TestAssembleVideoStrictRunnerRejectsStderr(t *testing.T) {
	product := chattyVideoProduct(writeChattyEncoder(t))
	fx := newFixtureWithRunner(t, product, "", procexec.NewRunner(logging.NewNop()))
	out := videoOutput(product, hourFrame(0))
	writePNG(t, fx.layout.FramePath(framefiles.NewKey("qld", out.Height, out.Frames[0].Range, "png")), 2, 2)

	if _, err := fx.assembler.Assemble(context.Background(), out); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestAssembleVideoMissingFrames(t *testing.T) {
	product := videoProduct(catalog.RenderFile{ID: "zip", Kind: catalog.KindVideo, Format: "zip", Video: &catalog.VideoRender{FPS: 5}})
	fx := newFixture(t, product, "")
	out := videoOutput(product, hourFrame(0), hourFrame(1))
	writePNG(t, fx.layout.FramePath(framefiles.NewKey("qld", out.Height, out.Frames[0].Range, "png")), 2, 2)

	_, err := fx.assembler.Assemble(context.Background(), out)
	if !errors.Is(err, services.ErrMissingFrames) {
		t.Fatalf("expected missing frames error, got %v", err)
	}
}

func TestRegionLabel(t *testing.T) {
	if got := assemble.RegionLabel(catalog.Region{ID: "gbr_north"}); got != "Gbr North" {
		t.Fatalf("RegionLabel = %q", got)
	}
	if got := assemble.RegionLabel(catalog.Region{ID: "x", Label: "Custom"}); got != "Custom" {
		t.Fatalf("RegionLabel = %q", got)
	}
}
