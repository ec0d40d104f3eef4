package framefiles_test

import (
	"path/filepath"
	"testing"
	"time"

	"ncanimate/internal/catalog"
	"ncanimate/internal/daterange"
	"ncanimate/internal/framefiles"
	"ncanimate/internal/timetable"
)

func TestFramePathLayout(t *testing.T) {
	layout := framefiles.Layout{Root: "/frames", ProductID: "p", VideoFormat: "png"}
	start := time.Date(2010, 9, 1, 3, 0, 0, 0, time.UTC)
	key := framefiles.NewKey("qld", catalog.HeightOf(-1.5), daterange.New(start, start.Add(time.Hour)), "svg")
	want := filepath.Join("/frames", "p", "qld", "-1.5", "frame_2010-09-01_03h00.svg")
	if got := layout.FramePath(key); got != want {
		t.Fatalf("FramePath = %q, want %q", got, want)
	}
}

func TestForOutputExpandsFramesAndFormats(t *testing.T) {
	layout := framefiles.Layout{Root: "/frames", ProductID: "p", VideoFormat: "png"}
	start := time.Date(2010, 9, 1, 0, 0, 0, 0, time.UTC)
	frames := []timetable.Frame{
		{Range: daterange.New(start.Add(time.Hour), start.Add(2*time.Hour))},
		{Range: daterange.New(start, start.Add(time.Hour))},
	}
	mapOut := timetable.Output{
		Kind:   catalog.KindMap,
		Region: catalog.Region{ID: "qld"},
		Frames: frames[:1],
		Files: []catalog.RenderFile{
			{ID: "png", Kind: catalog.KindMap, Format: "png", Map: &catalog.MapRender{}},
			{ID: "svg", Kind: catalog.KindMap, Format: "svg", Map: &catalog.MapRender{}},
		},
	}
	if got := len(layout.ForOutput(mapOut)); got != 2 {
		t.Fatalf("expected one frame per map format, got %d", got)
	}

	videoOut := timetable.Output{Kind: catalog.KindVideo, Region: catalog.Region{ID: "qld"}, Frames: frames}
	idx := layout.ForOutput(videoOut)
	ordered := idx.Ordered()
	if len(ordered) != 2 || filepath.Base(ordered[0]) != "frame_2010-09-01_00h00.png" {
		t.Fatalf("unexpected ordered frames %v", ordered)
	}

	all := layout.ForOutputs([]timetable.Output{mapOut, videoOut})
	// the png map frame at 01h00 is the same file as the video frame.
	if len(all) != 3 {
		t.Fatalf("expected shared frames to be counted once, got %d", len(all))
	}
	if !all.Contains(ordered[1]) || all.Contains("/elsewhere.png") {
		t.Fatal("Contains reported wrong membership")
	}
}
