// Package assemble produces the final map and video artifacts from rendered
// frames, uploads them with their previews and builds the metadata record
// describing each finished output.
//
// Maps link (or resize) a single frame per render file. Videos link their
// frames in chronological order as frame_00000.<ext>, frame_00001.<ext>, ...
// and either archive them (zip) or run the render file's command lines.
// Command lines may use {frames}, {input}, {output}, {format}, {fps},
// {width} and {height}.
package assemble
