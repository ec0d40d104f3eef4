package assemble

import (
	"strings"

	"ncanimate/internal/catalog"
	"ncanimate/internal/metadata"
	"ncanimate/internal/textutil"
	"ncanimate/internal/timetable"
)

func (a *Assembler) record(out timetable.Output, outputs []metadata.OutputRef, preview string) metadata.ProductRecord {
	record := metadata.ProductRecord{
		ID:                 out.ID,
		DefinitionID:       a.product.ID,
		DatasetID:          out.Name,
		Type:               metadata.RecordType,
		Status:             metadata.StatusValid,
		Kind:               string(out.Kind),
		FrameDirURI:        "file://" + a.layout.Dir(out.Region.ID, out.Height),
		LastModified:       a.now().UTC(),
		Region:             metadata.RegionRef{ID: out.Region.ID, Label: RegionLabel(out.Region)},
		FrameTimeIncrement: a.product.FrameTimeIncrement.String(),
		OutputFiles:        outputs,
		Preview:            preview,
		Signature:          out.Signature,
	}
	if _, ok := out.Height.Value(); ok {
		record.TargetHeight = out.Height.String()
	}
	switch out.Kind {
	case catalog.KindMap:
		record.MapTimeIncrement = a.product.FrameTimeIncrement.String()
	case catalog.KindVideo:
		record.VideoTimeIncrement = a.product.VideoTimeIncrement.String()
	}
	record.SetRange(out.Range)
	for _, input := range out.Inputs {
		record.InputFiles = append(record.InputFiles, metadata.InputRef{
			ID:           input.ID,
			URI:          input.URI,
			Checksum:     input.Checksum,
			LastModified: input.LastModified,
		})
	}
	return record
}

// RegionLabel returns the configured label, or a title-cased form of the ID.
func RegionLabel(region catalog.Region) string {
	if label := strings.TrimSpace(region.Label); label != "" {
		return label
	}
	return textutil.Title(region.ID)
}
