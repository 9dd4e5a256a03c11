package loader

import (
	"fmt"

	"github.com/My-Advanced-Machine-Learning-Project/urban-risk-lens/internal/geo"
	"github.com/My-Advanced-Machine-Learning-Project/urban-risk-lens/internal/hierarchy"
	"github.com/My-Advanced-Machine-Learning-Project/urban-risk-lens/internal/join"
)

// Dataset is one fully-reconciled load: the joined features, the join
// diagnostics, the city index and the bbox cache. It is rebuilt wholesale
// on every load; nothing is incrementally patched.
type Dataset struct {
	Features    []geo.Feature
	Diagnostics join.Diagnostics
	Index       *hierarchy.CityIndex
	BBoxes      map[string]geo.BBox
	SourceInfo  FileInfo
}

// PipelineOptions configures a full load.
type PipelineOptions struct {
	TabularPath string
	GeoJSONPath string
	Join        *join.Options
}

// Load runs the full reconciliation pipeline: read both sources, join,
// build the hierarchy and the bbox cache. File and parse errors are
// returned; join-quality problems are not. Inspect
// Dataset.Diagnostics.Matched for those.
func Load(opts PipelineOptions) (*Dataset, error) {
	rows, err := LoadTabular(opts.TabularPath)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	fc, err := LoadFeatureCollection(opts.GeoJSONPath)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	features, diag := join.Join(rows, fc.Features, opts.Join)
	index := hierarchy.BuildCityIndex(features)

	bboxes := make(map[string]geo.BBox, len(index.Normalized))
	for _, e := range index.Normalized {
		if e.ID == "" || e.BBox == nil {
			continue
		}
		bboxes[e.ID] = *e.BBox
	}

	return &Dataset{
		Features:    features,
		Diagnostics: diag,
		Index:       index,
		BBoxes:      bboxes,
		SourceInfo:  ExtractFileInfo(opts.GeoJSONPath),
	}, nil
}
