// Package geo holds the GeoJSON-shaped data structures the reconciliation
// core operates on, plus bounding-box derivation over raw coordinate trees.
package geo

// FeatureCollection mirrors the standard GeoJSON top-level container.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature is a single geographic feature. Properties is a flat mapping of
// whatever the producing source put there; the core never assumes a schema
// beyond the alias tables in the join package.
type Feature struct {
	Type       string                 `json:"type,omitempty"`
	Properties map[string]interface{} `json:"properties"`
	Geometry   *Geometry              `json:"geometry,omitempty"`
}

// Geometry keeps Coordinates as a raw nested tree (json decodes it into
// []interface{} levels). The core walks it for bounding boxes but never
// validates topology.
type Geometry struct {
	Type        string      `json:"type,omitempty"`
	Coordinates interface{} `json:"coordinates,omitempty"`
}

// Clone returns a new feature sharing the geometry subtree but owning a
// fresh copy of the properties map, so callers can enrich the returned
// feature without mutating the input.
func (f Feature) Clone() Feature {
	props := make(map[string]interface{}, len(f.Properties))
	for k, v := range f.Properties {
		props[k] = v
	}
	return Feature{
		Type:       f.Type,
		Properties: props,
		Geometry:   f.Geometry,
	}
}

// BBox is an axis-aligned bounding box: [minX, minY, maxX, maxY].
type BBox [4]float64

// MinX returns the western edge of the box.
func (b BBox) MinX() float64 { return b[0] }

// MinY returns the southern edge of the box.
func (b BBox) MinY() float64 { return b[1] }

// MaxX returns the eastern edge of the box.
func (b BBox) MaxX() float64 { return b[2] }

// MaxY returns the northern edge of the box.
func (b BBox) MaxY() float64 { return b[3] }

// Center returns the midpoint of the box as (x, y).
func (b BBox) Center() (float64, float64) {
	return (b[0] + b[2]) / 2, (b[1] + b[3]) / 2
}
