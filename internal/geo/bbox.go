package geo

import (
	"math"

	"github.com/My-Advanced-Machine-Learning-Project/urban-risk-lens/internal/normalize"
)

// CalculateBBox computes the axis-aligned bounding box of a feature by
// recursively descending its coordinate tree until it reaches [x, y] leaf
// pairs. Arbitrary nesting depth is supported, so Polygon and MultiPolygon
// need no type-specific branches. Returns nil when the feature has no
// geometry or no coordinates; callers must treat nil as "cannot place this
// entity on a map", not as an error.
func CalculateBBox(f Feature) *BBox {
	if f.Geometry == nil || f.Geometry.Coordinates == nil {
		return nil
	}

	acc := bboxAccumulator{
		minX: math.Inf(1), minY: math.Inf(1),
		maxX: math.Inf(-1), maxY: math.Inf(-1),
	}
	acc.walk(f.Geometry.Coordinates)

	if !acc.seen {
		return nil
	}
	return &BBox{acc.minX, acc.minY, acc.maxX, acc.maxY}
}

// BuildBBoxCache derives a per-entity bbox map keyed by the normalized
// value of the idKey property. Features whose normalized id is empty or
// whose bbox comes back nil are skipped, so the cache may be a strict
// subset of the input.
func BuildBBoxCache(features []Feature, idKey string) map[string]BBox {
	cache := make(map[string]BBox, len(features))
	for _, f := range features {
		id := normalize.NormalizeKey(f.Properties[idKey])
		if id == "" {
			continue
		}
		bbox := CalculateBBox(f)
		if bbox == nil {
			continue
		}
		cache[id] = *bbox
	}
	return cache
}

type bboxAccumulator struct {
	minX, minY, maxX, maxY float64
	seen                   bool
}

func (a *bboxAccumulator) add(x, y float64) {
	a.seen = true
	a.minX = math.Min(a.minX, x)
	a.minY = math.Min(a.minY, y)
	a.maxX = math.Max(a.maxX, x)
	a.maxY = math.Max(a.maxY, y)
}

func (a *bboxAccumulator) walk(node interface{}) {
	switch v := node.(type) {
	case []float64:
		if len(v) >= 2 {
			a.add(v[0], v[1])
		}
	case []interface{}:
		if x, y, ok := leafPair(v); ok {
			a.add(x, y)
			return
		}
		for _, child := range v {
			a.walk(child)
		}
	}
}

// leafPair reports whether v is a coordinate position, i.e. its first two
// elements are numbers.
func leafPair(v []interface{}) (float64, float64, bool) {
	if len(v) < 2 {
		return 0, 0, false
	}
	x, okX := asFloat(v[0])
	y, okY := asFloat(v[1])
	if !okX || !okY {
		return 0, 0, false
	}
	return x, y, true
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
