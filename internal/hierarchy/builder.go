// Package hierarchy flattens joined features into normalized neighborhood
// entities and groups them into the city → district → neighborhood index
// consumed by navigation and selection code.
package hierarchy

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/My-Advanced-Machine-Learning-Project/urban-risk-lens/internal/geo"
	"github.com/My-Advanced-Machine-Learning-Project/urban-risk-lens/internal/join"
	"github.com/My-Advanced-Machine-Learning-Project/urban-risk-lens/internal/normalize"
)

// Entity is the flattened per-neighborhood view used for indexing. The
// *Key fields are folded comparison keys, used only for grouping and
// sorting, never shown to users.
type Entity struct {
	ID            string    `json:"id"`
	City          string    `json:"city"`
	CityKey       string    `json:"city_key"`
	District      string    `json:"district"`
	DistrictKey   string    `json:"district_key"`
	Name          string    `json:"name"`
	NameKey       string    `json:"name_key"`
	RiskScore     float64   `json:"risk_score"`
	RiskClass     float64   `json:"risk_class"`
	Population    float64   `json:"population"`
	BuildingCount float64   `json:"building_count"`
	VS30          float64   `json:"vs30"`
	BBox          *geo.BBox `json:"bbox,omitempty"`

	// Feature references the joined input feature; not serialized.
	Feature *geo.Feature `json:"-"`
}

// DistrictInfo is one district node: its display name, folded key and the
// neighborhoods it owns, sorted by Turkish-locale numeric-aware order.
type DistrictInfo struct {
	Name          string    `json:"name"`
	Key           string    `json:"key"`
	Neighborhoods []*Entity `json:"neighborhoods"`
}

// CityInfo is one city node; Districts is keyed by folded district key.
type CityInfo struct {
	Name      string                   `json:"name"`
	Key       string                   `json:"key"`
	Districts map[string]*DistrictInfo `json:"districts"`
}

// CityIndex is the full build output. Every normalized entity lands in
// exactly one (city, district) bucket. IDCollisions lists synthesized ids
// that occurred more than once; collisions are reported, not repaired,
// because a collision means two neighborhoods fold to an identical
// city/district/name tuple and only the caller can supply a true identifier.
type CityIndex struct {
	Normalized   []*Entity            `json:"normalized"`
	Cities       map[string]*CityInfo `json:"cities"`
	IDCollisions []string             `json:"id_collisions,omitempty"`
}

// BuildCityIndex normalizes every feature and groups the results into the
// three-level hierarchy. The builder is agnostic to join outcome: sparse,
// unmatched features index the same way as enriched ones. Top-level
// grouping is insertion-ordered (map-keyed); neighborhood lists are
// re-sorted after all insertions with a Turkish-locale comparator that
// also orders embedded numbers numerically, so "Mahalle 2" precedes
// "Mahalle 10".
func BuildCityIndex(features []geo.Feature) *CityIndex {
	idx := &CityIndex{
		Normalized: make([]*Entity, 0, len(features)),
		Cities:     make(map[string]*CityInfo),
	}

	idSeen := make(map[string]int, len(features))
	for i := range features {
		e := normalizeFeature(&features[i])
		idSeen[e.ID]++
		idx.Normalized = append(idx.Normalized, e)

		city, ok := idx.Cities[e.CityKey]
		if !ok {
			city = &CityInfo{Name: e.City, Key: e.CityKey, Districts: make(map[string]*DistrictInfo)}
			idx.Cities[e.CityKey] = city
		}
		district, ok := city.Districts[e.DistrictKey]
		if !ok {
			district = &DistrictInfo{Name: e.District, Key: e.DistrictKey}
			city.Districts[e.DistrictKey] = district
		}
		district.Neighborhoods = append(district.Neighborhoods, e)
	}

	for id, n := range idSeen {
		if n > 1 {
			idx.IDCollisions = append(idx.IDCollisions, id)
		}
	}
	sort.Strings(idx.IDCollisions)

	cmp := collate.New(language.Turkish, collate.Numeric)
	for _, city := range idx.Cities {
		for _, district := range city.Districts {
			ns := district.Neighborhoods
			sort.SliceStable(ns, func(i, j int) bool {
				return cmp.CompareString(ns[i].Name, ns[j].Name) < 0
			})
		}
	}
	return idx
}

// normalizeFeature derives an Entity through the declarative alias table:
// first non-empty alias wins per logical field, "" and nil treated alike
// as absent. When every identifier alias is absent the id is synthesized
// from the three folded key components, a last resort for display and
// grouping, not a stable long-term key.
func normalizeFeature(f *geo.Feature) *Entity {
	props := f.Properties
	city := stringAlias(props, join.FieldAliases[join.FieldCity])
	district := stringAlias(props, join.FieldAliases[join.FieldDistrict])
	name := stringAlias(props, join.FieldAliases[join.FieldName])

	e := &Entity{
		City:          city,
		CityKey:       normalize.FoldName(city),
		District:      district,
		DistrictKey:   normalize.FoldName(district),
		Name:          name,
		NameKey:       normalize.FoldName(name),
		RiskScore:     join.FirstAliasFloat(props, join.FieldAliases[join.FieldRiskScore], 0),
		RiskClass:     join.FirstAliasFloat(props, join.FieldAliases[join.FieldRiskClass], 0),
		Population:    join.FirstAliasFloat(props, join.FieldAliases[join.FieldPopulation], 0),
		BuildingCount: join.FirstAliasFloat(props, join.FieldAliases[join.FieldBuildingCount], 0),
		VS30:          join.FirstAliasFloat(props, join.FieldAliases[join.FieldVS30], 0),
		BBox:          geo.CalculateBBox(*f),
		Feature:       f,
	}

	e.ID = join.FirstAliasString(props, join.IdentifierAliases)
	if e.ID == "" {
		e.ID = e.CityKey + "-" + e.DistrictKey + "-" + e.NameKey
	}
	return e
}

// stringAlias resolves a display-name alias chain without identifier
// normalization; numeric values still render as their decimal string.
func stringAlias(props map[string]interface{}, aliases []string) string {
	v, ok := join.FirstAlias(props, aliases)
	if !ok {
		return ""
	}
	if s, isStr := v.(string); isStr {
		return s
	}
	return normalize.NormalizeKey(v)
}

// NeighborhoodCount sums neighborhoods across all districts of all cities.
func (idx *CityIndex) NeighborhoodCount() int {
	n := 0
	for _, city := range idx.Cities {
		for _, district := range city.Districts {
			n += len(district.Neighborhoods)
		}
	}
	return n
}

// EntityByID returns the first normalized entity with the given id, or nil.
func (idx *CityIndex) EntityByID(id string) *Entity {
	for _, e := range idx.Normalized {
		if e.ID == id {
			return e
		}
	}
	return nil
}
