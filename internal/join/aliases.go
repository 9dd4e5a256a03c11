// Package join reconciles tabular per-neighborhood records with GeoJSON
// features. Neither source commits to a stable join key or spelling
// convention, so the joiner discovers candidate identifier pairings and
// falls back to folded composite name keys.
package join

import (
	"strconv"
	"strings"

	"github.com/My-Advanced-Machine-Learning-Project/urban-risk-lens/internal/normalize"
)

// TabularRow is one parsed row of the statistics export: a flat mapping of
// column name to string-or-number. No schema is enforced.
type TabularRow map[string]interface{}

// IdentifierAliases lists the column names historically used for the
// neighborhood identifier on the tabular side, in resolution order.
var IdentifierAliases = []string{"fid", "mah_id", "mahalle_id", "uavt", "geo_id", "id"}

// GeometryIdentifierAliases is the subset of identifier aliases that show
// up as GeoJSON feature properties.
var GeometryIdentifierAliases = []string{"fid", "mah_id", "mahalle_id", "uavt", "id"}

// Logical field names used across the alias tables.
const (
	FieldCity          = "city"
	FieldDistrict      = "district"
	FieldName          = "name"
	FieldRiskScore     = "risk_score"
	FieldRiskClass     = "risk_class"
	FieldPopulation    = "population"
	FieldBuildingCount = "building_count"
	FieldVS30          = "vs30"
)

// FieldAliases is the declarative alias table: logical field → ordered
// list of acceptable column/property names. First non-empty, non-nil
// value wins; empty string and nil are both "absent".
var FieldAliases = map[string][]string{
	FieldCity:          {"city", "il", "province", "sehir"},
	FieldDistrict:      {"district", "ilce", "ilce_adi"},
	FieldName:          {"name", "mahalle", "mahalle_adi", "adi", "Name", "clean_name"},
	FieldRiskScore:     {"risk_score", "bilesik_risk_skoru", "risk"},
	FieldRiskClass:     {"risk_class", "risk_label_5li", "risk_sinifi"},
	FieldPopulation:    {"population", "nufus", "toplam_nufus"},
	FieldBuildingCount: {"building_count", "bina_sayisi", "toplam_bina"},
	FieldVS30:          {"vs30", "vs30_combined", "vs30_mean"},
}

// NumericField describes one of the fixed numeric payload fields copied
// from a matched row into feature properties, with its alias fallback
// chain and the default injected when the matched row carries no alias.
type NumericField struct {
	Name    string
	Aliases []string
	Default float64
}

// NumericFields is the fixed payload set the composite-strategy join
// copies on every hit: the ML risk outputs plus the demographic counts.
var NumericFields = []NumericField{
	{Name: FieldRiskScore, Aliases: FieldAliases[FieldRiskScore], Default: 0},
	{Name: FieldRiskClass, Aliases: FieldAliases[FieldRiskClass], Default: 0},
	{Name: FieldPopulation, Aliases: FieldAliases[FieldPopulation], Default: 0},
	{Name: FieldBuildingCount, Aliases: FieldAliases[FieldBuildingCount], Default: 0},
	{Name: FieldVS30, Aliases: FieldAliases[FieldVS30], Default: 0},
}

// FirstAlias returns the first non-absent value among the aliases.
func FirstAlias(props map[string]interface{}, aliases []string) (interface{}, bool) {
	for _, alias := range aliases {
		v, ok := props[alias]
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr && s == "" {
			continue
		}
		return v, true
	}
	return nil, false
}

// FirstAliasString resolves an alias chain to a trimmed string, or "".
func FirstAliasString(props map[string]interface{}, aliases []string) string {
	v, ok := FirstAlias(props, aliases)
	if !ok {
		return ""
	}
	return normalize.NormalizeKey(v)
}

// FirstAliasFloat resolves an alias chain to a float64.
func FirstAliasFloat(props map[string]interface{}, aliases []string, def float64) float64 {
	v, ok := FirstAlias(props, aliases)
	if !ok {
		return def
	}
	f, ok := asFloat(v)
	if !ok {
		return def
	}
	return f
}

// asFloat accepts the scalar shapes rows actually carry: json numbers,
// ints, and numeric strings from exports that quote everything.
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
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// compositeFrom builds the folded composite key from whatever city,
// district and name aliases a property map carries. Requires at least a
// name component so sparse maps do not all collide on "::::".
func compositeFrom(props map[string]interface{}) (string, bool) {
	name := rawAliasString(props, FieldAliases[FieldName])
	if name == "" {
		return "", false
	}
	city := rawAliasString(props, FieldAliases[FieldCity])
	district := rawAliasString(props, FieldAliases[FieldDistrict])
	return normalize.CompositeKey(city, district, name), true
}

// rawAliasString is FirstAliasString without identifier normalization;
// name components go through FoldName instead.
func rawAliasString(props map[string]interface{}, aliases []string) string {
	v, ok := FirstAlias(props, aliases)
	if !ok {
		return ""
	}
	if s, isStr := v.(string); isStr {
		return s
	}
	return normalize.NormalizeKey(v)
}
