package join

import (
	"github.com/My-Advanced-Machine-Learning-Project/urban-risk-lens/internal/geo"
	"github.com/My-Advanced-Machine-Learning-Project/urban-risk-lens/internal/normalize"
)

// resolverSampleSize bounds how many geometry features are scored per key
// pair. Key selection only needs the best-performing pair, not full
// diagnostics, so scoring the whole set buys nothing.
const resolverSampleSize = 300

// KeyResolution names the column pairing the resolver judged best, with
// the sampled match count that won.
type KeyResolution struct {
	TabularKey  string `json:"tabular_key"`
	GeometryKey string `json:"geometry_key"`
	MatchCount  int    `json:"match_count"`
}

// Usable reports whether the resolution found any matching pair at all.
func (r KeyResolution) Usable() bool {
	return r.TabularKey != "" && r.GeometryKey != "" && r.MatchCount > 0
}

// ResolveJoinKeys discovers which (tabular column, geometry property)
// pairing yields the most identifier matches, trying the fixed candidate
// lists against a bounded sample of features. Ties break by iteration
// order: tabular candidates outer, geometry candidates inner, first pair
// to reach the maximum wins. Deterministic but arbitrary. When no pair
// scores above zero the zero KeyResolution is returned.
func ResolveJoinKeys(rows []TabularRow, features []geo.Feature) KeyResolution {
	return resolveCandidates(rows, features, IdentifierAliases, GeometryIdentifierAliases)
}

// resolveCandidates scores every (tabular, geometry) pair from the given
// candidate lists. Callers that pinned one side pass a single-element
// list for it, so the pinned key survives resolution of the other side.
func resolveCandidates(rows []TabularRow, features []geo.Feature, tabCandidates, geoCandidates []string) KeyResolution {
	sample := features
	if len(sample) > resolverSampleSize {
		sample = sample[:resolverSampleSize]
	}

	// Pre-build the normalized non-empty value set per tabular candidate
	// across ALL rows; the sample bound applies to the geometry side only.
	valueSets := make(map[string]map[string]struct{}, len(tabCandidates))
	for _, tabKey := range tabCandidates {
		set := make(map[string]struct{})
		for _, row := range rows {
			if v := normalize.NormalizeKey(row[tabKey]); v != "" {
				set[v] = struct{}{}
			}
		}
		valueSets[tabKey] = set
	}

	var best KeyResolution
	for _, tabKey := range tabCandidates {
		set := valueSets[tabKey]
		if len(set) == 0 {
			continue
		}
		for _, geoKey := range geoCandidates {
			count := 0
			for _, f := range sample {
				v := normalize.NormalizeKey(f.Properties[geoKey])
				if v == "" {
					continue
				}
				if _, ok := set[v]; ok {
					count++
				}
			}
			if count > best.MatchCount {
				best = KeyResolution{TabularKey: tabKey, GeometryKey: geoKey, MatchCount: count}
			}
		}
	}
	return best
}
