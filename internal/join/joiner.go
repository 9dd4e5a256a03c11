package join

import (
	"encoding/json"
	"fmt"

	"github.com/My-Advanced-Machine-Learning-Project/urban-risk-lens/internal/geo"
	"github.com/My-Advanced-Machine-Learning-Project/urban-risk-lens/internal/normalize"
)

// Strategy selects how the joiner matches tabular rows to features.
type Strategy int

const (
	// StrategyComposite is the default: identifier lookup across all
	// candidate columns first, folded city::district::name composite key
	// as fallback. Used when identifiers are unreliable across sources.
	StrategyComposite Strategy = iota
	// StrategySingleKey is the legacy mode: one auto-detected or pinned
	// (tabular, geometry) key pair, full-row shallow merge on hit.
	StrategySingleKey
)

func (s Strategy) String() string {
	switch s {
	case StrategySingleKey:
		return "single_key"
	default:
		return "composite"
	}
}

// MarshalJSON renders the strategy name rather than its ordinal.
func (s Strategy) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// ParseStrategy maps a strategy name back to its value. Accepts the
// canonical String() spelling plus the hyphenated form used on command
// lines, so persisted diagnostics round-trip through CLI flags.
func ParseStrategy(name string) (Strategy, error) {
	switch name {
	case "composite":
		return StrategyComposite, nil
	case "single_key", "single-key":
		return StrategySingleKey, nil
	}
	return StrategyComposite, fmt.Errorf("unknown strategy %q", name)
}

// Options tunes a join call. The zero value (and a nil pointer) selects
// the composite strategy with auto-detected keys and no observer.
type Options struct {
	Strategy Strategy

	// TabularKey and GeometryKey pin the join columns for
	// StrategySingleKey. Either side may be pinned on its own; the
	// resolver then only searches the open side.
	TabularKey  string
	GeometryKey string

	Observer Observer
}

// Join merges tabular rows into geometry features and reports diagnostics.
//
// Every input feature appears in the output exactly once, matched or not:
// no data loss is an invariant, not an incidental behavior. Input features
// are never mutated; each output feature owns a fresh properties map.
// Data-quality problems (no usable keys, partial matches) never produce an
// error: the join degrades to a passthrough and callers detect total
// failure via diag.Matched == 0.
func Join(rows []TabularRow, features []geo.Feature, opts *Options) ([]geo.Feature, Diagnostics) {
	if opts == nil {
		opts = &Options{}
	}
	obs := opts.Observer
	if obs == nil {
		obs = nopObserver{}
	}

	var out []geo.Feature
	var diag Diagnostics
	switch opts.Strategy {
	case StrategySingleKey:
		out, diag = joinSingleKey(rows, features, opts, obs)
	default:
		out, diag = joinComposite(rows, features, obs)
	}
	diag.TotalFeatures = len(features)
	obs.JoinCompleted(diag)
	return out, diag
}

// joinSingleKey implements the legacy one-key-pair join: build a lookup of
// normalized tabular values, probe it with the normalized geometry
// property, shallow-merge the whole row on hit (tabular wins collisions).
func joinSingleKey(rows []TabularRow, features []geo.Feature, opts *Options, obs Observer) ([]geo.Feature, Diagnostics) {
	diag := Diagnostics{Strategy: StrategySingleKey}

	tabKey, geoKey := opts.TabularKey, opts.GeometryKey
	if tabKey == "" || geoKey == "" {
		// A pinned side narrows its candidate list to just the pinned key,
		// so resolution only searches the open side.
		tabCandidates := IdentifierAliases
		if tabKey != "" {
			tabCandidates = []string{tabKey}
		}
		geoCandidates := GeometryIdentifierAliases
		if geoKey != "" {
			geoCandidates = []string{geoKey}
		}
		res := resolveCandidates(rows, features, tabCandidates, geoCandidates)
		obs.KeysResolved(res)
		if !res.Usable() {
			// Degenerate join: everything passes through unchanged.
			out := make([]geo.Feature, len(features))
			for i, f := range features {
				out[i] = f.Clone()
				diag.Missing++
			}
			return out, diag
		}
		tabKey, geoKey = res.TabularKey, res.GeometryKey
	}
	diag.TabularKey = tabKey
	diag.GeometryKey = geoKey

	lookup := make(map[string]TabularRow, len(rows))
	for _, row := range rows {
		if k := normalize.NormalizeKey(row[tabKey]); k != "" {
			lookup[k] = row
		}
	}

	out := make([]geo.Feature, len(features))
	for i, f := range features {
		joined := f.Clone()
		key := normalize.NormalizeKey(f.Properties[geoKey])
		if row, ok := lookup[key]; key != "" && ok {
			mergeRow(joined.Properties, row)
			diag.Matched++
		} else {
			diag.recordMiss(key)
		}
		out[i] = joined
	}
	return out, diag
}

// joinComposite implements the robust mode: an identifier lookup spanning
// all candidate columns and a folded composite-name lookup are built
// simultaneously; per feature the identifier path is tried first. On a hit
// the matched row is merged and the fixed numeric payload fields are
// guaranteed present via their alias chains; a miss injects nothing.
func joinComposite(rows []TabularRow, features []geo.Feature, obs Observer) ([]geo.Feature, Diagnostics) {
	diag := Diagnostics{Strategy: StrategyComposite}

	// Identifier lookup across every candidate column, last writer wins.
	idLookup := make(map[string]TabularRow, len(rows))
	nameLookup := make(map[string]TabularRow, len(rows))
	for _, row := range rows {
		for _, alias := range IdentifierAliases {
			if k := normalize.NormalizeKey(row[alias]); k != "" {
				idLookup[k] = row
			}
		}
		if ck, ok := compositeFrom(row); ok {
			nameLookup[ck] = row
		}
	}

	out := make([]geo.Feature, len(features))
	for i, f := range features {
		joined := f.Clone()
		row, probed := lookupFeature(f, idLookup, nameLookup)
		if row != nil {
			mergeRow(joined.Properties, row)
			applyNumericFields(joined.Properties, row)
			diag.Matched++
		} else {
			diag.recordMiss(probed)
		}
		out[i] = joined
	}
	return out, diag
}

// lookupFeature resolves a feature to its tabular row, identifier path
// first, composite-name fallback second. The second return is the last
// key probed, for miss sampling.
func lookupFeature(f geo.Feature, idLookup, nameLookup map[string]TabularRow) (TabularRow, string) {
	probed := ""
	for _, alias := range GeometryIdentifierAliases {
		k := normalize.NormalizeKey(f.Properties[alias])
		if k == "" {
			continue
		}
		probed = k
		if row, ok := idLookup[k]; ok {
			return row, k
		}
	}
	if ck, ok := compositeFrom(f.Properties); ok {
		probed = ck
		if row, found := nameLookup[ck]; found {
			return row, ck
		}
	}
	return nil, probed
}

// mergeRow unions row fields into props; tabular fields win collisions.
func mergeRow(props map[string]interface{}, row TabularRow) {
	for k, v := range row {
		props[k] = v
	}
}

// applyNumericFields guarantees the fixed numeric payload set is present
// under canonical names, resolving each field through its alias chain
// against the matched row and falling back to the field default.
func applyNumericFields(props map[string]interface{}, row TabularRow) {
	for _, field := range NumericFields {
		props[field.Name] = FirstAliasFloat(row, field.Aliases, field.Default)
	}
}
