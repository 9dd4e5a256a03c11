package join

import (
	"testing"

	"github.com/My-Advanced-Machine-Learning-Project/urban-risk-lens/internal/geo"
)

func TestJoinSingleKeyAcrossFloatSuffix(t *testing.T) {
	rows := []TabularRow{
		{"mah_id": "1001", "risk_score": 0.42, "toplam_nufus": float64(5000)},
	}
	features := []geo.Feature{
		feature(map[string]interface{}{"fid": "1001.0"}),
	}

	out, diag := Join(rows, features, &Options{Strategy: StrategySingleKey})

	if len(out) != len(features) {
		t.Fatalf("feature count changed: got %d, want %d", len(out), len(features))
	}
	if diag.Matched != 1 || diag.Missing != 0 {
		t.Errorf("diagnostics = %+v, want 1 matched 0 missing", diag)
	}
	if got := out[0].Properties["risk_score"]; got != 0.42 {
		t.Errorf("risk_score = %v, want 0.42", got)
	}
	if got := out[0].Properties["toplam_nufus"]; got != float64(5000) {
		t.Errorf("toplam_nufus = %v, want 5000", got)
	}
}

func TestJoinCompositeNameFallback(t *testing.T) {
	// No shared identifier; accent and case differ between the sources.
	rows := []TabularRow{
		{"city": "İstanbul", "district": "Kadıköy", "name": "Moda", "risk_score": 0.2},
	}
	features := []geo.Feature{
		feature(map[string]interface{}{"city": "istanbul", "district": "kadikoy", "name": "moda"}),
	}

	out, diag := Join(rows, features, nil)

	if diag.Matched != 1 {
		t.Fatalf("composite fallback did not match: %+v", diag)
	}
	if got := out[0].Properties["risk_score"]; got != 0.2 {
		t.Errorf("risk_score = %v, want 0.2", got)
	}
}

func TestJoinCompositeIdentifierFirst(t *testing.T) {
	// Identifier path must win over the name path when both could match.
	rows := []TabularRow{
		{"mah_id": "1", "name": "Moda", "risk_score": 0.9},
		{"mah_id": "2", "name": "Other", "risk_score": 0.1},
	}
	features := []geo.Feature{
		feature(map[string]interface{}{"mah_id": "2.0", "name": "Moda"}),
	}

	out, diag := Join(rows, features, nil)
	if diag.Matched != 1 {
		t.Fatalf("expected identifier match, got %+v", diag)
	}
	if got := out[0].Properties["risk_score"]; got != 0.1 {
		t.Errorf("identifier path should have matched row 2, risk_score = %v", got)
	}
}

func TestJoinCompositeInjectsNumericDefaults(t *testing.T) {
	rows := []TabularRow{
		{"mah_id": "1", "bilesik_risk_skoru": 0.7},
	}
	features := []geo.Feature{
		feature(map[string]interface{}{"mah_id": "1"}),
		feature(map[string]interface{}{"mah_id": "nope"}),
	}

	out, _ := Join(rows, features, nil)

	// Matched feature: alias chain resolves the Turkish column, the
	// remaining payload fields get their defaults.
	if got := out[0].Properties["risk_score"]; got != 0.7 {
		t.Errorf("risk_score = %v, want 0.7 via bilesik_risk_skoru alias", got)
	}
	if got := out[0].Properties["population"]; got != float64(0) {
		t.Errorf("population default = %v, want 0", got)
	}

	// Unmatched feature: nothing injected.
	if _, ok := out[1].Properties["risk_score"]; ok {
		t.Errorf("unmatched feature must not receive synthetic defaults")
	}
}

func TestJoinCompositeKeepsStringTypedNumbers(t *testing.T) {
	// Exports that quote every cell deliver numbers as strings. A matched
	// row's string-typed payload value must survive the canonical-field
	// pass instead of being replaced by the default.
	rows := []TabularRow{
		{"mah_id": "1", "risk_score": "0.42", "toplam_nufus": "5000"},
	}
	features := []geo.Feature{
		feature(map[string]interface{}{"mah_id": "1"}),
	}

	out, diag := Join(rows, features, nil)
	if diag.Matched != 1 {
		t.Fatalf("expected a match, got %+v", diag)
	}
	if got := out[0].Properties["risk_score"]; got != 0.42 {
		t.Errorf("risk_score = %v (%T), want 0.42", got, got)
	}
	if got := out[0].Properties["population"]; got != float64(5000) {
		t.Errorf("population = %v, want 5000 via toplam_nufus alias", got)
	}
}

func TestJoinSingleKeyHonorsPinnedHalf(t *testing.T) {
	// Pinning one side must constrain resolution of the other, not be
	// thrown away. "uavt" would never win auto-detection here because
	// "mah_id" matches more features.
	rows := []TabularRow{
		{"mah_id": "1", "uavt": "77", "risk_score": 0.3},
		{"mah_id": "2", "risk_score": 0.6},
	}
	features := []geo.Feature{
		feature(map[string]interface{}{"mah_id": "1", "uavt": "77"}),
		feature(map[string]interface{}{"mah_id": "2"}),
	}

	out, diag := Join(rows, features, &Options{Strategy: StrategySingleKey, GeometryKey: "uavt"})

	if diag.GeometryKey != "uavt" {
		t.Fatalf("pinned geometry key discarded, diagnostics = %+v", diag)
	}
	if diag.TabularKey != "uavt" {
		t.Errorf("resolver should pick the tabular column matching the pinned side, got %q", diag.TabularKey)
	}
	if diag.Matched != 1 {
		t.Errorf("matched = %d, want 1 (only one feature carries uavt)", diag.Matched)
	}
	if got := out[0].Properties["risk_score"]; got != 0.3 {
		t.Errorf("risk_score = %v, want 0.3", got)
	}
}

func TestParseStrategyRoundTrip(t *testing.T) {
	for _, strategy := range []Strategy{StrategyComposite, StrategySingleKey} {
		parsed, err := ParseStrategy(strategy.String())
		if err != nil {
			t.Errorf("ParseStrategy(%q) error: %v", strategy.String(), err)
		}
		if parsed != strategy {
			t.Errorf("ParseStrategy(%q) = %v, want %v", strategy.String(), parsed, strategy)
		}
	}

	if parsed, err := ParseStrategy("single-key"); err != nil || parsed != StrategySingleKey {
		t.Errorf("hyphenated spelling: got %v, %v", parsed, err)
	}
	if _, err := ParseStrategy("fuzzy"); err == nil {
		t.Errorf("unknown strategy name must error")
	}
}

func TestJoinNoFeatureLoss(t *testing.T) {
	rows := []TabularRow{{"mah_id": "1", "risk_score": 0.5}}
	features := []geo.Feature{
		feature(map[string]interface{}{"mah_id": "1"}),
		feature(map[string]interface{}{"mah_id": "2"}),
		feature(map[string]interface{}{}),
	}

	for _, strategy := range []Strategy{StrategyComposite, StrategySingleKey} {
		out, diag := Join(rows, features, &Options{Strategy: strategy})
		if len(out) != len(features) {
			t.Errorf("strategy %v lost features: got %d, want %d", strategy, len(out), len(features))
		}
		if diag.Matched+diag.Missing != diag.TotalFeatures {
			t.Errorf("strategy %v diagnostics inconsistent: %+v", strategy, diag)
		}
		if diag.TotalFeatures != len(features) {
			t.Errorf("strategy %v TotalFeatures = %d, want %d", strategy, diag.TotalFeatures, len(features))
		}
	}
}

func TestJoinUnresolvableKeysDegradesToPassthrough(t *testing.T) {
	rows := []TabularRow{{"unrelated": "x"}}
	features := []geo.Feature{
		feature(map[string]interface{}{"a": "1"}),
		feature(map[string]interface{}{"b": "2"}),
	}

	out, diag := Join(rows, features, &Options{Strategy: StrategySingleKey})
	if diag.Matched != 0 {
		t.Errorf("expected total join failure, got %+v", diag)
	}
	if len(out) != 2 {
		t.Errorf("passthrough must keep all features, got %d", len(out))
	}
	if got := out[0].Properties["a"]; got != "1" {
		t.Errorf("passthrough feature changed: %v", out[0].Properties)
	}
}

func TestJoinDoesNotMutateInput(t *testing.T) {
	rows := []TabularRow{{"mah_id": "1", "risk_score": 0.5}}
	features := []geo.Feature{
		feature(map[string]interface{}{"mah_id": "1", "name": "Moda"}),
	}

	out, _ := Join(rows, features, nil)

	if _, ok := features[0].Properties["risk_score"]; ok {
		t.Errorf("input feature was mutated")
	}
	out[0].Properties["scratch"] = true
	if _, ok := features[0].Properties["scratch"]; ok {
		t.Errorf("output properties alias the input map")
	}
}

func TestJoinIdentifierPassCoversSingleKeyMatches(t *testing.T) {
	// The multi-strategy identifier pass spans every candidate column, so
	// it can never match fewer features than a single-key join using the
	// auto-detected best pair.
	rows := []TabularRow{
		{"mah_id": "1", "risk_score": 0.1},
		{"mah_id": "2", "risk_score": 0.2},
		{"uavt": "77", "risk_score": 0.3},
	}
	features := []geo.Feature{
		feature(map[string]interface{}{"mah_id": "1"}),
		feature(map[string]interface{}{"mah_id": "2.0"}),
		feature(map[string]interface{}{"uavt": "77"}),
	}

	_, single := Join(rows, features, &Options{Strategy: StrategySingleKey})
	_, multi := Join(rows, features, nil)

	if multi.Matched < single.Matched {
		t.Errorf("multi-strategy matched %d < single-key %d", multi.Matched, single.Matched)
	}
	if multi.Matched != 3 {
		t.Errorf("multi-strategy should match all candidate columns, got %d", multi.Matched)
	}
}

func TestJoinMissSampleBounded(t *testing.T) {
	rows := []TabularRow{{"mah_id": "match"}}
	var features []geo.Feature
	features = append(features, feature(map[string]interface{}{"mah_id": "match"}))
	for i := 0; i < 30; i++ {
		features = append(features, feature(map[string]interface{}{"mah_id": float64(i)}))
	}

	_, diag := Join(rows, features, nil)
	if diag.Missing != 30 {
		t.Errorf("Missing = %d, want 30", diag.Missing)
	}
	if len(diag.SampleMissingKeys) != sampleMissingCap {
		t.Errorf("sample size = %d, want %d", len(diag.SampleMissingKeys), sampleMissingCap)
	}
}

type recordingObserver struct {
	resolutions []KeyResolution
	completed   []Diagnostics
}

func (r *recordingObserver) KeysResolved(res KeyResolution) { r.resolutions = append(r.resolutions, res) }
func (r *recordingObserver) JoinCompleted(d Diagnostics)    { r.completed = append(r.completed, d) }

func TestJoinNotifiesObserver(t *testing.T) {
	rows := []TabularRow{{"mah_id": "1"}}
	features := []geo.Feature{feature(map[string]interface{}{"mah_id": "1"})}

	obs := &recordingObserver{}
	_, _ = Join(rows, features, &Options{Strategy: StrategySingleKey, Observer: obs})

	if len(obs.resolutions) != 1 {
		t.Errorf("expected one key resolution event, got %d", len(obs.resolutions))
	}
	if len(obs.completed) != 1 {
		t.Fatalf("expected one completion event, got %d", len(obs.completed))
	}
	if obs.completed[0].Matched != 1 {
		t.Errorf("completion diagnostics = %+v", obs.completed[0])
	}
}
