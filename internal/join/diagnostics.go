package join

// sampleMissingCap bounds the unmatched-key sample so diagnostics stay
// small even for very large miss counts.
const sampleMissingCap = 10

// Diagnostics is the observational record of one join call: which keys
// were used, how many features matched or missed, and a bounded sample of
// missing keys for data-quality debugging. Matched+Missing always equals
// TotalFeatures.
type Diagnostics struct {
	Strategy          Strategy `json:"strategy"`
	TabularKey        string   `json:"tabular_key,omitempty"`
	GeometryKey       string   `json:"geometry_key,omitempty"`
	Matched           int      `json:"matched"`
	Missing           int      `json:"missing"`
	TotalFeatures     int      `json:"total_features"`
	SampleMissingKeys []string `json:"sample_missing_keys,omitempty"`
}

func (d *Diagnostics) recordMiss(key string) {
	d.Missing++
	if key != "" && len(d.SampleMissingKeys) < sampleMissingCap {
		d.SampleMissingKeys = append(d.SampleMissingKeys, key)
	}
}

// Observer receives progress notifications from a join call. Implementations
// must not retain or mutate the values they receive. The joiner itself never
// logs; callers opt into observation by wiring an observer.
type Observer interface {
	KeysResolved(res KeyResolution)
	JoinCompleted(diag Diagnostics)
}

type nopObserver struct{}

func (nopObserver) KeysResolved(KeyResolution) {}
func (nopObserver) JoinCompleted(Diagnostics)  {}
