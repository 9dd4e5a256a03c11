package geo

// PropertyStats summarizes a numeric property across a feature set.
type PropertyStats struct {
	Property string  `json:"property"`
	Count    int     `json:"count"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Mean     float64 `json:"mean"`
	Sum      float64 `json:"sum"`
}

// PropertyStatistics computes min/max/mean/sum for a numeric property.
// Non-numeric and absent values are ignored. Returns nil when no feature
// carries a numeric value for the property.
func PropertyStatistics(features []Feature, property string) *PropertyStats {
	stats := PropertyStats{
		Property: property,
	}
	first := true
	for _, f := range features {
		v, ok := asFloat(f.Properties[property])
		if !ok {
			continue
		}
		if first {
			stats.Min = v
			stats.Max = v
			first = false
		} else {
			if v < stats.Min {
				stats.Min = v
			}
			if v > stats.Max {
				stats.Max = v
			}
		}
		stats.Sum += v
		stats.Count++
	}
	if stats.Count == 0 {
		return nil
	}
	stats.Mean = stats.Sum / float64(stats.Count)
	return &stats
}
