package hierarchy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/My-Advanced-Machine-Learning-Project/urban-risk-lens/internal/geo"
)

func feature(props map[string]interface{}) geo.Feature {
	return geo.Feature{Type: "Feature", Properties: props}
}

func TestBuildCityIndexGrouping(t *testing.T) {
	features := []geo.Feature{
		feature(map[string]interface{}{"il": "İstanbul", "ilce": "Kadıköy", "mahalle": "Moda", "mah_id": "1", "risk_score": 0.4}),
		feature(map[string]interface{}{"il": "İstanbul", "ilce": "Kadıköy", "mahalle": "Caferağa", "mah_id": "2"}),
		feature(map[string]interface{}{"il": "İstanbul", "ilce": "Üsküdar", "mahalle": "Kuzguncuk", "mah_id": "3"}),
		feature(map[string]interface{}{"il": "Ankara", "ilce": "Çankaya", "mahalle": "Ayrancı", "mah_id": "4"}),
	}

	idx := BuildCityIndex(features)

	require.Len(t, idx.Normalized, 4)
	require.Len(t, idx.Cities, 2)

	ist, ok := idx.Cities["istanbul"]
	require.True(t, ok, "city keyed by folded name")
	assert.Equal(t, "İstanbul", ist.Name, "display name keeps original spelling")
	assert.Len(t, ist.Districts, 2)

	kadikoy, ok := ist.Districts["kadikoy"]
	require.True(t, ok)
	assert.Len(t, kadikoy.Neighborhoods, 2)

	// Completeness: every entity lands in exactly one bucket.
	assert.Equal(t, len(idx.Normalized), idx.NeighborhoodCount())

	// Field extraction via alias table.
	moda := idx.EntityByID("1")
	require.NotNil(t, moda)
	assert.Equal(t, "Moda", moda.Name)
	assert.Equal(t, "moda", moda.NameKey)
	assert.Equal(t, 0.4, moda.RiskScore)
}

func TestBuildCityIndexSortsNumericAware(t *testing.T) {
	features := []geo.Feature{
		feature(map[string]interface{}{"city": "İstanbul", "district": "Kadıköy", "name": "Mahalle 10", "id": "a"}),
		feature(map[string]interface{}{"city": "İstanbul", "district": "Kadıköy", "name": "Mahalle 2", "id": "b"}),
		feature(map[string]interface{}{"city": "İstanbul", "district": "Kadıköy", "name": "Aydın", "id": "c"}),
	}

	idx := BuildCityIndex(features)
	district := idx.Cities["istanbul"].Districts["kadikoy"]
	require.Len(t, district.Neighborhoods, 3)

	var names []string
	for _, n := range district.Neighborhoods {
		names = append(names, n.Name)
	}
	assert.Equal(t, []string{"Aydın", "Mahalle 2", "Mahalle 10"}, names,
		"embedded numbers sort numerically, names sort by Turkish collation")

	// Re-running on the same input yields the same order.
	again := BuildCityIndex(features)
	var namesAgain []string
	for _, n := range again.Cities["istanbul"].Districts["kadikoy"].Neighborhoods {
		namesAgain = append(namesAgain, n.Name)
	}
	assert.Equal(t, names, namesAgain)
}

func TestBuildCityIndexSynthesizesIDs(t *testing.T) {
	features := []geo.Feature{
		feature(map[string]interface{}{"city": "İstanbul", "district": "Kadıköy", "name": "Moda"}),
	}

	idx := BuildCityIndex(features)
	require.Len(t, idx.Normalized, 1)
	assert.Equal(t, "istanbul-kadikoy-moda", idx.Normalized[0].ID)
	assert.Empty(t, idx.IDCollisions)
}

func TestBuildCityIndexReportsIDCollisions(t *testing.T) {
	// Two distinct features folding to the same synthesized id.
	features := []geo.Feature{
		feature(map[string]interface{}{"city": "İstanbul", "district": "Kadıköy", "name": "Moda"}),
		feature(map[string]interface{}{"city": "istanbul", "district": "kadikoy", "name": "MODA"}),
	}

	idx := BuildCityIndex(features)
	assert.Equal(t, []string{"istanbul-kadikoy-moda"}, idx.IDCollisions)
	// Both entities are still indexed; collisions are reported, not dropped.
	assert.Len(t, idx.Normalized, 2)
}

func TestBuildCityIndexSparseFeatures(t *testing.T) {
	// The builder is agnostic to join outcome and indexes unmatched,
	// sparse features too.
	features := []geo.Feature{
		feature(map[string]interface{}{"name": "Moda"}),
		feature(map[string]interface{}{}),
	}

	idx := BuildCityIndex(features)
	require.Len(t, idx.Normalized, 2)
	assert.Equal(t, len(idx.Normalized), idx.NeighborhoodCount())

	moda := idx.Normalized[0]
	assert.Equal(t, "", moda.City)
	assert.Equal(t, "--moda", moda.ID)
	assert.Zero(t, moda.RiskScore)
}

func TestBuildCityIndexEmptyAndNilAliasesFallThrough(t *testing.T) {
	features := []geo.Feature{
		feature(map[string]interface{}{
			"city": "", "il": nil, "province": "İstanbul",
			"district": "Kadıköy", "name": "Moda",
		}),
	}

	idx := BuildCityIndex(features)
	require.Len(t, idx.Normalized, 1)
	assert.Equal(t, "İstanbul", idx.Normalized[0].City,
		"empty string and nil both count as absent")
}
