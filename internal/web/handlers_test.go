package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/My-Advanced-Machine-Learning-Project/urban-risk-lens/internal/config"
	"github.com/My-Advanced-Machine-Learning-Project/urban-risk-lens/internal/geo"
	"github.com/My-Advanced-Machine-Learning-Project/urban-risk-lens/internal/hierarchy"
	"github.com/My-Advanced-Machine-Learning-Project/urban-risk-lens/internal/join"
	"github.com/My-Advanced-Machine-Learning-Project/urban-risk-lens/internal/loader"
)

func testDataset(t *testing.T) *loader.Dataset {
	t.Helper()
	ring := []interface{}{
		[]interface{}{
			[]interface{}{28.9, 40.9},
			[]interface{}{29.1, 40.9},
			[]interface{}{29.1, 41.1},
			[]interface{}{28.9, 40.9},
		},
	}
	features := []geo.Feature{
		{
			Type: "Feature",
			Properties: map[string]interface{}{
				"mah_id": "1001", "il": "İstanbul", "ilce": "Kadıköy",
				"mahalle": "Moda", "risk_score": 0.42,
			},
			Geometry: &geo.Geometry{Type: "Polygon", Coordinates: ring},
		},
		{
			Type: "Feature",
			Properties: map[string]interface{}{
				"mah_id": "1002", "il": "İstanbul", "ilce": "Kadıköy",
				"mahalle": "Caferağa", "risk_score": 0.61,
			},
		},
	}
	index := hierarchy.BuildCityIndex(features)
	bboxes := make(map[string]geo.BBox)
	for _, e := range index.Normalized {
		if e.BBox != nil {
			bboxes[e.ID] = *e.BBox
		}
	}
	return &loader.Dataset{
		Features:    features,
		Diagnostics: join.Diagnostics{Matched: 2, TotalFeatures: 2},
		Index:       index,
		BBoxes:      bboxes,
	}
}

func testServer(t *testing.T) http.Handler {
	t.Helper()
	srv := NewServer(config.ServerConfig{Host: "127.0.0.1", Port: 0}, testDataset(t), zap.NewNop())
	return srv.Router()
}

func get(t *testing.T, handler http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestListCities(t *testing.T) {
	rec := get(t, testServer(t), "/api/cities")
	require.Equal(t, http.StatusOK, rec.Code)

	var cities []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cities))
	require.Len(t, cities, 1)
	assert.Equal(t, "istanbul", cities[0]["key"])
	assert.Equal(t, "İstanbul", cities[0]["name"])
	assert.Equal(t, float64(2), cities[0]["neighborhoods"])
}

func TestGetCity(t *testing.T) {
	handler := testServer(t)

	rec := get(t, handler, "/api/cities/istanbul")
	require.Equal(t, http.StatusOK, rec.Code)

	var city hierarchy.CityInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &city))
	assert.Equal(t, "İstanbul", city.Name)
	require.Contains(t, city.Districts, "kadikoy")
	assert.Len(t, city.Districts["kadikoy"].Neighborhoods, 2)

	rec = get(t, handler, "/api/cities/nowhere")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetNeighborhoodBBox(t *testing.T) {
	handler := testServer(t)

	rec := get(t, handler, "/api/neighborhoods/1001/bbox")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]geo.BBox
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, geo.BBox{28.9, 40.9, 29.1, 41.1}, body["bbox"])

	// 1002 has no geometry, so it has no bbox.
	rec = get(t, handler, "/api/neighborhoods/1002/bbox")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetStats(t *testing.T) {
	rec := get(t, testServer(t), "/api/stats?property=risk_score")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats geo.PropertyStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.Count)
	assert.Equal(t, 0.42, stats.Min)
	assert.Equal(t, 0.61, stats.Max)

	rec = get(t, testServer(t), "/api/stats?property=absent")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetDiagnostics(t *testing.T) {
	rec := get(t, testServer(t), "/api/diagnostics")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	joinDiag, ok := body["join"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(2), joinDiag["matched"])
}
