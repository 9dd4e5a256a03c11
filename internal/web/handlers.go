package web

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/gorilla/mux"

	"github.com/My-Advanced-Machine-Learning-Project/urban-risk-lens/internal/geo"
	"github.com/My-Advanced-Machine-Learning-Project/urban-risk-lens/internal/loader"
)

// Handlers serves the read-only reconciliation API over one loaded
// dataset snapshot.
type Handlers struct {
	Dataset *loader.Dataset
}

type citySummary struct {
	Key           string `json:"key"`
	Name          string `json:"name"`
	Districts     int    `json:"districts"`
	Neighborhoods int    `json:"neighborhoods"`
}

// ListCities returns a summary of every city in the index, sorted by key.
func (h *Handlers) ListCities(w http.ResponseWriter, r *http.Request) {
	cities := make([]citySummary, 0, len(h.Dataset.Index.Cities))
	for _, city := range h.Dataset.Index.Cities {
		n := 0
		for _, d := range city.Districts {
			n += len(d.Neighborhoods)
		}
		cities = append(cities, citySummary{
			Key:           city.Key,
			Name:          city.Name,
			Districts:     len(city.Districts),
			Neighborhoods: n,
		})
	}
	sort.Slice(cities, func(i, j int) bool { return cities[i].Key < cities[j].Key })
	writeJSON(w, http.StatusOK, cities)
}

// GetCity returns the full district/neighborhood tree for one city key.
func (h *Handlers) GetCity(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	city, ok := h.Dataset.Index.Cities[key]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown city key")
		return
	}
	writeJSON(w, http.StatusOK, city)
}

// GetNeighborhoodBBox returns the bounding box for one entity id, or 404
// when the entity is unknown or could not be placed on a map.
func (h *Handlers) GetNeighborhoodBBox(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	bbox, ok := h.Dataset.BBoxes[id]
	if !ok {
		writeError(w, http.StatusNotFound, "no bbox for entity")
		return
	}
	writeJSON(w, http.StatusOK, map[string]geo.BBox{"bbox": bbox})
}

// GetNeighborhood returns one normalized entity by id.
func (h *Handlers) GetNeighborhood(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	e := h.Dataset.Index.EntityByID(id)
	if e == nil {
		writeError(w, http.StatusNotFound, "unknown entity id")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// GetStats returns summary statistics for a numeric property across the
// joined feature set. Defaults to risk_score.
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	property := r.URL.Query().Get("property")
	if property == "" {
		property = "risk_score"
	}
	stats := geo.PropertyStatistics(h.Dataset.Features, property)
	if stats == nil {
		writeError(w, http.StatusNotFound, "no numeric values for property")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// GetDiagnostics returns the join diagnostics of the loaded dataset,
// including synthesized-id collisions found while indexing.
func (h *Handlers) GetDiagnostics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"join":          h.Dataset.Diagnostics,
		"id_collisions": h.Dataset.Index.IDCollisions,
		"source":        h.Dataset.SourceInfo,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
