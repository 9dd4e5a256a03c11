// Package loader is the data-loading collaborator around the
// reconciliation core: it reads tabular CSV exports and GeoJSON feature
// collections from disk and hands fully-resolved inputs to the join. The
// core itself never performs I/O.
package loader

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/My-Advanced-Machine-Learning-Project/urban-risk-lens/internal/geo"
	"github.com/My-Advanced-Machine-Learning-Project/urban-risk-lens/internal/join"
)

// LoadTabular parses a CSV file into rows keyed by header column names.
// Values that parse as numbers become float64, everything else stays a
// string; empty cells stay empty strings. Rows shorter than the header are
// padded with empty values rather than rejected.
func LoadTabular(path string) ([]join.TabularRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open tabular file %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []join.TabularRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv record: %w", err)
		}
		row := make(join.TabularRow, len(header))
		for i, col := range header {
			if col == "" {
				continue
			}
			var cell string
			if i < len(record) {
				cell = record[i]
			}
			row[col] = typeCell(cell)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// typeCell converts a CSV cell to float64 when it is numeric, mirroring
// how the GeoJSON side decodes property numbers.
func typeCell(cell string) interface{} {
	trimmed := strings.TrimSpace(cell)
	if trimmed == "" {
		return cell
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return f
	}
	return cell
}

// LoadFeatureCollection reads and decodes a GeoJSON FeatureCollection.
func LoadFeatureCollection(path string) (*geo.FeatureCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read geojson file %s: %w", path, err)
	}
	var fc geo.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to decode geojson %s: %w", path, err)
	}
	if fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("unexpected geojson type %q in %s", fc.Type, path)
	}
	for i := range fc.Features {
		if fc.Features[i].Properties == nil {
			fc.Features[i].Properties = map[string]interface{}{}
		}
	}
	return &fc, nil
}

// MergeFeatureCollections concatenates the features of several collections.
func MergeFeatureCollections(collections ...*geo.FeatureCollection) *geo.FeatureCollection {
	merged := &geo.FeatureCollection{Type: "FeatureCollection"}
	for _, fc := range collections {
		if fc == nil {
			continue
		}
		merged.Features = append(merged.Features, fc.Features...)
	}
	return merged
}

// FileInfo carries the metadata encoded in a data file path, e.g.
// "public/data/2025/istanbul_risk_predictions.geojson".
type FileInfo struct {
	City     string `json:"city,omitempty"`
	Year     int    `json:"year,omitempty"`
	DataType string `json:"type"`
	Filename string `json:"filename"`
}

// knownCities are the city tokens that appear in dataset filenames.
var knownCities = []string{"istanbul", "ankara", "izmir"}

// ExtractFileInfo pulls city, year and data type out of a dataset path.
func ExtractFileInfo(path string) FileInfo {
	info := FileInfo{
		DataType: "current",
		Filename: filepath.Base(path),
	}

	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if len(part) == 4 {
			if year, err := strconv.Atoi(part); err == nil {
				info.Year = year
				break
			}
		}
	}

	stem := strings.ToLower(strings.TrimSuffix(info.Filename, filepath.Ext(info.Filename)))
	for _, city := range knownCities {
		if strings.Contains(stem, city) {
			info.City = city
			break
		}
	}
	switch {
	case strings.Contains(stem, "prediction"):
		info.DataType = "prediction"
	case strings.Contains(stem, "final"):
		info.DataType = "final"
	}
	return info
}

// DiscoverGeoJSON walks a directory tree and returns all .geojson paths.
func DiscoverGeoJSON(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(strings.ToLower(d.Name()), ".geojson") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	return paths, nil
}
