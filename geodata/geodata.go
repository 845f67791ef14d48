// Package geodata loads the static spatial layers served by the API: GeoJSON
// feature collections and CSV point files read from a data directory into an
// in-memory store.
package geodata

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/ani3h/disaster-response-gis/models"
)

// Default CSV coordinate column names.
const (
	DefaultLatColumn = "latitude"
	DefaultLonColumn = "longitude"
)

// Store holds named feature layers. Lookup is case-insensitive and layers
// swap atomically, so the live feed can replace the hazard layer while
// request handlers read it.
type Store struct {
	mu     sync.RWMutex
	layers map[string]models.FeatureSet
	logger *zap.Logger
}

func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		layers: make(map[string]models.FeatureSet),
		logger: logger,
	}
}

// LoadDir loads every .geojson, .json and .csv file in dir as a layer named
// after the file. Files that fail to parse are skipped and logged; the
// returned count is the number of layers loaded.
func (s *Store) LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("geodata: read dir: %w", err)
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		path := filepath.Join(dir, name)
		layer := strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))

		var features models.FeatureSet
		switch strings.ToLower(filepath.Ext(name)) {
		case ".geojson", ".json":
			features, err = LoadGeoJSONFile(path)
		case ".csv":
			features, err = PointsFromCSV(path, DefaultLatColumn, DefaultLonColumn)
		default:
			continue
		}
		if err != nil {
			s.logger.Warn("skipping layer file", zap.String("file", name), zap.Error(err))
			continue
		}

		features, dropped := ValidateGeometry(features)
		if dropped > 0 {
			s.logger.Warn("dropped invalid geometries",
				zap.String("layer", layer), zap.Int("dropped", dropped))
		}
		assignIDs(layer, features)

		s.SetLayer(layer, features)
		s.logger.Info("layer loaded",
			zap.String("layer", layer), zap.Int("features", len(features)))
		loaded++
	}
	return loaded, nil
}

// Layer returns a layer by case-insensitive name.
func (s *Store) Layer(name string) (models.FeatureSet, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fs, ok := s.layers[strings.ToLower(name)]
	return fs, ok
}

// SetLayer replaces a layer wholesale.
func (s *Store) SetLayer(name string, features models.FeatureSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layers[strings.ToLower(name)] = features
}

// LayerNames returns the sorted names of every loaded layer.
func (s *Store) LayerNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.layers))
	for name := range s.layers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadGeoJSONFile parses a GeoJSON FeatureCollection file into a feature
// set. Features without geometry are dropped.
func LoadGeoJSONFile(path string) (models.FeatureSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("geodata: read %s: %w", path, err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("geodata: parse %s: %w", path, err)
	}
	return models.FromGeoJSON(fc), nil
}

// PointsFromCSV reads a CSV file with coordinate columns into point
// features. The remaining columns become properties, with numeric and
// boolean values parsed. Rows with unparseable coordinates are skipped.
func PointsFromCSV(path, latCol, lonCol string) (models.FeatureSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("geodata: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("geodata: parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return models.FeatureSet{}, nil
	}

	header := records[0]
	latIdx, lonIdx := -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case strings.ToLower(latCol):
			latIdx = i
		case strings.ToLower(lonCol):
			lonIdx = i
		}
	}
	if latIdx < 0 || lonIdx < 0 {
		return nil, fmt.Errorf("geodata: %s: missing %q or %q column", path, latCol, lonCol)
	}

	out := models.FeatureSet{}
	for _, row := range records[1:] {
		if len(row) != len(header) {
			continue
		}
		lat, latErr := strconv.ParseFloat(strings.TrimSpace(row[latIdx]), 64)
		lon, lonErr := strconv.ParseFloat(strings.TrimSpace(row[lonIdx]), 64)
		if latErr != nil || lonErr != nil {
			continue
		}

		props := geojson.Properties{}
		for i, col := range header {
			if i == latIdx || i == lonIdx {
				continue
			}
			props[strings.TrimSpace(col)] = parseCSVValue(strings.TrimSpace(row[i]))
		}
		out = append(out, models.Feature{
			Geometry:   orb.Point{lon, lat},
			Properties: props,
		})
	}
	return out, nil
}

func parseCSVValue(v string) interface{} {
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return v
}

// ValidateGeometry drops features with missing or degenerate geometry and
// closes any unclosed polygon rings. Returns the cleaned set and the number
// of features dropped.
func ValidateGeometry(features models.FeatureSet) (models.FeatureSet, int) {
	out := make(models.FeatureSet, 0, len(features))
	dropped := 0
	for _, f := range features {
		fixed, ok := fixGeometry(f.Geometry)
		if !ok {
			dropped++
			continue
		}
		f.Geometry = fixed
		out = append(out, f)
	}
	return out, dropped
}

func fixGeometry(g orb.Geometry) (orb.Geometry, bool) {
	switch v := g.(type) {
	case nil:
		return nil, false
	case orb.Point:
		return v, true
	case orb.MultiPoint:
		return v, len(v) > 0
	case orb.LineString:
		return v, len(v) >= 2
	case orb.MultiLineString:
		kept := make(orb.MultiLineString, 0, len(v))
		for _, l := range v {
			if len(l) >= 2 {
				kept = append(kept, l)
			}
		}
		return kept, len(kept) > 0
	case orb.Ring:
		fixed, ok := fixRing(v)
		return fixed, ok
	case orb.Polygon:
		fixed, ok := fixPolygon(v)
		return fixed, ok
	case orb.MultiPolygon:
		kept := make(orb.MultiPolygon, 0, len(v))
		for _, p := range v {
			if fixed, ok := fixPolygon(p); ok {
				kept = append(kept, fixed)
			}
		}
		return kept, len(kept) > 0
	case orb.Collection:
		kept := make(orb.Collection, 0, len(v))
		for _, each := range v {
			if fixed, ok := fixGeometry(each); ok {
				kept = append(kept, fixed)
			}
		}
		return kept, len(kept) > 0
	}
	return g, true
}

func fixPolygon(p orb.Polygon) (orb.Polygon, bool) {
	kept := make(orb.Polygon, 0, len(p))
	for _, ring := range p {
		if fixed, ok := fixRing(ring); ok {
			kept = append(kept, fixed)
		}
	}
	return kept, len(kept) > 0
}

func fixRing(r orb.Ring) (orb.Ring, bool) {
	if len(r) < 3 {
		return nil, false
	}
	if r[0] != r[len(r)-1] {
		closed := make(orb.Ring, len(r)+1)
		copy(closed, r)
		closed[len(r)] = r[0]
		return closed, true
	}
	return r, len(r) >= 4
}

// FilterByBBox keeps features whose bounding box overlaps the query box.
func FilterByBBox(features models.FeatureSet, minLon, minLat, maxLon, maxLat float64) models.FeatureSet {
	out := models.FeatureSet{}
	for _, f := range features {
		if f.Geometry == nil {
			continue
		}
		b := f.Geometry.Bound()
		if b.Min[0] <= maxLon && b.Max[0] >= minLon &&
			b.Min[1] <= maxLat && b.Max[1] >= minLat {
			out = append(out, f)
		}
	}
	return out
}

// assignIDs gives features without an ID a stable layer-scoped one.
func assignIDs(layer string, features models.FeatureSet) {
	for i := range features {
		if features[i].ID == "" {
			features[i].ID = fmt.Sprintf("%s-%d", layer, i)
		}
	}
}
