package summary

import (
	"encoding/json"
	"math"
)

// GeoShape is a point or an envelope in GeoJSON-like form.
type GeoShape struct {
	Type string
	// Point is [lon, lat].
	Point [2]float64
	// Envelope is [[lon_w, lat_n], [lon_e, lat_s]].
	Envelope [2][2]float64
}

const (
	shapePoint    = "point"
	shapeEnvelope = "envelope"
)

// NewPoint validates and normalizes a point. The latitude must lie in
// [-90, 90]; the longitude is wrapped into [-180, 180].
func NewPoint(lon, lat float64) (GeoShape, bool) {
	if !validLatitude(lat) {
		return GeoShape{}, false
	}
	lon, ok := normalizeLongitude(lon)
	if !ok {
		return GeoShape{}, false
	}
	return GeoShape{Type: shapePoint, Point: [2]float64{lon, lat}}, true
}

// NewEnvelope validates and normalizes an envelope.
func NewEnvelope(lonW, latN, lonE, latS float64) (GeoShape, bool) {
	if !validLatitude(latN) || !validLatitude(latS) {
		return GeoShape{}, false
	}
	lonW, okW := normalizeLongitude(lonW)
	lonE, okE := normalizeLongitude(lonE)
	if !okW || !okE {
		return GeoShape{}, false
	}
	return GeoShape{Type: shapeEnvelope, Envelope: [2][2]float64{{lonW, latN}, {lonE, latS}}}, true
}

func validLatitude(lat float64) bool {
	return lat >= -90 && lat <= 90
}

func normalizeLongitude(lon float64) (float64, bool) {
	if math.IsNaN(lon) || math.IsInf(lon, 0) {
		return 0, false
	}
	if math.Abs(lon) > 360*1e6 {
		lon = math.Mod(lon, 360)
	}
	for lon < -180 {
		lon += 360
	}
	for lon > 180 {
		lon -= 360
	}
	return lon, true
}

// MarshalJSON renders {"type", "coordinates"}.
func (g GeoShape) MarshalJSON() ([]byte, error) {
	var coordinates any = g.Point
	if g.Type == shapeEnvelope {
		coordinates = g.Envelope
	}
	return json.Marshal(struct {
		Type        string `json:"type"`
		Coordinates any    `json:"coordinates"`
	}{g.Type, coordinates})
}

// GeoCollection holds up to MaxValues shapes.
type GeoCollection struct {
	shapes []GeoShape
}

// Add appends shape unless the collection is full.
func (g *GeoCollection) Add(shape GeoShape) {
	if len(g.shapes) < MaxValues {
		g.shapes = append(g.shapes, shape)
	}
}

// Merge concatenates other's shapes, drops duplicates and re-caps. A full
// collection is left untouched.
func (g *GeoCollection) Merge(other *GeoCollection) {
	if len(g.shapes) >= MaxValues {
		return
	}
	merged := make([]GeoShape, 0, len(g.shapes)+len(other.shapes))
	seen := make(map[GeoShape]struct{}, cap(merged))
	for _, shape := range append(append([]GeoShape(nil), g.shapes...), other.shapes...) {
		if _, ok := seen[shape]; ok {
			continue
		}
		seen[shape] = struct{}{}
		merged = append(merged, shape)
		if len(merged) == MaxValues {
			break
		}
	}
	g.shapes = merged
}

// Shapes returns the collected shapes.
func (g *GeoCollection) Shapes() []GeoShape {
	return append([]GeoShape(nil), g.shapes...)
}

func (g *GeoCollection) MarshalJSON() ([]byte, error) {
	if g.shapes == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(g.shapes)
}

func (g *GeoCollection) clone() Accumulator {
	return &GeoCollection{shapes: append([]GeoShape(nil), g.shapes...)}
}
