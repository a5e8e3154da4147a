package domain

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// Contains reports whether p lies inside the box (edges inclusive).
func (b Bounds) Contains(p GeoPoint) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat &&
		p.Lon >= b.MinLon && p.Lon <= b.MaxLon
}

// DefaultSpanMeters is the side length of the region searched around the user.
const DefaultSpanMeters = 750.0

// Region is the area a search is scoped to: a square of SpanMeters
// centred on Center.
type Region struct {
	Center     GeoPoint `json:"center"`
	SpanMeters float64  `json:"span_meters"`
}

// NewRegion builds a region around center, falling back to DefaultSpanMeters
// when span is not positive.
func NewRegion(center GeoPoint, span float64) Region {
	if span <= 0 {
		span = DefaultSpanMeters
	}
	return Region{Center: center, SpanMeters: span}
}
