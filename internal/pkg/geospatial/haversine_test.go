package geospatial

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/samirrijal/nearme/internal/core/domain"
)

func TestHaversine(t *testing.T) {
	// Bilbao Abando to Moyua, roughly 700 m apart.
	d := Haversine(43.2610, -2.9270, 43.2627, -2.9350)
	assert.InDelta(t, 675, d, 25)

	assert.Equal(t, 0.0, Haversine(10, 10, 10, 10))
}

func TestDistance_Symmetric(t *testing.T) {
	a := domain.GeoPoint{Lat: 12.9716, Lon: 77.5946}
	b := domain.GeoPoint{Lat: 13.0827, Lon: 80.2707}
	assert.InDelta(t, Distance(a, b), Distance(b, a), 1e-6)
	assert.InDelta(t, 290_000, Distance(a, b), 5_000)
}

func TestFormatDistance(t *testing.T) {
	tests := []struct {
		meters float64
		want   string
	}{
		{0, "0 m"},
		{42.4, "42 m"},
		{999.4, "999 m"},
		{999.6, "1.0 km"},
		{1000, "1.0 km"},
		{1549, "1.5 km"},
		{12345, "12.3 km"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDistance(tt.meters), "meters=%v", tt.meters)
	}
}

func TestRegionBounds_ContainsCenter(t *testing.T) {
	r := domain.NewRegion(domain.GeoPoint{Lat: 43.263, Lon: -2.935}, 750)
	b := RegionBounds(r)

	assert.True(t, b.Contains(r.Center))
	assert.Less(t, b.MinLat, b.MaxLat)
	assert.Less(t, b.MinLon, b.MaxLon)
	// 375 m is about 0.0034 degrees of latitude.
	assert.InDelta(t, 0.0034, b.MaxLat-r.Center.Lat, 0.0005)
}
