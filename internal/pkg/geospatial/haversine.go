package geospatial

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/samirrijal/nearme/internal/core/domain"
)

const earthRadiusKm = 6371.0

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c * 1000 // meters
}

// Distance is Haversine over domain points.
func Distance(from, to domain.GeoPoint) float64 {
	return Haversine(from.Lat, from.Lon, to.Lat, to.Lon)
}

// BoundingBox returns a bounding box around a point with the given radius in meters.
func BoundingBox(lat, lon, radiusMeters float64) (minLat, minLon, maxLat, maxLon float64) {
	latDelta := radiusMeters / 111320.0
	lonDelta := radiusMeters / (111320.0 * math.Cos(toRad(lat)))

	return lat - latDelta, lon - lonDelta, lat + latDelta, lon + lonDelta
}

// RegionBound converts a search region into an orb bound (lon/lat order).
func RegionBound(r domain.Region) orb.Bound {
	center := orb.Point{r.Center.Lon, r.Center.Lat}
	return geo.NewBoundAroundPoint(center, r.SpanMeters/2)
}

// RegionBounds is RegionBound expressed as domain bounds.
func RegionBounds(r domain.Region) domain.Bounds {
	b := RegionBound(r)
	return domain.Bounds{
		MinLat: b.Bottom(),
		MinLon: b.Left(),
		MaxLat: b.Top(),
		MaxLon: b.Right(),
	}
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
