package geospatial

import (
	"fmt"
	"math"
)

// FormatDistance renders meters for display: whole meters below 1 km,
// kilometers with one decimal from there on.
func FormatDistance(meters float64) string {
	m := math.Round(math.Abs(meters))
	if m < 1000 {
		return fmt.Sprintf("%d m", int64(m))
	}
	return fmt.Sprintf("%.1f km", m/1000)
}
