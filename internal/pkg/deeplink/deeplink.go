// Package deeplink builds the outbound URLs a client opens for a place.
package deeplink

import (
	"fmt"
	"strconv"

	"github.com/samirrijal/nearme/internal/core/domain"
	"github.com/samirrijal/nearme/internal/pkg/phone"
)

const directionsBase = "https://maps.apple.com/?daddr="

// Directions returns a maps deep link routing to p.
func Directions(p domain.GeoPoint) string {
	return directionsBase +
		strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," +
		strconv.FormatFloat(p.Lon, 'f', -1, 64)
}

// Dial returns a tel:// link for raw, or false when there is nothing to dial.
func Dial(raw string) (string, bool) {
	n := phone.Normalize(raw)
	if n == "" {
		return "", false
	}
	return fmt.Sprintf("tel://%s", n), true
}
