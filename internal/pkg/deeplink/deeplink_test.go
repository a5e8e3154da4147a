package deeplink

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/samirrijal/nearme/internal/core/domain"
)

func TestDirections(t *testing.T) {
	got := Directions(domain.GeoPoint{Lat: 12.9716, Lon: 77.5946})
	assert.Equal(t, "https://maps.apple.com/?daddr=12.9716,77.5946", got)
}

func TestDial(t *testing.T) {
	got, ok := Dial("+1 (555) 123-4567")
	assert.True(t, ok)
	assert.Equal(t, "tel://15551234567", got)

	_, ok = Dial(" () - ")
	assert.False(t, ok)
}
