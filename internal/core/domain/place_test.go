package domain_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/nearme/internal/core/domain"
)

func TestCategoryLabel(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"bank", "Bank"},
		{"cafe", "Cafe"},
		{"atm", "ATM"},
		{"gasStation", "Gas Station"},
		{"", "Other"},
		{"   ", "Other"},
		{"fitnessCenter", "Fitness Center"},
		{"fitness_center", "Fitness Center"},
		{"MKPOICategoryFitnessCenter", "Fitness Center"},
		{"poi.MKPOICategoryNightlife", "Nightlife"},
		{"EVCharger", "Ev Charger"},
		{"museum", "Museum"},
		{"MKPOICategory", "Other"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.CategoryLabel(tt.code))
		})
	}
}

func TestCategoryLabel_UnknownCodeIsNeverReturnedRaw(t *testing.T) {
	for _, code := range []string{"museum", "fast_food", "amusementPark", "car-rental"} {
		assert.NotEqual(t, code, domain.CategoryLabel(code))
	}
}

func TestNewPlaceRecord(t *testing.T) {
	raw := domain.RawPlace{
		Name:               " Blue Bottle ",
		Phone:              "+1 (555) 123-4567",
		CategoryCode:       "cafe",
		Thoroughfare:       "Mint Plaza",
		Locality:           "San Francisco",
		AdministrativeArea: "CA",
		PostalCode:         "94103",
		URL:                "https://bluebottlecoffee.com",
		Location:           &domain.GeoPoint{Lat: 37.7823, Lon: -122.4079},
	}

	rec, err := domain.NewPlaceRecord(raw)
	require.NoError(t, err)

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "Blue Bottle", rec.Name)
	assert.Equal(t, "Cafe", rec.Category)
	assert.Equal(t, "Mint Plaza, San Francisco, CA, 94103", rec.Address)
	assert.Equal(t, "+1 (555) 123-4567", rec.Phone)
	assert.Equal(t, 37.7823, rec.Location.Lat)
	assert.False(t, rec.Selected)
	assert.Equal(t, []string{"Blue Bottle", "Mint Plaza, San Francisco, CA, 94103", "https://bluebottlecoffee.com"}, rec.ShareItems())
}

func TestNewPlaceRecord_IDsAreNeverReused(t *testing.T) {
	raw := domain.RawPlace{Name: "Twin", Location: &domain.GeoPoint{Lat: 1, Lon: 1}}
	a, err := domain.NewPlaceRecord(raw)
	require.NoError(t, err)
	b, err := domain.NewPlaceRecord(raw)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestNewPlaceRecord_MissingOptionalFields(t *testing.T) {
	rec, err := domain.NewPlaceRecord(domain.RawPlace{Location: &domain.GeoPoint{}})
	require.NoError(t, err)
	assert.Equal(t, "", rec.Name)
	assert.Equal(t, "", rec.Phone)
	assert.Equal(t, "", rec.Address)
	assert.Equal(t, "Other", rec.Category)
}

func TestNewPlaceRecord_NoCoordinate(t *testing.T) {
	_, err := domain.NewPlaceRecord(domain.RawPlace{Name: "Nowhere"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMalformedPayload))
}

func TestFormatAddress_SkipsBlanks(t *testing.T) {
	got := domain.FormatAddress(domain.RawPlace{Thoroughfare: "Gran Vía", PostalCode: "48001"})
	assert.Equal(t, "Gran Vía, 48001", got)
}

func TestNewRegion_DefaultSpan(t *testing.T) {
	r := domain.NewRegion(domain.GeoPoint{Lat: 43.26, Lon: -2.93}, 0)
	assert.Equal(t, domain.DefaultSpanMeters, r.SpanMeters)
}
