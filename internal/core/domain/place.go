package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// HoursUnavailable is shown wherever business hours would be displayed.
const HoursUnavailable = "No hours available"

// RawPlace is one candidate as returned by a search provider, before
// normalization. Every string field is optional.
type RawPlace struct {
	ExternalID         string    `json:"external_id,omitempty"` // provider's own id, if any
	Name               string    `json:"name,omitempty"`
	Phone              string    `json:"phone,omitempty"`
	CategoryCode       string    `json:"category_code,omitempty"`
	Thoroughfare       string    `json:"thoroughfare,omitempty"`
	Locality           string    `json:"locality,omitempty"`
	AdministrativeArea string    `json:"administrative_area,omitempty"`
	PostalCode         string    `json:"postal_code,omitempty"`
	URL                string    `json:"url,omitempty"`
	Location           *GeoPoint `json:"location,omitempty"` // nil when the provider gave no coordinate
}

// PlaceRecord is the normalized form of one point of interest.
// Everything but Selected is fixed at construction.
type PlaceRecord struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Address  string   `json:"address"`
	Phone    string   `json:"phone"`
	URL      string   `json:"url,omitempty"`
	Location GeoPoint `json:"location"`
	Selected bool     `json:"selected"`
}

// NewPlaceRecord normalizes a provider payload and assigns it a fresh id.
func NewPlaceRecord(raw RawPlace) (PlaceRecord, error) {
	if raw.Location == nil {
		return PlaceRecord{}, fmt.Errorf("%w: %q has no coordinate", ErrMalformedPayload, raw.Name)
	}
	return PlaceRecord{
		ID:       uuid.NewString(),
		Name:     strings.TrimSpace(raw.Name),
		Category: CategoryLabel(raw.CategoryCode),
		Address:  FormatAddress(raw),
		Phone:    strings.TrimSpace(raw.Phone),
		URL:      raw.URL,
		Location: *raw.Location,
	}, nil
}

// FormatAddress joins street, city, state and postal code, skipping blanks.
func FormatAddress(raw RawPlace) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{raw.Thoroughfare, raw.Locality, raw.AdministrativeArea, raw.PostalCode} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// ShareItems returns what a share sheet offers for the place.
func (p PlaceRecord) ShareItems() []string {
	return []string{p.Name, p.Address, p.URL}
}
