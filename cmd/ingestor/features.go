package main

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/nearme/internal/core/domain"
)

// decodePlaces turns a GeoJSON FeatureCollection into raw places. Only
// point features with a name are kept; the rest are counted as skipped.
func decodePlaces(data []byte) ([]domain.RawPlace, int, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, 0, fmt.Errorf("parse geojson: %w", err)
	}

	places := make([]domain.RawPlace, 0, len(fc.Features))
	skipped := 0
	for _, f := range fc.Features {
		p, ok := featureToPlace(f)
		if !ok {
			skipped++
			continue
		}
		places = append(places, p)
	}
	return places, skipped, nil
}

func featureToPlace(f *geojson.Feature) (domain.RawPlace, bool) {
	pt, ok := f.Geometry.(orb.Point)
	if !ok {
		return domain.RawPlace{}, false
	}
	props := f.Properties
	name := strings.TrimSpace(props.MustString("name", ""))
	if name == "" {
		return domain.RawPlace{}, false
	}

	return domain.RawPlace{
		ExternalID:         featureID(f),
		Name:               name,
		Phone:              firstString(props, "phone", "contact:phone"),
		CategoryCode:       firstString(props, "category", "amenity", "shop", "tourism", "leisure"),
		Thoroughfare:       streetLine(props),
		Locality:           firstString(props, "addr:city", "city"),
		AdministrativeArea: firstString(props, "addr:state", "addr:province", "state"),
		PostalCode:         firstString(props, "addr:postcode", "postcode"),
		URL:                firstString(props, "website", "contact:website", "url"),
		Location:           &domain.GeoPoint{Lat: pt.Lat(), Lon: pt.Lon()},
	}, true
}

func featureID(f *geojson.Feature) string {
	switch id := f.ID.(type) {
	case string:
		return id
	case float64:
		return fmt.Sprintf("%.0f", id)
	}
	if id := f.Properties.MustString("@id", ""); id != "" {
		return id
	}
	return ""
}

func firstString(props geojson.Properties, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(props.MustString(k, "")); v != "" {
			return v
		}
	}
	return ""
}

func streetLine(props geojson.Properties) string {
	street := firstString(props, "addr:street", "street")
	if n := firstString(props, "addr:housenumber"); n != "" && street != "" {
		return street + " " + n
	}
	return street
}
