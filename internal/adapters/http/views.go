package http

import (
	"github.com/samirrijal/nearme/internal/core/domain"
	"github.com/samirrijal/nearme/internal/pkg/deeplink"
)

// MapPin is the map rendering of one place.
type MapPin struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Selected bool    `json:"selected"`
}

// PinsResponse is the map view of a session.
type PinsResponse struct {
	Generation uint64   `json:"generation"`
	SelectedID string   `json:"selected_id,omitempty"`
	Pins       []MapPin `json:"pins"`
}

// PlaceDetail is the detail card of one place.
type PlaceDetail struct {
	domain.PlaceView
	Hours         string   `json:"hours"`
	DirectionsURL string   `json:"directions_url"`
	DialURL       string   `json:"dial_url,omitempty"`
	ShareItems    []string `json:"share_items"`
}

// SearchResponse reports a finished search with the resulting list view.
type SearchResponse struct {
	Outcome domain.SearchOutcome `json:"outcome"`
	Session domain.SessionView   `json:"session"`
}

// SelectionResponse reports the current selection.
type SelectionResponse struct {
	Selected bool              `json:"selected"`
	Place    *domain.PlaceView `json:"place,omitempty"`
}

func pinsFromView(v domain.SessionView) PinsResponse {
	pins := make([]MapPin, len(v.Places))
	for i, p := range v.Places {
		pins[i] = MapPin{
			ID:       p.ID,
			Name:     p.Name,
			Category: p.Category,
			Lat:      p.Location.Lat,
			Lon:      p.Location.Lon,
			Selected: p.Selected,
		}
	}
	return PinsResponse{Generation: v.Generation, SelectedID: v.SelectedID, Pins: pins}
}

func detailFromPlace(p domain.PlaceView) PlaceDetail {
	d := PlaceDetail{
		PlaceView:     p,
		Hours:         domain.HoursUnavailable,
		DirectionsURL: deeplink.Directions(p.Location),
		ShareItems:    p.ShareItems(),
	}
	if url, ok := deeplink.Dial(p.Phone); ok {
		d.DialURL = url
	}
	return d
}

func selectionFromView(v domain.SessionView) SelectionResponse {
	if v.SelectedID == "" {
		return SelectionResponse{}
	}
	p, ok := v.Place(v.SelectedID)
	if !ok {
		return SelectionResponse{}
	}
	return SelectionResponse{Selected: true, Place: &p}
}
