package domain

// SearchState is where a discovery session is in its search lifecycle.
type SearchState string

const (
	StateIdle      SearchState = "idle"
	StateSearching SearchState = "searching"
	StateResults   SearchState = "results"
	StateEmpty     SearchState = "empty"  // zero candidates, not an error
	StateFailed    SearchState = "failed" // gateway failure; show "try again"
)

// SearchStatus is how one search request ended.
type SearchStatus string

const (
	StatusResults    SearchStatus = "results"
	StatusEmpty      SearchStatus = "empty"
	StatusFailed     SearchStatus = "failed"
	StatusSuperseded SearchStatus = "superseded"
)

// SearchOutcome reports the result of a single search.
type SearchOutcome struct {
	Generation uint64       `json:"generation"`
	Status     SearchStatus `json:"status"`
	Count      int          `json:"count"`
	Dropped    int          `json:"dropped,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// PlaceView is a PlaceRecord as shown to a user at a given origin.
type PlaceView struct {
	PlaceRecord
	Distance     *float64 `json:"distance,omitempty"` // meters; nil without an origin
	DistanceText string   `json:"distance_text,omitempty"`
}

// SessionView is a read-only snapshot of a discovery session.
// Places are ordered with the selected place first.
type SessionView struct {
	SessionID  string      `json:"session_id"`
	Generation uint64      `json:"generation"`
	State      SearchState `json:"state"`
	Query      string      `json:"query,omitempty"`
	LastError  string      `json:"last_error,omitempty"`
	Origin     *GeoPoint   `json:"origin,omitempty"`
	SelectedID string      `json:"selected_id,omitempty"`
	Places     []PlaceView `json:"places"`
}

// Place returns the view of the place with the given id.
func (v SessionView) Place(id string) (PlaceView, bool) {
	for _, p := range v.Places {
		if p.ID == id {
			return p, true
		}
	}
	return PlaceView{}, false
}
