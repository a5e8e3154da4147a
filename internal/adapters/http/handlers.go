package http

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/nearme/internal/core/domain"
	"github.com/samirrijal/nearme/internal/core/usecases"
)

const (
	maxQueryLen   = 200
	maxSpanMeters = 50000
)

type pointRequest struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

// point validates the pair. ok is false when neither coordinate was sent.
func (r pointRequest) point() (p domain.GeoPoint, ok bool, err error) {
	if r.Lat == nil && r.Lon == nil {
		return domain.GeoPoint{}, false, nil
	}
	if r.Lat == nil || r.Lon == nil {
		return domain.GeoPoint{}, false, fmt.Errorf("lat and lon must be given together")
	}
	if *r.Lat < -90 || *r.Lat > 90 {
		return domain.GeoPoint{}, false, fmt.Errorf("lat must be between -90 and 90")
	}
	if *r.Lon < -180 || *r.Lon > 180 {
		return domain.GeoPoint{}, false, fmt.Errorf("lon must be between -180 and 180")
	}
	return domain.GeoPoint{Lat: *r.Lat, Lon: *r.Lon}, true, nil
}

func parseBody(c *fiber.Ctx, v any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	return c.BodyParser(v)
}

func session(c *fiber.Ctx, deps *Dependencies) (*usecases.DiscoverySession, error) {
	return deps.Sessions.Get(c.Params("id"))
}

// CreateSessionHandler opens a discovery session, optionally at the user's
// location.
func CreateSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req pointRequest
		if err := parseBody(c, &req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		origin, ok, err := req.point()
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		var originPtr *domain.GeoPoint
		if ok {
			originPtr = &origin
		}
		s, err := deps.Sessions.Create(originPtr)
		if err != nil {
			return errDomain(c, err)
		}

		LoggerFromCtx(c.UserContext()).Info("session created", "session_id", s.ID())
		c.Location("/v1/sessions/" + s.ID())
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": s.ID()})
	}
}

// DeleteSessionHandler closes a session.
func DeleteSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Sessions.Delete(c.Params("id")); err != nil {
			return errDomain(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// GetSessionHandler returns the full session view.
func GetSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := session(c, deps)
		if err != nil {
			return errDomain(c, err)
		}
		view, err := s.Snapshot()
		if err != nil {
			return errDomain(c, err)
		}
		return c.JSON(view)
	}
}

type searchRequest struct {
	Query string `json:"query"`
	pointRequest
	SpanMeters float64 `json:"span_meters"`
}

// SearchHandler runs a search in a session and waits for it to finish.
// A failed search answers 502 with the outcome in the body.
func SearchHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := session(c, deps)
		if err != nil {
			return errDomain(c, err)
		}

		var req searchRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		req.Query = strings.TrimSpace(req.Query)
		if req.Query == "" {
			return errDomain(c, domain.ErrEmptyQuery)
		}
		if len(req.Query) > maxQueryLen {
			return errBadRequest(c, fmt.Sprintf("query too long (max %d characters)", maxQueryLen))
		}
		if req.SpanMeters < 0 || req.SpanMeters > maxSpanMeters {
			return errBadRequest(c, fmt.Sprintf("span_meters must be between 0 and %d", maxSpanMeters))
		}

		center, ok, err := req.point()
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		if !ok {
			view, err := s.Snapshot()
			if err != nil {
				return errDomain(c, err)
			}
			if view.Origin == nil {
				return errBadRequest(c, "lat and lon are required when the session has no origin")
			}
			center = *view.Origin
		}

		out, err := s.Search(c.UserContext(), req.Query, domain.NewRegion(center, req.SpanMeters))
		if err != nil {
			return errDomain(c, err)
		}
		view, err := s.Snapshot()
		if err != nil {
			return errDomain(c, err)
		}

		status := fiber.StatusOK
		if out.Status == domain.StatusFailed {
			status = fiber.StatusBadGateway
		}
		return c.Status(status).JSON(SearchResponse{Outcome: out, Session: view})
	}
}

// ListPlacesHandler returns the list view, selected place first.
func ListPlacesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := session(c, deps)
		if err != nil {
			return errDomain(c, err)
		}
		view, err := s.Snapshot()
		if err != nil {
			return errDomain(c, err)
		}

		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 50)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 200 {
			limit = 50
		}

		places := view.Places
		total := len(places)
		if offset >= total {
			places = []domain.PlaceView{}
		} else {
			places = places[offset:min(offset+limit, total)]
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		c.Set("X-Catalog-Generation", fmt.Sprint(view.Generation))
		return c.JSON(PaginatedResponse{Data: places, Pagination: pg})
	}
}

// PinsHandler returns the map view.
func PinsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := session(c, deps)
		if err != nil {
			return errDomain(c, err)
		}
		view, err := s.Snapshot()
		if err != nil {
			return errDomain(c, err)
		}
		return c.JSON(pinsFromView(view))
	}
}

// PlaceDetailHandler returns the detail card of one place.
func PlaceDetailHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := session(c, deps)
		if err != nil {
			return errDomain(c, err)
		}
		view, err := s.Snapshot()
		if err != nil {
			return errDomain(c, err)
		}
		p, ok := view.Place(c.Params("placeId"))
		if !ok {
			return errDomain(c, domain.ErrPlaceNotFound)
		}
		return c.JSON(detailFromPlace(p))
	}
}

// GetSelectionHandler returns the selected place, if any.
func GetSelectionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := session(c, deps)
		if err != nil {
			return errDomain(c, err)
		}
		view, err := s.Snapshot()
		if err != nil {
			return errDomain(c, err)
		}
		return c.JSON(selectionFromView(view))
	}
}

// PutSelectionHandler selects a place. An id that is not in the catalog
// leaves nothing selected.
func PutSelectionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := session(c, deps)
		if err != nil {
			return errDomain(c, err)
		}
		var req struct {
			ID string `json:"id"`
		}
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.ID == "" {
			return errBadRequest(c, "id is required")
		}

		view, err := s.SelectAndSnapshot(req.ID)
		if err != nil {
			return errDomain(c, err)
		}
		return c.JSON(selectionFromView(view))
	}
}

// DeleteSelectionHandler clears the selection.
func DeleteSelectionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := session(c, deps)
		if err != nil {
			return errDomain(c, err)
		}
		if err := s.ClearSelection(); err != nil {
			return errDomain(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// PutOriginHandler sets the user location distances are measured from.
func PutOriginHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := session(c, deps)
		if err != nil {
			return errDomain(c, err)
		}
		var req pointRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		p, ok, err := req.point()
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		if !ok {
			return errBadRequest(c, "lat and lon are required")
		}
		if err := s.SetOrigin(p); err != nil {
			return errDomain(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
