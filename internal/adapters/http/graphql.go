package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/nearme/internal/core/domain"
)

// placeFields flattens a PlaceView for graphql-go, which resolves fields
// from maps more reliably than from embedded structs.
func placeFields(p domain.PlaceView) map[string]any {
	m := map[string]any{
		"id":            p.ID,
		"name":          p.Name,
		"category":      p.Category,
		"address":       p.Address,
		"phone":         p.Phone,
		"url":           p.URL,
		"location":      map[string]any{"lat": p.Location.Lat, "lon": p.Location.Lon},
		"selected":      p.Selected,
		"distance_text": p.DistanceText,
	}
	if p.Distance != nil {
		m["distance"] = *p.Distance
	}
	return m
}

func sessionFields(v domain.SessionView) map[string]any {
	places := make([]map[string]any, len(v.Places))
	for i, p := range v.Places {
		places[i] = placeFields(p)
	}
	return map[string]any{
		"id":          v.SessionID,
		"generation":  int(v.Generation),
		"state":       string(v.State),
		"query":       v.Query,
		"last_error":  v.LastError,
		"selected_id": v.SelectedID,
		"places":      places,
	}
}

// buildSchema creates the GraphQL schema over the session registry.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	placeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Place",
		Fields: graphql.Fields{
			"id":            &graphql.Field{Type: graphql.String},
			"name":          &graphql.Field{Type: graphql.String},
			"category":      &graphql.Field{Type: graphql.String},
			"address":       &graphql.Field{Type: graphql.String},
			"phone":         &graphql.Field{Type: graphql.String},
			"url":           &graphql.Field{Type: graphql.String},
			"location":      &graphql.Field{Type: geoPointType},
			"selected":      &graphql.Field{Type: graphql.Boolean},
			"distance":      &graphql.Field{Type: graphql.Float},
			"distance_text": &graphql.Field{Type: graphql.String},
		},
	})

	sessionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Session",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"generation":  &graphql.Field{Type: graphql.Int},
			"state":       &graphql.Field{Type: graphql.String},
			"query":       &graphql.Field{Type: graphql.String},
			"last_error":  &graphql.Field{Type: graphql.String},
			"selected_id": &graphql.Field{Type: graphql.String},
			"places":      &graphql.Field{Type: graphql.NewList(placeType)},
		},
	})

	outcomeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "SearchOutcome",
		Fields: graphql.Fields{
			"generation": &graphql.Field{Type: graphql.Int},
			"status":     &graphql.Field{Type: graphql.String},
			"count":      &graphql.Field{Type: graphql.Int},
			"dropped":    &graphql.Field{Type: graphql.Int},
			"error":      &graphql.Field{Type: graphql.String},
			"session":    &graphql.Field{Type: sessionType},
		},
	})

	snapshot := func(id string) (domain.SessionView, error) {
		s, err := deps.Sessions.Get(id)
		if err != nil {
			return domain.SessionView{}, err
		}
		return s.Snapshot()
	}

	sessionArg := &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"session": &graphql.Field{
				Type:        sessionType,
				Description: "A discovery session with its places, selected first",
				Args:        graphql.FieldConfigArgument{"id": sessionArg},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					view, err := snapshot(p.Args["id"].(string))
					if err != nil {
						return nil, err
					}
					return sessionFields(view), nil
				},
			},
			"place": &graphql.Field{
				Type:        placeType,
				Description: "One place of a session",
				Args: graphql.FieldConfigArgument{
					"session": sessionArg,
					"id":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					view, err := snapshot(p.Args["session"].(string))
					if err != nil {
						return nil, err
					}
					place, ok := view.Place(p.Args["id"].(string))
					if !ok {
						return nil, domain.ErrPlaceNotFound
					}
					return placeFields(place), nil
				},
			},
		},
	})

	selectionResult := func(id string) (any, error) {
		view, err := snapshot(id)
		if err != nil {
			return nil, err
		}
		return sessionFields(view), nil
	}

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"select": &graphql.Field{
				Type:        sessionType,
				Description: "Select a place; unknown ids clear the selection",
				Args: graphql.FieldConfigArgument{
					"session": sessionArg,
					"id":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					id := p.Args["session"].(string)
					s, err := deps.Sessions.Get(id)
					if err != nil {
						return nil, err
					}
					view, err := s.SelectAndSnapshot(p.Args["id"].(string))
					if err != nil {
						return nil, err
					}
					return sessionFields(view), nil
				},
			},
			"clearSelection": &graphql.Field{
				Type:        sessionType,
				Description: "Clear the selection",
				Args:        graphql.FieldConfigArgument{"session": sessionArg},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					id := p.Args["session"].(string)
					s, err := deps.Sessions.Get(id)
					if err != nil {
						return nil, err
					}
					if err := s.ClearSelection(); err != nil {
						return nil, err
					}
					return selectionResult(id)
				},
			},
			"search": &graphql.Field{
				Type:        outcomeType,
				Description: "Search for places around a point",
				Args: graphql.FieldConfigArgument{
					"session":     sessionArg,
					"query":       &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"lat":         &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon":         &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"span_meters": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: domain.DefaultSpanMeters},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					id := p.Args["session"].(string)
					s, err := deps.Sessions.Get(id)
					if err != nil {
						return nil, err
					}
					query := strings.TrimSpace(p.Args["query"].(string))
					if len(query) > maxQueryLen {
						return nil, errQueryTooLong
					}
					center := domain.GeoPoint{Lat: p.Args["lat"].(float64), Lon: p.Args["lon"].(float64)}
					out, err := s.Search(p.Context, query, domain.NewRegion(center, p.Args["span_meters"].(float64)))
					if err != nil {
						return nil, err
					}
					view, err := s.Snapshot()
					if err != nil {
						return nil, err
					}
					return map[string]any{
						"generation": int(out.Generation),
						"status":     string(out.Status),
						"count":      out.Count,
						"dropped":    out.Dropped,
						"error":      out.Error,
						"session":    sessionFields(view),
					}, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string         `json:"query"`
		OperationName string         `json:"operationName"`
		Variables     map[string]any `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
