// Package nominatim implements ports.SearchGateway against an OpenStreetMap
// Nominatim server.
package nominatim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/samirrijal/nearme/internal/core/domain"
	"github.com/samirrijal/nearme/internal/pkg/geospatial"
)

// Config configures a Client.
type Config struct {
	BaseURL   string
	UserAgent string
	Limit     int
}

// Client searches for places near a region with Nominatim's /search API.
type Client struct {
	http      *fasthttp.Client
	baseURL   string
	userAgent string
	limit     int
}

// New creates a Client.
func New(cfg Config) *Client {
	if cfg.Limit <= 0 {
		cfg.Limit = 25
	}
	return &Client{
		http: &fasthttp.Client{
			Name:            cfg.UserAgent,
			MaxConnsPerHost: 16,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    5 * time.Second,
		},
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		limit:     cfg.Limit,
	}
}

// defaultCallTimeout applies when ctx has no deadline.
const defaultCallTimeout = 10 * time.Second

// Search implements ports.SearchGateway. Results are bounded to the region's
// viewbox.
func (c *Client) Search(ctx context.Context, query string, region domain.Region) ([]domain.RawPlace, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	release := func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}

	req.SetRequestURI(c.searchURL(query, region))
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.SetUserAgent(c.userAgent)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultCallTimeout)
	}

	// fasthttp has no context support; race the call against ctx.
	done := make(chan error, 1)
	go func() { done <- c.http.DoDeadline(req, resp, deadline) }()

	select {
	case err := <-done:
		defer release()
		if err != nil {
			if errors.Is(err, fasthttp.ErrTimeout) {
				return nil, fmt.Errorf("nominatim: %w", context.DeadlineExceeded)
			}
			return nil, fmt.Errorf("nominatim request: %w", err)
		}
	case <-ctx.Done():
		// req and resp stay owned by the in-flight call until it returns.
		go func() {
			<-done
			release()
		}()
		return nil, ctx.Err()
	}

	if code := resp.StatusCode(); code != fasthttp.StatusOK {
		return nil, fmt.Errorf("nominatim: unexpected status %d", code)
	}
	return decode(resp.Body())
}

func (c *Client) searchURL(query string, region domain.Region) string {
	b := geospatial.RegionBound(region)

	args := fasthttp.AcquireArgs()
	defer fasthttp.ReleaseArgs(args)
	args.Set("q", query)
	args.Set("format", "jsonv2")
	args.Set("addressdetails", "1")
	args.Set("extratags", "1")
	args.Set("bounded", "1")
	args.Set("limit", strconv.Itoa(c.limit))
	// viewbox is left,top,right,bottom.
	args.Set("viewbox", fmt.Sprintf("%.6f,%.6f,%.6f,%.6f", b.Left(), b.Top(), b.Right(), b.Bottom()))

	return c.baseURL + "/search?" + args.String()
}

type result struct {
	OSMType   string            `json:"osm_type"`
	OSMID     int64             `json:"osm_id"`
	Lat       string            `json:"lat"`
	Lon       string            `json:"lon"`
	Category  string            `json:"category"`
	Type      string            `json:"type"`
	Name      string            `json:"name"`
	Address   map[string]string `json:"address"`
	ExtraTags map[string]string `json:"extratags"`
}

func decode(body []byte) ([]domain.RawPlace, error) {
	var results []result
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("nominatim: decode: %w", err)
	}

	places := make([]domain.RawPlace, 0, len(results))
	for _, r := range results {
		places = append(places, r.toRawPlace())
	}
	return places, nil
}

// toRawPlace keeps entries with unparseable coordinates, with a nil
// Location, so the catalog can count them as malformed.
func (r result) toRawPlace() domain.RawPlace {
	p := domain.RawPlace{
		Name:               r.Name,
		Phone:              first(r.ExtraTags, "phone", "contact:phone"),
		CategoryCode:       categoryCode(r.Category, r.Type),
		Thoroughfare:       street(r.Address),
		Locality:           first(r.Address, "city", "town", "village", "suburb"),
		AdministrativeArea: first(r.Address, "state", "province", "county"),
		PostalCode:         r.Address["postcode"],
		URL:                first(r.ExtraTags, "website", "contact:website", "url"),
	}
	if r.OSMType != "" && r.OSMID != 0 {
		p.ExternalID = r.OSMType + "/" + strconv.FormatInt(r.OSMID, 10)
	}

	lat, errLat := strconv.ParseFloat(r.Lat, 64)
	lon, errLon := strconv.ParseFloat(r.Lon, 64)
	if errLat == nil && errLon == nil {
		p.Location = &domain.GeoPoint{Lat: lat, Lon: lon}
	}
	return p
}

func first(m map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(m[k]); v != "" {
			return v
		}
	}
	return ""
}

func street(addr map[string]string) string {
	road := first(addr, "road", "pedestrian", "footway")
	if n := addr["house_number"]; n != "" && road != "" {
		return road + " " + n
	}
	return road
}
