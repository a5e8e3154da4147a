package nominatim

import (
	"context"
	"net"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/samirrijal/nearme/internal/core/domain"
)

const sampleResponse = `[
  {"osm_type": "node", "osm_id": 101, "lat": "43.2630", "lon": "-2.9350",
   "category": "amenity", "type": "cafe", "name": "Café Iruña",
   "address": {"road": "Jardines de Albia", "house_number": "5", "city": "Bilbao",
               "state": "Basque Country", "postcode": "48001"},
   "extratags": {"phone": "+34 944 237 021", "website": "https://example.com"}},
  {"osm_type": "way", "osm_id": 7, "lat": "43.26", "lon": "-2.94",
   "category": "shop", "type": "supermarket", "name": "Mercado",
   "address": {"town": "Bilbao"}},
  {"osm_type": "node", "osm_id": 9, "lat": "not-a-number", "lon": "-2.94",
   "category": "amenity", "type": "bench", "name": "Broken"}
]`

var bilbao = domain.NewRegion(domain.GeoPoint{Lat: 43.2630, Lon: -2.9350}, 0)

// newTestClient serves handler over an in-memory listener.
func newTestClient(t *testing.T, handler fasthttp.RequestHandler) *Client {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: handler}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = ln.Close() })

	c := New(Config{BaseURL: "http://nominatim.test", UserAgent: "nearme-test", Limit: 10})
	c.http.Dial = func(addr string) (net.Conn, error) { return ln.Dial() }
	return c
}

func TestClient_Search(t *testing.T) {
	var gotQuery url.Values
	var gotUA string
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		gotQuery, _ = url.ParseQuery(string(ctx.QueryArgs().QueryString()))
		gotUA = string(ctx.UserAgent())
		ctx.SetContentType("application/json")
		ctx.SetBodyString(sampleResponse)
	})

	places, err := c.Search(context.Background(), "coffee", bilbao)
	require.NoError(t, err)
	require.Len(t, places, 3)

	assert.Equal(t, "coffee", gotQuery.Get("q"))
	assert.Equal(t, "jsonv2", gotQuery.Get("format"))
	assert.Equal(t, "1", gotQuery.Get("bounded"))
	assert.Equal(t, "10", gotQuery.Get("limit"))
	assert.NotEmpty(t, gotQuery.Get("viewbox"))
	assert.Equal(t, "nearme-test", gotUA)

	cafe := places[0]
	assert.Equal(t, "node/101", cafe.ExternalID)
	assert.Equal(t, "Café Iruña", cafe.Name)
	assert.Equal(t, domain.CategoryCafe, cafe.CategoryCode)
	assert.Equal(t, "Jardines de Albia 5", cafe.Thoroughfare)
	assert.Equal(t, "Bilbao", cafe.Locality)
	assert.Equal(t, "Basque Country", cafe.AdministrativeArea)
	assert.Equal(t, "48001", cafe.PostalCode)
	assert.Equal(t, "+34 944 237 021", cafe.Phone)
	assert.Equal(t, "https://example.com", cafe.URL)
	require.NotNil(t, cafe.Location)
	assert.InDelta(t, 43.2630, cafe.Location.Lat, 1e-9)

	assert.Equal(t, domain.CategoryStore, places[1].CategoryCode)
	assert.Equal(t, "Bilbao", places[1].Locality)

	assert.Nil(t, places[2].Location)
}

func TestClient_SearchHTTPError(t *testing.T) {
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
	})

	_, err := c.Search(context.Background(), "coffee", bilbao)
	assert.ErrorContains(t, err, "503")
}

func TestClient_SearchBadJSON(t *testing.T) {
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetBodyString(`{"error": "nope"}`)
	})

	_, err := c.Search(context.Background(), "coffee", bilbao)
	assert.ErrorContains(t, err, "decode")
}

func TestClient_SearchContextDeadline(t *testing.T) {
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		time.Sleep(300 * time.Millisecond)
		ctx.SetBodyString(`[]`)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Search(ctx, "coffee", bilbao)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCategoryCode(t *testing.T) {
	assert.Equal(t, domain.CategoryGasStation, categoryCode("amenity", "fuel"))
	assert.Equal(t, domain.CategoryStore, categoryCode("shop", "bakery"))
	assert.Equal(t, domain.CategoryPark, categoryCode("leisure", "park"))
	assert.Equal(t, "fitness_centre", categoryCode("leisure", "fitness_centre"))
	assert.Equal(t, "Fitness Centre", domain.CategoryLabel(categoryCode("leisure", "fitness_centre")))
}
