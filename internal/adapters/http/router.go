package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/nearme/internal/pkg/metrics"
)

// RouterConfig tunes route-level limits.
type RouterConfig struct {
	// RequestTimeout bounds non-search requests.
	RequestTimeout time.Duration
	// SearchTimeout bounds search requests; it should exceed the gateway timeout.
	SearchTimeout time.Duration
	// RateLimit is requests per minute per IP; 0 disables limiting.
	RateLimit int
	SpecPath  string
}

// DefaultRouterConfig matches the defaults of the api command.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		RequestTimeout: 5 * time.Second,
		SearchTimeout:  15 * time.Second,
		RateLimit:      240,
		SpecPath:       DefaultSpecPath,
	}
}

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies, cfg RouterConfig) {
	app.Use(recover.New())

	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	if cfg.RateLimit > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        cfg.RateLimit,
			Expiration: 1 * time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return newError(c, fiber.StatusTooManyRequests, "rate_limited",
					"too many requests, please try again later")
			},
		}))
	}

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	short := func(h fiber.Handler) fiber.Handler {
		return timeout.NewWithContext(h, cfg.RequestTimeout)
	}

	v1 := app.Group("/v1")
	v1.Post("/sessions", short(CreateSessionHandler(deps)))
	v1.Get("/sessions/:id", short(GetSessionHandler(deps)))
	v1.Delete("/sessions/:id", short(DeleteSessionHandler(deps)))
	v1.Post("/sessions/:id/search", timeout.NewWithContext(SearchHandler(deps), cfg.SearchTimeout))
	v1.Get("/sessions/:id/places", short(ListPlacesHandler(deps)))
	v1.Get("/sessions/:id/places/:placeId", short(PlaceDetailHandler(deps)))
	v1.Get("/sessions/:id/pins", short(PinsHandler(deps)))
	v1.Get("/sessions/:id/selection", short(GetSelectionHandler(deps)))
	v1.Put("/sessions/:id/selection", short(PutSelectionHandler(deps)))
	v1.Delete("/sessions/:id/selection", short(DeleteSelectionHandler(deps)))
	v1.Put("/sessions/:id/origin", short(PutOriginHandler(deps)))

	app.Post("/graphql", timeout.NewWithContext(GraphQLHandler(deps), cfg.SearchTimeout))

	SetupDocs(app, cfg.SpecPath)

	app.Use("/ws", WebSocketUpgrade(deps))
	app.Get("/ws", websocket.New(WebSocketHandler(deps)))
}
