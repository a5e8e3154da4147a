package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"golang.org/x/sync/errgroup"

	"github.com/samirrijal/nearme/internal/adapters/http"
	natsadapter "github.com/samirrijal/nearme/internal/adapters/nats"
	"github.com/samirrijal/nearme/internal/adapters/nominatim"
	"github.com/samirrijal/nearme/internal/adapters/postgres"
	"github.com/samirrijal/nearme/internal/adapters/valkey"
	"github.com/samirrijal/nearme/internal/core/ports"
	"github.com/samirrijal/nearme/internal/core/usecases"
	"github.com/samirrijal/nearme/internal/pkg/config"
	"github.com/samirrijal/nearme/internal/pkg/logging"
	"github.com/samirrijal/nearme/internal/pkg/telemetry"
)

var version = "dev"

func main() {
	cfg, err := config.Load("nearme-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	deps := &http.Dependencies{Version: version}

	// Search gateway
	var gateway ports.SearchGateway
	switch cfg.Gateway.Provider {
	case config.ProviderPostgres:
		db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()
		deps.DB = db
		gateway = postgres.NewPlaceRepo(db, cfg.Gateway.Limit)
	default:
		gateway = nominatim.New(nominatim.Config{
			BaseURL:   cfg.Gateway.BaseURL,
			UserAgent: cfg.Gateway.UserAgent,
			Limit:     cfg.Gateway.Limit,
		})
	}
	gateway = usecases.NewTracedGateway(gateway, cfg.Gateway.Provider)

	// Cache
	var cache ports.CacheService
	if cfg.Valkey.Addr != "" {
		c, err := valkey.New(cfg.Valkey.Addr, cfg.Valkey.Prefix)
		if err != nil {
			slog.Warn("valkey unavailable, search cache disabled", "error", err)
		} else {
			defer c.Close()
			deps.Cache = c
			cache = c
		}
	}
	gateway = usecases.NewCachedGateway(gateway, cache, cfg.Search.CacheTTL, cfg.Search.Timeout)

	// NATS
	var publisher ports.EventPublisher
	if cfg.NATS.URL != "" {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable, events stay in-process", "error", err)
		} else {
			defer pub.Close()
			publisher = pub
			deps.NATS = pub.Conn()
			deps.Events = natsadapter.NewSubscriber(pub.Conn())
			defer deps.Events.Close()
		}
	}

	registry := usecases.NewSessionRegistry(gateway, publisher, usecases.RegistryConfig{
		MaxSessions:   cfg.Session.Max,
		IdleTTL:       cfg.Session.IdleTTL,
		SearchTimeout: cfg.Search.Timeout,
		Logger:        slog.Default(),
	})
	defer registry.CloseAll()
	deps.Sessions = registry

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    64 * 1024,
		AppName:      "NearMe API",
	})
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.CORSOrigins,
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, If-None-Match",
		MaxAge:       3600,
	}))

	routes := http.DefaultRouterConfig()
	routes.RateLimit = cfg.Server.RateLimit
	routes.SearchTimeout = cfg.Search.Timeout + 5*time.Second
	http.SetupRoutes(app, deps, routes)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "provider", cfg.Gateway.Provider, "version", version)
		return app.Listen(addr)
	})

	g.Go(func() error {
		registry.RunJanitor(gctx, time.Minute)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received, draining connections...")

		// Give in-flight requests up to 10s to complete
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("server stopped with error", "error", err)
	}
	slog.Info("server stopped")
}
