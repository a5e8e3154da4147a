package http

import (
	"github.com/nats-io/nats.go"

	natsadapter "github.com/samirrijal/nearme/internal/adapters/nats"
	"github.com/samirrijal/nearme/internal/adapters/postgres"
	"github.com/samirrijal/nearme/internal/adapters/valkey"
	"github.com/samirrijal/nearme/internal/core/usecases"
)

// Dependencies holds everything the HTTP handlers need. Only Sessions is
// required; the rest are optional infrastructure.
type Dependencies struct {
	Sessions *usecases.SessionRegistry
	Events   *natsadapter.Subscriber // nil: WebSocket clients get in-process events
	NATS     *nats.Conn
	DB       *postgres.DB
	Cache    *valkey.Cache
	Version  string
}
