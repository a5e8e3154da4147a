package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	natsadapter "github.com/samirrijal/nearme/internal/adapters/nats"
	"github.com/samirrijal/nearme/internal/core/domain"
)

func listen(t *testing.T, app *fiber.App) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })
	return ln.Addr().String()
}

func readEvent(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, v))
}

func TestWebSocket_RelaysSessionEvents(t *testing.T) {
	deps := makeDeps(t, nil)
	app := setupApp(deps)
	addr := listen(t, app)

	s, err := deps.Sessions.Create(nil)
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws?session="+s.ID(), nil)
	require.NoError(t, err)
	defer conn.Close()

	var snap struct {
		Type    string             `json:"type"`
		Session domain.SessionView `json:"session"`
	}
	readEvent(t, conn, &snap)
	assert.Equal(t, "snapshot", snap.Type)
	assert.Equal(t, s.ID(), snap.Session.SessionID)

	_, err = s.Search(context.Background(), "coffee", domain.NewRegion(domain.GeoPoint{Lat: 43.263, Lon: -2.935}, 0))
	require.NoError(t, err)

	var ev natsadapter.Event
	readEvent(t, conn, &ev)
	assert.Equal(t, natsadapter.EventCatalogReplaced, ev.Type)
	require.Len(t, ev.Places, 3)

	target := ev.Places[1].ID
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(fmt.Sprintf(`{"action":"select","id":%q}`, target))))

	ev = natsadapter.Event{}
	readEvent(t, conn, &ev)
	assert.Equal(t, natsadapter.EventSelectionChanged, ev.Type)
	assert.Equal(t, target, ev.PlaceID)
	assert.True(t, ev.Selected)

	id, ok, err := s.CurrentSelectionID()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, target, id)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"action":"dance"}`)))
	var wsErr struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	readEvent(t, conn, &wsErr)
	assert.Equal(t, "error", wsErr.Type)
	assert.Contains(t, wsErr.Message, "unknown action")
}

func TestWebSocket_UnknownSession(t *testing.T) {
	app := setupApp(makeDeps(t, nil))
	addr := listen(t, app)

	_, resp, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws?session=missing", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
