package ws

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const sessionLocal = "session_id"

// Handler streams a session's enrollment events. UpgradeMiddleware must run
// first so the session id is already parsed.
func Handler(hub *Hub) fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		sessionID, ok := c.Locals(sessionLocal).(uuid.UUID)
		if !ok {
			_ = c.Close()
			return
		}

		client := &Client{
			hub:       hub,
			conn:      c,
			sessionID: sessionID,
			send:      make(chan []byte, 256),
		}

		hub.register <- client

		go client.WritePump()
		client.ReadPump()
	})
}

// UpgradeMiddleware rejects non-websocket requests and requests without a
// valid session_id query parameter.
func UpgradeMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		sessionID, err := uuid.Parse(c.Query("session_id"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "session_id query parameter must be a UUID")
		}

		c.Locals(sessionLocal, sessionID)
		return c.Next()
	}
}
