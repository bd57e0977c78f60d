package server

import (
	"log/slog"

	"chirp/internal/middleware"
	"chirp/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// FeedUpgrade rejects feed requests when events are disabled or the request
// is not a websocket upgrade.
func (s *Server) FeedUpgrade(c *fiber.Ctx) error {
	if s.feedHub == nil {
		return respondError(c, models.NewServiceUnavailableError("Live feed is disabled", nil))
	}
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return c.Next()
}

// FeedWebSocket handles GET /ws/feed
// @Summary Live event feed
// @Description WebSocket stream of post and vote events. The token may be passed as ?token=.
// @Tags feed
// @Security BearerAuth
// @Success 101
// @Failure 401 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /ws/feed [get]
func (s *Server) FeedWebSocket() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		user, ok := conn.Locals(middleware.LocalUser).(*models.User)
		if !ok || user == nil {
			_ = conn.Close()
			return
		}

		client, err := s.feedHub.Register(user.ID, conn)
		if err != nil {
			middleware.Logger.Warn("feed registration rejected",
				slog.Uint64("user_id", uint64(user.ID)),
				slog.String("error", err.Error()))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()))
			_ = conn.Close()
			return
		}

		middleware.Logger.Info("feed client connected", slog.Uint64("user_id", uint64(user.ID)))

		go client.WritePump()
		client.ReadPump()
	})
}
