package server

import (
	"context"
	"time"

	"chirp/internal/database"

	"github.com/gofiber/fiber/v2"
)

const healthTimeout = 5 * time.Second

// HealthCheck handles GET /health
// @Summary Health check
// @Description Reports uptime, version and database reachability. Redis state is informational.
// @Tags health
// @Produce json
// @Success 200 {object} object{status=string,uptime_seconds=int,version=string,database=string,events=string}
// @Failure 503 {object} object{status=string,detail=string,database=string}
// @Router /health [get]
func (s *Server) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
	defer cancel()

	body := fiber.Map{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(s.startedAt).Seconds()),
		"version":        s.config.AppVersion,
		"database":       "connected",
		"events":         s.eventsStatus(ctx),
	}

	if err := database.Ping(ctx, s.db); err != nil {
		body["status"] = "error"
		body["detail"] = "Database unreachable"
		body["database"] = "unreachable"
		return c.Status(fiber.StatusServiceUnavailable).JSON(body)
	}

	return c.JSON(body)
}

func (s *Server) eventsStatus(ctx context.Context) string {
	if !s.notifier.Enabled() {
		return "disabled"
	}
	if err := s.notifier.Ping(ctx); err != nil {
		return "unreachable"
	}
	return "connected"
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now().UTC(),
	})
}
