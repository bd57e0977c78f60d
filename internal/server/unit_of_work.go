package server

import (
	"log/slog"

	"chirp/internal/database"
	"chirp/internal/middleware"
	"chirp/internal/models"

	"github.com/gofiber/fiber/v2"
)

// UnitOfWork runs the rest of the handler chain inside one database
// transaction. It commits when the chain returns no error with a status below
// 400 and rolls back otherwise, including on panic.
func (s *Server) UnitOfWork() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, uow, err := database.Begin(c.UserContext(), s.db)
		if err != nil {
			return respondError(c, models.NewServiceUnavailableError("Database unavailable", err))
		}
		c.SetUserContext(ctx)

		defer func() {
			if r := recover(); r != nil {
				_ = uow.Rollback()
				panic(r)
			}
		}()

		err = c.Next()
		if err != nil || c.Response().StatusCode() >= fiber.StatusBadRequest {
			if rbErr := uow.Rollback(); rbErr != nil {
				middleware.Logger.ErrorContext(c.UserContext(), "rollback failed",
					slog.String("error", rbErr.Error()))
			}
			return err
		}

		if err := uow.Commit(c.UserContext()); err != nil {
			return respondError(c, models.NewInternalError(err))
		}
		return nil
	}
}
