package server

import (
	"chirp/internal/models"
	"chirp/internal/service"

	"github.com/gofiber/fiber/v2"
)

type voteRequest struct {
	PostID uint `json:"post_id"`
	Dir    *int `json:"dir"`
}

// Vote handles POST /vote
// @Summary Vote on a post
// @Description dir=1 adds the caller's vote, dir=0 removes it
// @Tags votes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body voteRequest true "Vote"
// @Success 200 {object} object{message=string}
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Router /vote [post]
func (s *Server) Vote(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return nil
	}

	var req voteRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, models.NewValidationError("Invalid request body"))
	}
	if req.Dir == nil {
		return respondError(c, models.NewValidationError("dir is required"))
	}

	message, err := s.voteService.Apply(c.UserContext(), user, service.VoteInput{
		PostID: req.PostID,
		Dir:    models.VoteDirection(*req.Dir),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": message})
}
