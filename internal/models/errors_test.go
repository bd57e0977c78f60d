package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_StatusCode(t *testing.T) {
	tests := []struct {
		err    *AppError
		status int
	}{
		{NewUnauthenticatedError("Could not validate credentials"), fiber.StatusUnauthorized},
		{NewInvalidCredentialsError(), fiber.StatusForbidden},
		{NewForbiddenError("Not authorized to perform requested action"), fiber.StatusForbidden},
		{NewNotFoundError("Vote does not exist"), fiber.StatusNotFound},
		{NewConflictError("Email already registered"), fiber.StatusConflict},
		{NewValidationError("title is required"), fiber.StatusUnprocessableEntity},
		{NewServiceUnavailableError("Database unreachable", nil), fiber.StatusServiceUnavailable},
		{NewInternalError(errors.New("boom")), fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Code, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.StatusCode())
		})
	}
}

func TestAppError_UnwrapAndIsCode(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("create user: %w", NewInternalError(cause))

	assert.ErrorIs(t, err, cause)
	assert.True(t, IsCode(err, CodeInternal))
	assert.False(t, IsCode(err, CodeNotFound))
	assert.False(t, IsCode(cause, CodeInternal))
}

func TestRespondWithError(t *testing.T) {
	app := fiber.New()
	app.Get("/unauthenticated", func(c *fiber.Ctx) error {
		return RespondWithError(c, fiber.StatusUnauthorized, NewUnauthenticatedError("Not authenticated"))
	})
	app.Get("/internal", func(c *fiber.Ctx) error {
		return RespondWithError(c, fiber.StatusInternalServerError, NewInternalError(errors.New("secret dsn")))
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/unauthenticated", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Bearer", resp.Header.Get(fiber.HeaderWWWAuthenticate))

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Not authenticated", body.Detail)
	assert.Equal(t, CodeUnauthenticated, body.Code)

	resp, err = app.Test(httptest.NewRequest("GET", "/internal", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Empty(t, resp.Header.Get(fiber.HeaderWWWAuthenticate))
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret dsn")
}
