package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"chirp/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) Resolve(ctx context.Context, token string) (*models.User, error) {
	args := m.Called(ctx, token)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func newAuthApp(handler fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return models.RespondWithError(c, fiber.StatusInternalServerError, err)
		},
	})
	app.Get("/protected", handler, func(c *fiber.Ctx) error {
		user, ok := CurrentUser(c)
		if !ok {
			return c.SendStatus(fiber.StatusTeapot)
		}
		ctxUserID, _ := c.UserContext().Value(UserIDKey).(uint)
		return c.JSON(fiber.Map{
			"id":         user.ID,
			"local_id":   c.Locals(LocalUserID),
			"ctx_userid": ctxUserID,
		})
	})
	return app
}

func decodeDetail(t *testing.T, body io.Reader) string {
	t.Helper()
	var resp models.ErrorResponse
	require.NoError(t, json.NewDecoder(body).Decode(&resp))
	return resp.Detail
}

func TestAuthRequired(t *testing.T) {
	resolver := &mockResolver{}
	resolver.On("Resolve", mock.Anything, "good").Return(&models.User{ID: 7}, nil)
	resolver.On("Resolve", mock.Anything, "bad").
		Return(nil, models.NewUnauthenticatedError("Could not validate credentials"))
	resolver.On("Resolve", mock.Anything, "orphan").
		Return(nil, models.NewUnauthenticatedError("User not found"))
	resolver.On("Resolve", mock.Anything, "broken").
		Return(nil, models.NewInternalError(errors.New("db down")))

	app := newAuthApp(AuthRequired(resolver))

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantDetail string
	}{
		{"missing header", "", fiber.StatusUnauthorized, "Not authenticated"},
		{"wrong scheme", "Basic Zm9vOmJhcg==", fiber.StatusUnauthorized, "Not authenticated"},
		{"empty bearer", "Bearer ", fiber.StatusUnauthorized, "Not authenticated"},
		{"invalid token", "Bearer bad", fiber.StatusUnauthorized, "Could not validate credentials"},
		{"unknown user", "Bearer orphan", fiber.StatusUnauthorized, "User not found"},
		{"store failure", "Bearer broken", fiber.StatusInternalServerError, ""},
		{"valid token", "Bearer good", fiber.StatusOK, ""},
		{"lowercase scheme", "bearer good", fiber.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/protected", nil)
			if tt.header != "" {
				req.Header.Set(fiber.HeaderAuthorization, tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			if tt.wantStatus == fiber.StatusUnauthorized {
				assert.Equal(t, "Bearer", resp.Header.Get(fiber.HeaderWWWAuthenticate))
				assert.Equal(t, tt.wantDetail, decodeDetail(t, resp.Body))
			}
			if tt.wantStatus == fiber.StatusOK {
				var body map[string]any
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.EqualValues(t, 7, body["id"])
				assert.EqualValues(t, 7, body["local_id"])
				assert.EqualValues(t, 7, body["ctx_userid"])
			}
		})
	}
}

func TestAuthRequired_IgnoresQueryToken(t *testing.T) {
	resolver := &mockResolver{}
	app := newAuthApp(AuthRequired(resolver))

	resp, err := app.Test(httptest.NewRequest("GET", "/protected?token=good", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	resolver.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
}

func TestWebSocketAuthRequired_AcceptsQueryToken(t *testing.T) {
	resolver := &mockResolver{}
	resolver.On("Resolve", mock.Anything, "good").Return(&models.User{ID: 3}, nil)
	app := newAuthApp(WebSocketAuthRequired(resolver))

	resp, err := app.Test(httptest.NewRequest("GET", "/protected?token=good", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	resolver.AssertExpectations(t)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"BEARER abc", "abc", true},
		{"  Bearer   abc  ", "abc", true},
		{"Bearer", "", false},
		{"Token abc", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		token, ok := bearerToken(tt.header)
		assert.Equal(t, tt.ok, ok, tt.header)
		assert.Equal(t, tt.token, token, tt.header)
	}
}
