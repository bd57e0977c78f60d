package middleware

import (
	"context"
	"strings"

	"chirp/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Fiber locals set by the auth gate.
const (
	LocalUser   = "user"
	LocalUserID = "userID"
)

// UserResolver maps a bearer token to the user it names.
type UserResolver interface {
	Resolve(ctx context.Context, token string) (*models.User, error)
}

// AuthRequired rejects requests without a valid "Authorization: Bearer" token
// and stores the resolved user in locals and the request context.
func AuthRequired(resolver UserResolver) fiber.Handler {
	return authenticate(resolver, false)
}

// WebSocketAuthRequired also accepts the token as a "token" query parameter,
// since browsers cannot set headers on a websocket upgrade.
func WebSocketAuthRequired(resolver UserResolver) fiber.Handler {
	return authenticate(resolver, true)
}

func authenticate(resolver UserResolver, allowQuery bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok && allowQuery {
			token = c.Query("token")
			ok = token != ""
		}
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthenticatedError("Not authenticated"))
		}

		user, err := resolver.Resolve(c.UserContext(), token)
		if err != nil {
			if models.IsCode(err, models.CodeUnauthenticated) {
				return models.RespondWithError(c, fiber.StatusUnauthorized, err)
			}
			return err
		}

		c.Locals(LocalUser, user)
		c.Locals(LocalUserID, user.ID)
		// Sync to UserContext for logging and downstream services
		c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, user.ID))

		return c.Next()
	}
}

// bearerToken extracts the credentials of a "Bearer <token>" header value.
// The scheme is case-insensitive.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// CurrentUser returns the user stored by AuthRequired.
func CurrentUser(c *fiber.Ctx) (*models.User, bool) {
	user, ok := c.Locals(LocalUser).(*models.User)
	return user, ok && user != nil
}
