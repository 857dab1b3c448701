package middleware

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"

	"lingomate/auth"
	"lingomate/models"
	"lingomate/utils"
)

const userKey = "user"

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// AuthMiddleware admits requests carrying a valid session cookie for an
// existing user and stores that user in the context.
func AuthMiddleware(authn Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(auth.SessionCookieName)
		if err != nil || token == "" {
			utils.Unauthorized(c, "Unauthorized - Token not present.")
			return
		}

		user, err := authn.Authenticate(c.Request.Context(), token)
		switch {
		case errors.Is(err, auth.ErrInvalidToken):
			utils.Unauthorized(c, "Unauthorized - Invalid token.")
			return
		case errors.Is(err, models.ErrNotFound):
			utils.Unauthorized(c, "Unauthorized - User not found.")
			return
		case err != nil:
			slog.ErrorContext(c.Request.Context(), "session lookup failed", "error", err)
			utils.InternalError(c)
			return
		}

		c.Set(userKey, user)
		c.Next()
	}
}

// CurrentUser returns the user stored by AuthMiddleware.
func CurrentUser(c *gin.Context) *models.User {
	u, _ := c.MustGet(userKey).(*models.User)
	return u
}
