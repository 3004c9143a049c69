package middleware

import (
	"context"
	"errors"
	"net/http"

	"guestlist-backend/models"
	"guestlist-backend/services"
	"guestlist-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const userKey = "currentUser"

// Authenticator resolves credentials to a staff user.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
}

// BasicAuth requires HTTP Basic credentials of a staff account and stores the
// user on the context.
func BasicAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		email, password, ok := c.Request.BasicAuth()
		if !ok {
			c.Header("WWW-Authenticate", `Basic realm="guestlist"`)
			utils.JSONFailure(c, http.StatusUnauthorized, "unauthenticated", "Sign in required", nil)
			c.Abort()
			return
		}
		user, err := auth.Authenticate(c.Request.Context(), email, password)
		if err != nil {
			if !errors.Is(err, services.ErrInvalidCredentials) {
				log.Error().Err(err).Msg("authentication failed")
				utils.JSONFailure(c, http.StatusInternalServerError, "storage_error", "Could not verify credentials", nil)
				c.Abort()
				return
			}
			c.Header("WWW-Authenticate", `Basic realm="guestlist"`)
			utils.JSONFailure(c, http.StatusUnauthorized, "unauthenticated", "Invalid credentials", nil)
			c.Abort()
			return
		}
		c.Set(userKey, user)
		c.Next()
	}
}

// RequireCapability rejects users whose role lacks cap.
func RequireCapability(cap models.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || !user.Role.Can(cap) {
			utils.JSONFailure(c, http.StatusForbidden, services.ErrUnauthorized.Error(), "You are not allowed to do this", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user or nil.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}

// SetCurrentUser is used by tests to skip BasicAuth.
func SetCurrentUser(user *models.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(userKey, user)
		c.Next()
	}
}
