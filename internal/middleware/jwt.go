package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/asset-desk-api/internal/models"
	appErrors "github.com/noah-isme/asset-desk-api/pkg/errors"
	"github.com/noah-isme/asset-desk-api/pkg/logger"
	"github.com/noah-isme/asset-desk-api/pkg/response"
)

// ContextUserKey is the gin context key storing the authenticated *models.Actor.
const ContextUserKey = "currentUser"

// Authenticator resolves a bearer token to the calling actor, provisioning
// the user row on first sight.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.Actor, *models.User, error)
}

// JWT protects routes by requiring a valid access token.
func JWT(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "missing or malformed bearer token"))
			c.Abort()
			return
		}

		actor, _, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, actor)
		c.Set(logger.ActorIDKey, actor.UserID)
		c.Next()
	}
}

// ActorFrom returns the actor stored by JWT, or nil.
func ActorFrom(c *gin.Context) *models.Actor {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil
	}
	actor, _ := value.(*models.Actor)
	return actor
}

func bearerToken(header string) (string, bool) {
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
