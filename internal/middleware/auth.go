package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/charlesng35/accounts/internal/auth"
	"github.com/charlesng35/accounts/internal/permissions"
	"github.com/charlesng35/accounts/pkg/errors"
	"github.com/charlesng35/accounts/pkg/response"
)

const (
	CtxClaimsKey = "authClaims"
	CtxUserIDKey = "userID"
	CtxActorKey  = "actor"
)

// ActorLoader resolves the account behind a validated access token.
// It returns (nil, nil) when the account no longer exists.
type ActorLoader interface {
	LoadActor(ctx context.Context, userID string) (*permissions.Actor, error)
}

// Authenticate identifies the caller from a Bearer access token. Requests without an
// Authorization header continue anonymously so public endpoints stay reachable; a token
// that is present but invalid is rejected with 401.
func Authenticate(jwt *iauth.JWTService, loader ActorLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := strings.TrimSpace(c.GetHeader("Authorization"))
		if authz == "" {
			c.Next()
			return
		}

		if len(authz) < 8 || !strings.EqualFold(authz[:7], "Bearer ") {
			rejectToken(c)
			return
		}

		claims, err := jwt.ValidateAccessToken(strings.TrimSpace(authz[7:]))
		if err != nil {
			rejectToken(c)
			return
		}

		actor, err := loader.LoadActor(c.Request.Context(), claims.UserID)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		if actor == nil {
			rejectToken(c)
			return
		}

		c.Set(CtxClaimsKey, claims)
		c.Set(CtxUserIDKey, claims.UserID)
		c.Set(CtxActorKey, actor)

		c.Next()
	}
}

// RequireAuth rejects anonymous requests with 401.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if ActorFromContext(c) == nil {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}
		c.Next()
	}
}

// ActorFromContext returns the authenticated actor, or nil for anonymous requests.
func ActorFromContext(c *gin.Context) *permissions.Actor {
	v, ok := c.Get(CtxActorKey)
	if !ok {
		return nil
	}
	actor, _ := v.(*permissions.Actor)
	return actor
}

func rejectToken(c *gin.Context) {
	c.Header("WWW-Authenticate", "Bearer")
	response.Error(c, errors.ErrTokenInvalid)
	c.Abort()
}
