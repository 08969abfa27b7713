package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/accounts/internal/middleware"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

func actorID(c *gin.Context) string {
	if actor := middleware.ActorFromContext(c); actor != nil {
		return actor.UserID
	}
	return ""
}
