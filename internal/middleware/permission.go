package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/accounts/internal/permissions"
	"github.com/charlesng35/accounts/pkg/errors"
	"github.com/charlesng35/accounts/pkg/metrics"
	"github.com/charlesng35/accounts/pkg/response"
)

// RequireUserAccess evaluates the access policy for op against the user identified by the
// targetParam path parameter. An empty targetParam is used for collection operations.
func RequireUserAccess(op permissions.Operation, targetParam string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var target string
		if targetParam != "" {
			target = c.Param(targetParam)
		}

		decision := permissions.Decide(ActorFromContext(c), op, target)
		metrics.PermissionChecks.WithLabelValues(string(op), decision.String()).Inc()

		switch decision {
		case permissions.Allow:
			c.Next()
		case permissions.DenyUnauthenticated:
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
		default:
			response.Error(c, errors.ErrForbidden)
			c.Abort()
		}
	}
}
