package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/accounts/internal/handlers"
)

func registerAuthRoutes(api *gin.RouterGroup, handler *handlers.AuthHandler, limiter gin.HandlerFunc) {
	handle(api, http.MethodPost, "/users/login/", limiter, handler.Login)
	handle(api, http.MethodPost, "/token/refresh/", limiter, handler.Refresh)
}
