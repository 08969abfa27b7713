package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/accounts/internal/handlers"
)

func registerPasswordResetRoutes(api *gin.RouterGroup, handler *handlers.PasswordResetHandler, limiter gin.HandlerFunc) {
	resets := api.Group("/password_reset", limiter)
	{
		handle(resets, http.MethodPost, "/", handler.Request)
		handle(resets, http.MethodPost, "/validate_token/", handler.ValidateToken)
		handle(resets, http.MethodPost, "/confirm/", handler.Confirm)
	}
}
