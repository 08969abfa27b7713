package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/accounts/internal/handlers"
	"github.com/charlesng35/accounts/internal/middleware"
	"github.com/charlesng35/accounts/internal/permissions"
)

func registerNotificationRoutes(api *gin.RouterGroup, handler *handlers.NotificationHandler) {
	notifications := api.Group("/notifications", middleware.RequireUserAccess(permissions.OpManageNotifications, ""))
	{
		handle(notifications, http.MethodPost, "/", handler.Create)
		handle(notifications, http.MethodGet, "/", handler.List)
		handle(notifications, http.MethodGet, "/:id/", handler.Get)
		handle(notifications, http.MethodPost, "/:id/send/", handler.Send)
	}
}
