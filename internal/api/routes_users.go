package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/accounts/internal/handlers"
	"github.com/charlesng35/accounts/internal/middleware"
	"github.com/charlesng35/accounts/internal/permissions"
)

func registerUserRoutes(api *gin.RouterGroup, handler *handlers.UserHandler, limiter gin.HandlerFunc) {
	users := api.Group("/users")
	{
		handle(users, http.MethodPost, "/signup/", limiter, handler.Signup)
		handle(users, http.MethodGet, "/", middleware.RequireUserAccess(permissions.OpList, ""), handler.List)
		handle(users, http.MethodGet, "/:id/", middleware.RequireUserAccess(permissions.OpRetrieve, "id"), handler.Get)
		handle(users, http.MethodPut, "/:id/", middleware.RequireUserAccess(permissions.OpUpdate, "id"), handler.Update)
		handle(users, http.MethodPatch, "/:id/", middleware.RequireUserAccess(permissions.OpUpdate, "id"), handler.Update)
		handle(users, http.MethodDelete, "/:id/", middleware.RequireUserAccess(permissions.OpDelete, "id"), handler.Delete)
		handle(users, http.MethodGet, "/:id/verify/", handler.Verify)
		handle(users, http.MethodPut, "/:id/profile/", middleware.RequireUserAccess(permissions.OpUpdate, "id"), handler.UpdateProfile)
	}
}
