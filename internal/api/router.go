package api

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/charlesng35/accounts/internal/app"
	iauth "github.com/charlesng35/accounts/internal/auth"
	"github.com/charlesng35/accounts/internal/handlers"
	"github.com/charlesng35/accounts/internal/middleware"
	"github.com/charlesng35/accounts/internal/monitoring"
)

// NewRouter builds the Gin engine, wires middleware and registers every route.
// rateStore may be nil, which disables rate limiting on the public endpoints. The database
// probe is always part of /health; checks adds further probes such as the redis cache.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, cfg *app.Config, svc *Services, rateStore middleware.RateStore, checks ...monitoring.Check) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if err := svc.validate(); err != nil {
		return nil, err
	}

	r := gin.New()
	r.RedirectTrailingSlash = false
	r.HandleMethodNotAllowed = true

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.Authenticate(jwt, svc.Users))

	limiter := func(c *gin.Context) { c.Next() }
	if rateStore != nil && cfg.RateLimit.Requests > 0 && cfg.RateLimit.Window > 0 {
		limiter = middleware.RateLimit(rateStore, cfg.RateLimit.Requests, cfg.RateLimit.Window)
	}

	health := monitoring.NewHealthManager(monitoring.DatabaseCheck(db, 0))
	for _, check := range checks {
		health.Register(check)
	}
	registerHealthRoutes(r, health)

	api := r.Group("/api")
	registerUserRoutes(api, handlers.NewUserHandler(svc.Users, svc.Verification), limiter)
	registerAuthRoutes(api, handlers.NewAuthHandler(svc.Auth), limiter)
	registerPasswordResetRoutes(api, handlers.NewPasswordResetHandler(svc.PasswordReset), limiter)
	registerNotificationRoutes(api, handlers.NewNotificationHandler(svc.Notifications))

	r.NoRoute(middleware.NotFoundHandler)
	r.NoMethod(middleware.MethodNotAllowedHandler)

	return r, nil
}

// handle registers path with its trailing slash and without it. Gin would otherwise redirect
// the missing-slash form, which breaks POST bodies.
func handle(router gin.IRoutes, method, path string, chain ...gin.HandlerFunc) {
	router.Handle(method, path, chain...)
	if trimmed := strings.TrimSuffix(path, "/"); trimmed != path {
		router.Handle(method, trimmed, chain...)
	}
}
