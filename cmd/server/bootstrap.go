package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/accounts/internal/api"
	"github.com/charlesng35/accounts/internal/app"
	"github.com/charlesng35/accounts/internal/app/maintenance"
	iauth "github.com/charlesng35/accounts/internal/auth"
	"github.com/charlesng35/accounts/internal/cache"
	"github.com/charlesng35/accounts/internal/database"
	"github.com/charlesng35/accounts/internal/middleware"
	"github.com/charlesng35/accounts/internal/monitoring"
	"github.com/charlesng35/accounts/internal/notifications"
	"github.com/charlesng35/accounts/pkg/logger"
	"github.com/charlesng35/accounts/pkg/mail"
)

const dispatcherDrainTimeout = 10 * time.Second

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB         *gorm.DB
	Redis      *cache.RedisStore
	Dispatcher *notifications.Dispatcher
	Scheduler  *maintenance.Scheduler
	Router     *gin.Engine
}

// bootstrapRuntime initialises the database, cache, mail delivery, services, and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	// enable gin debug mod
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	dbStore := cache.NewDatabaseStore(stack.DB)

	if cfg.Cache.Redis.Enabled {
		if stack.Redis, err = cache.NewRedisStore(ctx, cfg.Cache.RedisClientConfig()); err != nil {
			log.Warn("redis unavailable; falling back to database-backed rate limiting", zap.Error(err))
			stack.Redis = nil
		} else {
			log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
		}
	}

	var rateStore middleware.RateStore
	if stack.Redis != nil {
		rateStore = middleware.NewCacheRateStore(stack.Redis)
	} else {
		rateStore = middleware.NewCacheRateStore(dbStore)
	}

	mailer, err := newMailer(cfg, log)
	if err != nil {
		return nil, err
	}
	stack.Dispatcher = notifications.NewDispatcher(mailer, cfg.Email.DispatcherOptions()...)

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	svc, err := api.NewServices(stack.DB, jwtSvc, cfg, mailer, stack.Dispatcher)
	if err != nil {
		return nil, fmt.Errorf("initialise services: %w", err)
	}

	stack.Scheduler = maintenance.NewScheduler(svc.PasswordReset,
		maintenance.WithCachePurger(dbStore),
		maintenance.WithNotificationSender(svc.Notifications),
		maintenance.WithTokenSchedule(cfg.Maintenance.TokenSchedule),
		maintenance.WithNotificationSchedule(cfg.Maintenance.NotificationSchedule),
	)
	if err := stack.Scheduler.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	var checks []monitoring.Check
	if cfg.Cache.Redis.Enabled {
		var pinger monitoring.Pinger
		if stack.Redis != nil {
			pinger = stack.Redis
		}
		checks = append(checks, monitoring.CacheCheck("redis", pinger, 0))
	}

	stack.Router, err = api.NewRouter(stack.DB, jwtSvc, cfg, svc, rateStore, checks...)
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown stops background jobs, drains queued mail, and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Scheduler != nil {
		<-s.Scheduler.Stop().Done()
	}

	if s.Dispatcher != nil {
		drainCtx, cancel := context.WithTimeout(ctx, dispatcherDrainTimeout)
		if err := s.Dispatcher.Close(drainCtx); err != nil {
			log.Warn("mail dispatcher shutdown", zap.Error(err))
		}
		cancel()
	}

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Warn("redis shutdown", zap.Error(err))
		}
	}

	if s.DB != nil {
		closeDatabase(s.DB, log)
	}
}

// newMailer builds the SMTP transport. With SMTP disabled every send fails with
// mail.ErrSMTPDisabled; lifecycle mails are then counted as disabled and dropped.
func newMailer(cfg *app.Config, log *zap.Logger) (mail.Mailer, error) {
	if !cfg.Email.SMTP.Enabled {
		log.Warn("smtp disabled; outbound email will not be delivered")
	}
	mailer, err := mail.NewSMTPMailer(cfg.Email.SMTPSettings())
	if err != nil {
		return nil, fmt.Errorf("initialise smtp mailer: %w", err)
	}
	return mailer, nil
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.ConnectionConfig()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(db, cfg.Auth.AdminSeed()); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

	return db, nil
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
