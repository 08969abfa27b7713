// Package maintenance runs periodic housekeeping jobs on a cron schedule.
package maintenance

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/accounts/pkg/logger"
)

const (
	defaultTokenSpec        = "@hourly"
	defaultNotificationSpec = "@every 5m"
)

// TokenPurger removes expired or consumed password reset tokens.
type TokenPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// CachePurger removes expired cache entries.
type CachePurger interface {
	Purge(ctx context.Context) (int64, error)
}

// NotificationSender delivers notifications whose scheduled time has passed.
type NotificationSender interface {
	SendDue(ctx context.Context) (int, error)
}

// Scheduler coordinates background maintenance: purging reset tokens and cache rows, and
// sending scheduled notifications. A nil dependency skips its job.
type Scheduler struct {
	tokens        TokenPurger
	cache         CachePurger
	notifications NotificationSender
	cron          *cron.Cron
	log           *zap.Logger

	tokenSchedule        string
	notificationSchedule string
}

// Option customises the Scheduler.
type Option func(*Scheduler)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.cron = c
		}
	}
}

// WithTokenSchedule overrides the cron specification shared by token and cache purges.
func WithTokenSchedule(spec string) Option {
	return func(s *Scheduler) {
		if spec != "" {
			s.tokenSchedule = spec
		}
	}
}

// WithNotificationSchedule overrides the cron specification for scheduled notifications.
func WithNotificationSchedule(spec string) Option {
	return func(s *Scheduler) {
		if spec != "" {
			s.notificationSchedule = spec
		}
	}
}

// WithCachePurger enables purging of the database cache table.
func WithCachePurger(p CachePurger) Option {
	return func(s *Scheduler) {
		s.cache = p
	}
}

// WithNotificationSender enables delivery of scheduled notifications.
func WithNotificationSender(n NotificationSender) Option {
	return func(s *Scheduler) {
		s.notifications = n
	}
}

// NewScheduler constructs a Scheduler with default schedules.
func NewScheduler(tokens TokenPurger, opts ...Option) *Scheduler {
	s := &Scheduler{
		tokens:               tokens,
		tokenSchedule:        defaultTokenSpec,
		notificationSchedule: defaultNotificationSpec,
		log:                  logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.cron == nil {
		s.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return s
}

// Start registers the enabled jobs and launches the cron scheduler.
func (s *Scheduler) Start() error {
	if s.tokens == nil && s.cache == nil && s.notifications == nil {
		return nil
	}

	if s.tokens != nil || s.cache != nil {
		if _, err := s.cron.AddFunc(s.tokenSchedule, func() {
			if err := s.purge(context.Background()); err != nil {
				s.log.Warn("purge failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if s.notifications != nil {
		if _, err := s.cron.AddFunc(s.notificationSchedule, func() {
			if err := s.sendDue(context.Background()); err != nil {
				s.log.Warn("scheduled notification delivery failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	s.cron.Start()
	return nil
}

// Stop halts the underlying scheduler. The returned context is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	if s.cron == nil {
		return context.Background()
	}
	return s.cron.Stop()
}

// RunOnce executes every enabled job sequentially and returns the combined failures.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return multierr.Append(s.purge(ctx), s.sendDue(ctx))
}

func (s *Scheduler) purge(ctx context.Context) error {
	var errs error

	if s.tokens != nil {
		removed, err := s.tokens.PurgeExpired(ctx)
		if err != nil {
			errs = multierr.Append(errs, err)
		} else if removed > 0 {
			s.log.Info("purged password reset tokens", zap.Int64("count", removed))
		}
	}

	if s.cache != nil {
		removed, err := s.cache.Purge(ctx)
		if err != nil {
			errs = multierr.Append(errs, err)
		} else if removed > 0 {
			s.log.Debug("purged cache entries", zap.Int64("count", removed))
		}
	}

	return errs
}

func (s *Scheduler) sendDue(ctx context.Context) error {
	if s.notifications == nil {
		return nil
	}
	sent, err := s.notifications.SendDue(ctx)
	if sent > 0 {
		s.log.Info("sent scheduled notifications", zap.Int("count", sent))
	}
	return err
}
