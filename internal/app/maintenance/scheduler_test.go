package maintenance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/charlesng35/accounts/internal/cache"
	testutil "github.com/charlesng35/accounts/internal/database/testutil"
	"github.com/charlesng35/accounts/internal/models"
	"github.com/charlesng35/accounts/internal/services"
	"github.com/charlesng35/accounts/pkg/mail"
)

type stubPurger struct {
	calls int
	err   error
}

func (s *stubPurger) PurgeExpired(context.Context) (int64, error) {
	s.calls++
	return 2, s.err
}

func (s *stubPurger) Purge(context.Context) (int64, error) {
	s.calls++
	return 1, s.err
}

type stubSender struct {
	calls int
	err   error
}

func (s *stubSender) SendDue(context.Context) (int, error) {
	s.calls++
	return 0, s.err
}

func TestSchedulerRunOnceAggregatesErrors(t *testing.T) {
	tokens := &stubPurger{err: errors.New("tokens down")}
	cachePurger := &stubPurger{}
	sender := &stubSender{err: errors.New("smtp down")}

	s := NewScheduler(tokens, WithCachePurger(cachePurger), WithNotificationSender(sender))
	err := s.RunOnce(context.Background())
	require.Error(t, err)
	require.Len(t, multierr.Errors(err), 2)
	require.ErrorContains(t, err, "tokens down")
	require.ErrorContains(t, err, "smtp down")

	require.Equal(t, 1, tokens.calls)
	require.Equal(t, 1, cachePurger.calls)
	require.Equal(t, 1, sender.calls)
}

func TestSchedulerStartRegistersJobs(t *testing.T) {
	c := cron.New(cron.WithLogger(cron.DiscardLogger))
	s := NewScheduler(&stubPurger{},
		WithCron(c),
		WithNotificationSender(&stubSender{}),
		WithTokenSchedule("@every 1h"),
		WithNotificationSchedule("@every 10m"),
	)

	require.NoError(t, s.Start())
	t.Cleanup(func() { <-s.Stop().Done() })
	require.Len(t, c.Entries(), 2)
}

func TestSchedulerStartWithoutJobs(t *testing.T) {
	c := cron.New(cron.WithLogger(cron.DiscardLogger))
	s := NewScheduler(nil, WithCron(c))

	require.NoError(t, s.Start())
	require.Empty(t, c.Entries())
	require.NoError(t, s.RunOnce(context.Background()))
}

func TestSchedulerRejectsInvalidSchedule(t *testing.T) {
	s := NewScheduler(&stubPurger{}, WithTokenSchedule("not a schedule"))
	require.Error(t, s.Start())
}

func TestSchedulerRunOnceWithServices(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	now := time.Date(2024, 2, 10, 15, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	user := models.User{Email: "grace@example.com", FirstName: "Grace", Password: "x", IsActive: true}
	require.NoError(t, db.Create(&user).Error)

	used := now.Add(-time.Minute)
	require.NoError(t, db.Create(&models.PasswordResetToken{UserID: user.ID, TokenHash: "expired", ExpiresAt: now.Add(-time.Hour)}).Error)
	require.NoError(t, db.Create(&models.PasswordResetToken{UserID: user.ID, TokenHash: "used", ExpiresAt: now.Add(time.Hour), UsedAt: &used}).Error)
	require.NoError(t, db.Create(&models.PasswordResetToken{UserID: user.ID, TokenHash: "active", ExpiresAt: now.Add(time.Hour)}).Error)

	resets, err := services.NewPasswordResetService(db, nil, services.WithResetClock(clock))
	require.NoError(t, err)

	mailer := mail.NewMemoryMailer()
	notifier, err := services.NewNotificationService(db, mailer, services.WithNotificationClock(clock))
	require.NoError(t, err)

	due := now.Add(-time.Minute)
	_, err = notifier.Create(context.Background(), services.CreateNotificationInput{
		Subject:     "Maintenance window",
		Audience:    models.AudienceUser,
		UserID:      user.ID,
		ScheduledAt: &due,
		Blocks:      []services.NotificationBlockInput{{Title: "Tonight", Content: "Downtime from 22:00."}},
	})
	require.NoError(t, err)

	earlier := cache.NewDatabaseStore(db, cache.WithStoreClock(func() time.Time { return now.Add(-time.Hour) }))
	require.NoError(t, earlier.Set(context.Background(), "stale", []byte("v"), time.Minute))
	require.NoError(t, earlier.Set(context.Background(), "fresh", []byte("v"), 2*time.Hour))
	store := cache.NewDatabaseStore(db, cache.WithStoreClock(clock))

	s := NewScheduler(resets, WithCachePurger(store), WithNotificationSender(notifier))
	require.NoError(t, s.RunOnce(context.Background()))

	var tokens []models.PasswordResetToken
	require.NoError(t, db.Find(&tokens).Error)
	require.Len(t, tokens, 1)
	require.Equal(t, "active", tokens[0].TokenHash)

	var entries int64
	require.NoError(t, db.Model(&models.CacheEntry{}).Count(&entries).Error)
	require.Equal(t, int64(1), entries)

	require.Len(t, mailer.Messages(), 1)
	require.Equal(t, []string{"grace@example.com"}, mailer.Messages()[0].Bcc)
}
