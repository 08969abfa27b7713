package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/accounts/internal/models"
	"github.com/charlesng35/accounts/internal/notifications"
	"github.com/charlesng35/accounts/pkg/crypto"
)

type resetFixture struct {
	svc   *PasswordResetService
	queue *recordingQueue
	now   *time.Time
}

func newResetFixture(t *testing.T) resetFixture {
	t.Helper()
	db := openTestDB(t)
	queue := &recordingQueue{}
	now := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
	svc, err := NewPasswordResetService(db, queue,
		WithResetTokenTTL(time.Hour),
		WithResetBaseURL("https://app.example.com/"),
		WithResetClock(func() time.Time { return now }),
	)
	require.NoError(t, err)
	return resetFixture{svc: svc, queue: queue, now: &now}
}

func TestPasswordResetFlow(t *testing.T) {
	fx := newResetFixture(t)
	ctx := context.Background()
	user := createUser(t, fx.svc.db, userFixture{Email: "reset@example.com", FirstName: "Rita", Verified: true})

	token, err := fx.svc.Request(ctx, "RESET@example.com", ResetRequestMeta{IPAddress: "10.0.0.1", UserAgent: "curl/8"})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	require.Len(t, fx.queue.jobs, 1)
	require.Equal(t, notifications.KindPasswordReset, fx.queue.jobs[0].Kind)
	require.Contains(t, fx.queue.jobs[0].Message.Body, token)
	require.Contains(t, fx.queue.jobs[0].Message.Body, "https://app.example.com/reset-password?token="+token)

	var stored models.PasswordResetToken
	require.NoError(t, fx.svc.db.First(&stored, "user_id = ?", user.ID).Error)
	require.Equal(t, crypto.HashToken(token), stored.TokenHash)
	require.Equal(t, "10.0.0.1", stored.IPAddress)

	require.NoError(t, fx.svc.Validate(ctx, token))

	err = fx.svc.Confirm(ctx, token, "short")
	requireFieldError(t, err, "password", "This password is too short. It must contain at least 8 characters.")

	require.NoError(t, fx.svc.Confirm(ctx, token, "Fresh-Morning-Tide-7"))
	require.Len(t, fx.queue.jobs, 2)
	require.Equal(t, notifications.KindPasswordChanged, fx.queue.jobs[1].Kind)

	var reloaded models.User
	require.NoError(t, fx.svc.db.First(&reloaded, "id = ?", user.ID).Error)
	require.True(t, crypto.VerifyPassword(reloaded.Password, "Fresh-Morning-Tide-7"))

	require.ErrorIs(t, fx.svc.Validate(ctx, token), ErrResetTokenInvalid)
	require.ErrorIs(t, fx.svc.Confirm(ctx, token, "Another-Fresh-Tide-8"), ErrResetTokenInvalid)
}

func TestPasswordResetUnknownEmailIsSilent(t *testing.T) {
	fx := newResetFixture(t)

	token, err := fx.svc.Request(context.Background(), "nobody@example.com", ResetRequestMeta{})
	require.NoError(t, err)
	require.Empty(t, token)
	require.Empty(t, fx.queue.jobs)
}

func TestPasswordResetNewRequestReplacesOldToken(t *testing.T) {
	fx := newResetFixture(t)
	ctx := context.Background()
	createUser(t, fx.svc.db, userFixture{Email: "reset@example.com"})

	first, err := fx.svc.Request(ctx, "reset@example.com", ResetRequestMeta{})
	require.NoError(t, err)
	second, err := fx.svc.Request(ctx, "reset@example.com", ResetRequestMeta{})
	require.NoError(t, err)

	require.ErrorIs(t, fx.svc.Validate(ctx, first), ErrResetTokenInvalid)
	require.NoError(t, fx.svc.Validate(ctx, second))
}

func TestPasswordResetExpiryAndPurge(t *testing.T) {
	fx := newResetFixture(t)
	ctx := context.Background()
	createUser(t, fx.svc.db, userFixture{Email: "reset@example.com"})

	token, err := fx.svc.Request(ctx, "reset@example.com", ResetRequestMeta{})
	require.NoError(t, err)

	*fx.now = fx.now.Add(2 * time.Hour)
	require.ErrorIs(t, fx.svc.Validate(ctx, token), ErrResetTokenInvalid)

	purged, err := fx.svc.PurgeExpired(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, purged)

	require.ErrorIs(t, fx.svc.Validate(ctx, ""), ErrResetTokenInvalid)
}
