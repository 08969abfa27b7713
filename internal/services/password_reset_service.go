package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/accounts/internal/models"
	"github.com/charlesng35/accounts/internal/notifications"
	"github.com/charlesng35/accounts/pkg/crypto"
	apperrors "github.com/charlesng35/accounts/pkg/errors"
	"github.com/charlesng35/accounts/pkg/logger"
)

const (
	defaultResetTokenTTL   = 24 * time.Hour
	defaultResetTokenBytes = 32
)

// ErrResetTokenInvalid covers unknown, used and expired reset tokens alike.
var ErrResetTokenInvalid = apperrors.New("RESET_TOKEN_INVALID", "The token is invalid or has expired", http.StatusNotFound)

// ResetRequestMeta records where a reset request came from.
type ResetRequestMeta struct {
	IPAddress string
	UserAgent string
}

// PasswordResetOption customises the PasswordResetService.
type PasswordResetOption func(*PasswordResetService)

// WithResetTokenTTL overrides the token lifetime.
func WithResetTokenTTL(d time.Duration) PasswordResetOption {
	return func(s *PasswordResetService) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// WithResetBaseURL sets the public URL that reset emails link to.
func WithResetBaseURL(base string) PasswordResetOption {
	return func(s *PasswordResetService) {
		s.baseURL = strings.TrimRight(strings.TrimSpace(base), "/")
	}
}

// WithResetClock injects a custom time source.
func WithResetClock(clock func() time.Time) PasswordResetOption {
	return func(s *PasswordResetService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// PasswordResetService issues and redeems one-time password reset tokens. Only the sha256
// digest of a token is stored.
type PasswordResetService struct {
	db      *gorm.DB
	queue   MailQueue
	ttl     time.Duration
	baseURL string
	now     func() time.Time
}

// NewPasswordResetService constructs a PasswordResetService.
func NewPasswordResetService(db *gorm.DB, queue MailQueue, opts ...PasswordResetOption) (*PasswordResetService, error) {
	if db == nil {
		return nil, errors.New("password reset service: db is required")
	}
	svc := &PasswordResetService{
		db:    db,
		queue: queue,
		ttl:   defaultResetTokenTTL,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Request creates a reset token for an active account with the given email and enqueues it.
// Unknown emails succeed silently. The raw token is returned for callers that need it (tests,
// admin tooling); it is empty when no token was issued.
func (s *PasswordResetService) Request(ctx context.Context, email string, meta ResetRequestMeta) (string, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).First(&user, "email = ? AND is_active = ?", models.NormalizeEmail(email), true).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("password reset service: load user: %w", err)
	}

	token, err := crypto.GenerateToken(defaultResetTokenBytes)
	if err != nil {
		return "", fmt.Errorf("password reset service: generate token: %w", err)
	}

	record := models.PasswordResetToken{
		UserID:    user.ID,
		TokenHash: crypto.HashToken(token),
		ExpiresAt: s.now().Add(s.ttl),
		IPAddress: truncate(meta.IPAddress, 64),
		UserAgent: truncate(meta.UserAgent, 255),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND used_at IS NULL", user.ID).Delete(&models.PasswordResetToken{}).Error; err != nil {
			return fmt.Errorf("password reset service: remove previous tokens: %w", err)
		}
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("password reset service: create token: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	s.enqueue(notifications.KindPasswordReset, &user, notifications.PasswordResetContent(user.FirstName, token, s.link(token)))
	return token, nil
}

// Validate reports whether token may still be redeemed.
func (s *PasswordResetService) Validate(ctx context.Context, token string) error {
	_, err := s.lookup(s.db.WithContext(ensureContext(ctx)), token)
	return err
}

// Confirm sets a new password using token and marks the token used.
func (s *PasswordResetService) Confirm(ctx context.Context, token, password string) error {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record, err := s.lookup(tx, token)
		if err != nil {
			return err
		}

		if err := tx.First(&user, "id = ?", record.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrResetTokenInvalid
			}
			return fmt.Errorf("password reset service: load user: %w", err)
		}

		if problems := ValidatePasswordStrength(password, passwordAttributes(&user)); len(problems) > 0 {
			return apperrors.NewValidation(apperrors.FieldErrors{"password": problems})
		}

		hashed, err := hashPassword("password", password)
		if err != nil {
			return fmt.Errorf("password reset service: hash password: %w", err)
		}
		if err := tx.Model(&user).Update("password", hashed).Error; err != nil {
			return fmt.Errorf("password reset service: update password: %w", err)
		}

		used := tx.Model(&models.PasswordResetToken{}).
			Where("id = ? AND used_at IS NULL", record.ID).
			Update("used_at", s.now())
		if used.Error != nil {
			return fmt.Errorf("password reset service: mark used: %w", used.Error)
		}
		if used.RowsAffected == 0 {
			return ErrResetTokenInvalid
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.WithModule("password_reset").Info("password reset", zap.String("user_id", user.ID))
	s.enqueue(notifications.KindPasswordChanged, &user, notifications.PasswordChangedContent(user.FirstName))
	return nil
}

// PurgeExpired deletes tokens that expired or were used before now and returns how many went.
func (s *PasswordResetService) PurgeExpired(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)
	result := s.db.WithContext(ctx).
		Where("expires_at < ? OR used_at IS NOT NULL", s.now()).
		Delete(&models.PasswordResetToken{})
	if result.Error != nil {
		return 0, fmt.Errorf("password reset service: purge: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *PasswordResetService) lookup(db *gorm.DB, token string) (*models.PasswordResetToken, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrResetTokenInvalid
	}

	var record models.PasswordResetToken
	err := db.First(&record, "token_hash = ?", crypto.HashToken(token)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrResetTokenInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("password reset service: find token: %w", err)
	}
	if !record.Usable(s.now()) {
		return nil, ErrResetTokenInvalid
	}
	return &record, nil
}

func (s *PasswordResetService) link(token string) string {
	if s.baseURL == "" {
		return ""
	}
	return s.baseURL + "/reset-password?token=" + token
}

func (s *PasswordResetService) enqueue(kind string, user *models.User, content notifications.Content) {
	if s.queue == nil {
		return
	}
	log := logger.WithModule("password_reset")
	msg, err := notifications.Compose(content, []string{user.Email}, nil)
	if err != nil {
		log.Error("compose email", zap.String("kind", kind), zap.Error(err))
		return
	}
	if err := s.queue.Enqueue(notifications.Job{Kind: kind, Message: msg}); err != nil {
		log.Warn("email not queued", zap.String("kind", kind), zap.String("user_id", user.ID), zap.Error(err))
	}
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit]
}
