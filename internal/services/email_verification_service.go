package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	iauth "github.com/charlesng35/accounts/internal/auth"
	"github.com/charlesng35/accounts/internal/models"
	"github.com/charlesng35/accounts/internal/notifications"
	apperrors "github.com/charlesng35/accounts/pkg/errors"
	"github.com/charlesng35/accounts/pkg/logger"
	"github.com/charlesng35/accounts/pkg/metrics"
)

// ErrVerificationTokenInvalid is returned when the token does not match the user id.
var ErrVerificationTokenInvalid = apperrors.New("VERIFICATION_TOKEN_INVALID", "Invalid verification token", http.StatusBadRequest)

// MailQueue accepts outbound emails for asynchronous delivery.
type MailQueue interface {
	Enqueue(job notifications.Job) error
}

// VerificationOption customises the EmailVerificationService.
type VerificationOption func(*EmailVerificationService)

// WithVerificationBaseURL sets the public base URL used in verification links.
func WithVerificationBaseURL(base string) VerificationOption {
	return func(s *EmailVerificationService) {
		s.baseURL = strings.TrimRight(strings.TrimSpace(base), "/")
	}
}

// EmailVerificationService issues verification links and applies verification.
type EmailVerificationService struct {
	db      *gorm.DB
	signer  *iauth.VerificationSigner
	queue   MailQueue
	baseURL string
}

// NewEmailVerificationService constructs a verification service with the provided dependencies.
func NewEmailVerificationService(db *gorm.DB, signer *iauth.VerificationSigner, queue MailQueue, opts ...VerificationOption) (*EmailVerificationService, error) {
	if db == nil {
		return nil, errors.New("email verification service: db is required")
	}
	if signer == nil {
		return nil, errors.New("email verification service: signer is required")
	}

	service := &EmailVerificationService{
		db:     db,
		signer: signer,
		queue:  queue,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Link returns the verification URL for userID.
func (s *EmailVerificationService) Link(userID string) string {
	path := fmt.Sprintf("/api/users/%s/verify/?token=%s", url.PathEscape(userID), url.QueryEscape(s.signer.Token(userID)))
	return s.baseURL + path
}

// Send enqueues the verification email for user.
func (s *EmailVerificationService) Send(ctx context.Context, user *models.User) error {
	if s.queue == nil {
		return nil
	}

	content := notifications.VerificationContent(user.FirstName, s.Link(user.ID), s.signer.Token(user.ID))
	msg, err := notifications.Compose(content, []string{user.Email}, nil)
	if err != nil {
		return fmt.Errorf("email verification service: compose: %w", err)
	}
	if err := s.queue.Enqueue(notifications.Job{Kind: notifications.KindVerification, Message: msg}); err != nil {
		return fmt.Errorf("email verification service: enqueue: %w", err)
	}
	return nil
}

// Verify checks token for userID and, in one transaction, marks the user verified and creates
// its profile when missing. Applying a valid token again is a no-op.
func (s *EmailVerificationService) Verify(ctx context.Context, userID, token string) (*models.User, error) {
	ctx = ensureContext(ctx)

	if err := s.signer.Verify(userID, token); err != nil {
		metrics.Verifications.WithLabelValues("invalid").Inc()
		return nil, ErrVerificationTokenInvalid
	}

	var (
		user            models.User
		alreadyVerified bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("email verification service: load user: %w", err)
		}

		alreadyVerified = user.IsVerified
		if !user.IsVerified {
			if err := tx.Model(&user).Update("is_verified", true).Error; err != nil {
				return fmt.Errorf("email verification service: mark verified: %w", err)
			}
		}

		profile := models.Profile{UserID: user.ID}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).Create(&profile).Error; err != nil {
			return fmt.Errorf("email verification service: create profile: %w", err)
		}

		return tx.Preload("Profile").First(&user, "id = ?", userID).Error
	})
	if err != nil {
		return nil, err
	}

	if alreadyVerified {
		metrics.Verifications.WithLabelValues("already_verified").Inc()
	} else {
		metrics.Verifications.WithLabelValues("verified").Inc()
		logger.WithModule("users").Info("user verified", zap.String("user_id", user.ID))
	}

	return &user, nil
}
