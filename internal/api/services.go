package api

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/accounts/internal/app"
	iauth "github.com/charlesng35/accounts/internal/auth"
	"github.com/charlesng35/accounts/internal/services"
	"github.com/charlesng35/accounts/pkg/mail"
)

// Services bundles the domain services exposed over HTTP.
type Services struct {
	Users         *services.UserService
	Auth          *services.AuthService
	Verification  *services.EmailVerificationService
	PasswordReset *services.PasswordResetService
	Notifications *services.NotificationService
}

// NewServices wires the domain services from configuration. Lifecycle mails go through queue;
// notifications are sent synchronously through mailer.
func NewServices(db *gorm.DB, jwt *iauth.JWTService, cfg *app.Config, mailer mail.Mailer, queue services.MailQueue) (*Services, error) {
	if cfg == nil {
		return nil, errors.New("config must be provided")
	}

	signer, err := iauth.NewVerificationSigner(cfg.Auth.VerificationSecret())
	if err != nil {
		return nil, fmt.Errorf("initialise verification signer: %w", err)
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.Server.BaseURL), "/")

	verification, err := services.NewEmailVerificationService(db, signer, queue, services.WithVerificationBaseURL(baseURL))
	if err != nil {
		return nil, err
	}

	users, err := services.NewUserService(db, verification)
	if err != nil {
		return nil, err
	}

	auth, err := services.NewAuthService(db, jwt)
	if err != nil {
		return nil, err
	}

	resets, err := services.NewPasswordResetService(db, queue,
		services.WithResetTokenTTL(cfg.Auth.ResetTokenTTL()),
		services.WithResetBaseURL(baseURL),
	)
	if err != nil {
		return nil, err
	}

	notifier, err := services.NewNotificationService(db, mailer)
	if err != nil {
		return nil, err
	}

	return &Services{
		Users:         users,
		Auth:          auth,
		Verification:  verification,
		PasswordReset: resets,
		Notifications: notifier,
	}, nil
}

func (s *Services) validate() error {
	switch {
	case s == nil:
		return errors.New("services must be provided")
	case s.Users == nil, s.Verification == nil:
		return errors.New("user services must be provided")
	case s.Auth == nil:
		return errors.New("auth service must be provided")
	case s.PasswordReset == nil:
		return errors.New("password reset service must be provided")
	case s.Notifications == nil:
		return errors.New("notification service must be provided")
	}
	return nil
}
