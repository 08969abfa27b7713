package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	iauth "github.com/charlesng35/accounts/internal/auth"
	"github.com/charlesng35/accounts/internal/models"
	"github.com/charlesng35/accounts/pkg/crypto"
	apperrors "github.com/charlesng35/accounts/pkg/errors"
	"github.com/charlesng35/accounts/pkg/logger"
	"github.com/charlesng35/accounts/pkg/metrics"
)

const (
	msgInvalidCredentials = "Invalid credentials"
	msgUserNotVerified    = "User is not verified"
)

// ErrRefreshTokenInvalid is returned for refresh tokens that cannot be exchanged.
var ErrRefreshTokenInvalid = apperrors.New("TOKEN_INVALID", "Token is invalid or expired", http.StatusUnauthorized)

// dummyPasswordHash keeps the bcrypt cost paid for unknown emails.
const dummyPasswordHash = "$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z3l8Yx8v1hHq5YVq9Q5aFQ1e"

// LoginResult is returned on successful authentication.
type LoginResult struct {
	Tokens iauth.TokenPair
	User   *models.User
}

// AuthServiceOption customises the AuthService.
type AuthServiceOption func(*AuthService)

// WithAuthClock injects a custom time source.
func WithAuthClock(clock func() time.Time) AuthServiceOption {
	return func(s *AuthService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// AuthService exchanges credentials and refresh tokens for access tokens.
type AuthService struct {
	db  *gorm.DB
	jwt *iauth.JWTService
	now func() time.Time
}

// NewAuthService constructs an AuthService.
func NewAuthService(db *gorm.DB, jwt *iauth.JWTService, opts ...AuthServiceOption) (*AuthService, error) {
	if db == nil {
		return nil, errors.New("auth service: db is required")
	}
	if jwt == nil {
		return nil, errors.New("auth service: jwt service is required")
	}
	svc := &AuthService{db: db, jwt: jwt, now: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Login authenticates by email and password. Unknown emails, wrong passwords and inactive
// accounts are indistinguishable; correct credentials on an unverified account are rejected
// with their own message.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).First(&user, "email = ?", models.NormalizeEmail(email)).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("auth service: load user: %w", err)
	}

	if err != nil {
		crypto.VerifyPassword(dummyPasswordHash, password)
		metrics.AuthAttempts.WithLabelValues("invalid").Inc()
		return nil, apperrors.NewFieldError(apperrors.NonFieldErrors, msgInvalidCredentials)
	}
	if !crypto.VerifyPassword(user.Password, password) || !user.IsActive {
		metrics.AuthAttempts.WithLabelValues("invalid").Inc()
		return nil, apperrors.NewFieldError(apperrors.NonFieldErrors, msgInvalidCredentials)
	}
	if !user.IsVerified {
		metrics.AuthAttempts.WithLabelValues("unverified").Inc()
		return nil, apperrors.NewFieldError(apperrors.NonFieldErrors, msgUserNotVerified)
	}

	tokens, err := s.jwt.GenerateTokenPair(user.ID)
	if err != nil {
		return nil, fmt.Errorf("auth service: issue tokens: %w", err)
	}

	now := s.now().UTC()
	if err := s.db.WithContext(ctx).Model(&user).Update("last_login_at", now).Error; err != nil {
		logger.WithModule("auth").Warn("failed to stamp last login", zap.String("user_id", user.ID), zap.Error(err))
	} else {
		user.LastLoginAt = &now
	}

	if err := s.db.WithContext(ctx).Preload("Profile").First(&user, "id = ?", user.ID).Error; err != nil {
		return nil, fmt.Errorf("auth service: reload user: %w", err)
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	logger.WithModule("auth").Info("user logged in", zap.String("user_id", user.ID))

	return &LoginResult{Tokens: tokens, User: &user}, nil
}

// Refresh issues a new access token for a valid refresh token whose user is still active.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, time.Duration, error) {
	ctx = ensureContext(ctx)

	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return "", 0, ErrRefreshTokenInvalid
	}

	var user models.User
	err = s.db.WithContext(ctx).Select("id", "is_active").First(&user, "id = ?", claims.UserID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", 0, ErrRefreshTokenInvalid
	}
	if err != nil {
		return "", 0, fmt.Errorf("auth service: load user: %w", err)
	}
	if !user.IsActive {
		return "", 0, ErrRefreshTokenInvalid
	}

	access, err := s.jwt.GenerateAccessToken(user.ID)
	if err != nil {
		return "", 0, fmt.Errorf("auth service: issue access token: %w", err)
	}
	return access, s.jwt.AccessTokenTTL(), nil
}
