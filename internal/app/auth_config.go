package app

import (
	"strings"
	"time"

	"github.com/charlesng35/accounts/internal/auth"
	"github.com/charlesng35/accounts/internal/database"
)

const defaultResetTokenTTL = 24 * time.Hour

// JWTServiceConfig converts AuthConfig into the parameters expected by the JWT service.
func (c AuthConfig) JWTServiceConfig() auth.JWTConfig {
	ttl := c.JWT.TTL
	if ttl <= 0 {
		ttl = auth.DefaultAccessTokenTTL
	}

	refresh := c.JWT.RefreshTTL
	if refresh <= 0 {
		refresh = auth.DefaultRefreshTokenTTL
	}

	return auth.JWTConfig{
		Secret:          c.JWT.Secret,
		Issuer:          c.JWT.Issuer,
		AccessTokenTTL:  ttl,
		RefreshTokenTTL: refresh,
	}
}

// VerificationSecret returns the trimmed key for email verification tokens.
func (c AuthConfig) VerificationSecret() string {
	return strings.TrimSpace(c.Verification.Secret)
}

// ResetTokenTTL returns how long password reset tokens stay valid.
func (c AuthConfig) ResetTokenTTL() time.Duration {
	if c.PasswordReset.TokenTTL <= 0 {
		return defaultResetTokenTTL
	}
	return c.PasswordReset.TokenTTL
}

// AdminSeed returns the bootstrap administrator, or nil when none is configured.
func (c AuthConfig) AdminSeed() *database.AdminSeed {
	email := strings.TrimSpace(c.Admin.Email)
	if email == "" || strings.TrimSpace(c.Admin.Password) == "" {
		return nil
	}
	return &database.AdminSeed{
		Email:     email,
		Password:  c.Admin.Password,
		FirstName: strings.TrimSpace(c.Admin.FirstName),
		LastName:  strings.TrimSpace(c.Admin.LastName),
	}
}
