package app

import (
	"fmt"
	"strings"

	"github.com/charlesng35/accounts/pkg/crypto"
)

const (
	jwtSecretBytes          = 48
	verificationSecretBytes = 32
)

// ApplyRuntimeDefaults ensures critical secrets are populated even when no configuration file is supplied.
// It returns a map describing which keys were generated so callers can log the event without exposing values.
// Generated secrets live only for the process lifetime, so issued tokens and verification links stop
// working after a restart.
func ApplyRuntimeDefaults(cfg *Config) (map[string]bool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	generated := make(map[string]bool)

	if strings.TrimSpace(cfg.Auth.JWT.Secret) == "" {
		secret, err := crypto.GenerateToken(jwtSecretBytes)
		if err != nil {
			return nil, fmt.Errorf("generate jwt secret: %w", err)
		}
		cfg.Auth.JWT.Secret = secret
		generated["auth.jwt.secret"] = true
	}

	if strings.TrimSpace(cfg.Auth.Verification.Secret) == "" {
		secret, err := crypto.GenerateToken(verificationSecretBytes)
		if err != nil {
			return nil, fmt.Errorf("generate verification secret: %w", err)
		}
		cfg.Auth.Verification.Secret = secret
		generated["auth.verification.secret"] = true
	}

	return generated, nil
}
