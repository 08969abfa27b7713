package services

import (
	"context"
	"errors"
	"strings"

	"github.com/charlesng35/accounts/internal/models"
	"github.com/charlesng35/accounts/pkg/crypto"
	apperrors "github.com/charlesng35/accounts/pkg/errors"
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

// normalisePhone trims the number; an empty value means "no phone number".
func normalisePhone(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// hashPassword hashes password, reporting an over-long password as a field error on field.
func hashPassword(field, password string) (string, error) {
	hashed, err := crypto.HashPassword(password)
	if errors.Is(err, crypto.ErrPasswordTooLong) {
		return "", apperrors.NewFieldError(field, msgPasswordTooLong)
	}
	return hashed, err
}

func passwordAttributes(user *models.User) PasswordAttributes {
	return PasswordAttributes{
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}
}

func pageWindow(page, pageSize int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}
