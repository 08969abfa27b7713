package database

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/accounts/internal/models"
	"github.com/charlesng35/accounts/pkg/crypto"
)

// AdminSeed describes the administrator account created on start-up when configured.
type AdminSeed struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Profile{},
		&models.PasswordResetToken{},
		&models.Notification{},
		&models.NotificationBlock{},
		&models.CacheEntry{},
	)
}

// SeedAdmin creates a verified administrator with a profile unless the email already exists.
// Existing accounts are left untouched.
func SeedAdmin(db *gorm.DB, seed AdminSeed) error {
	email := models.NormalizeEmail(seed.Email)
	if email == "" {
		return errors.New("admin email is required")
	}
	if strings.TrimSpace(seed.Password) == "" {
		return errors.New("admin password is required")
	}

	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hashed, err := crypto.HashPassword(seed.Password)
	if err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		admin := models.User{
			Email:      email,
			FirstName:  strings.TrimSpace(seed.FirstName),
			LastName:   strings.TrimSpace(seed.LastName),
			Password:   hashed,
			IsAdmin:    true,
			IsVerified: true,
			IsActive:   true,
		}
		if err := tx.Create(&admin).Error; err != nil {
			return err
		}
		return tx.Create(&models.Profile{UserID: admin.ID}).Error
	})
}
