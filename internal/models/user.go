package models

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

// ErrUserEmailRequired is returned when persisting a user without an email address.
var ErrUserEmailRequired = errors.New("user: email is required")

// User is an account holder. Role flags are only changed through internal paths
// (verification, admin bootstrap) and never from request payloads.
type User struct {
	BaseModel

	Email       string  `gorm:"uniqueIndex;size:254;not null" json:"email"`
	PhoneNumber *string `gorm:"uniqueIndex;size:16" json:"phone_number"`
	FirstName   string  `gorm:"size:150" json:"first_name"`
	LastName    string  `gorm:"size:150" json:"last_name"`
	Password    string  `gorm:"not null" json:"-"`

	IsAdmin    bool `gorm:"default:false" json:"is_admin"`
	IsVerified bool `gorm:"default:false;index" json:"is_verified"`
	IsPremium  bool `gorm:"default:false" json:"is_premium"`
	IsActive   bool `gorm:"default:true" json:"is_active"`

	LastLoginAt *time.Time `json:"last_login_at"`

	Profile *Profile `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"profile,omitempty"`
}

// BeforeCreate normalises the email, refuses empty addresses and assigns the identifier.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	u.Email = NormalizeEmail(u.Email)
	if u.Email == "" {
		return ErrUserEmailRequired
	}
	return u.BaseModel.BeforeCreate(tx)
}

// FullName joins first and last name.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// NormalizeEmail lower-cases and trims an email address for storage and lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
