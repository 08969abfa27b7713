package models

import (
	"time"

	"gorm.io/datatypes"
)

// Audience selects how a notification resolves its recipients.
type Audience string

const (
	// AudienceUser targets the single user referenced by UserID.
	AudienceUser Audience = "user"
	// AudienceAdmins broadcasts to every active admin.
	AudienceAdmins Audience = "admins"
	// AudienceList sends to the explicit Addresses.
	AudienceList Audience = "list"
)

// Notification is a templated email. It is sent at most once: WasSent only moves from
// false to true, stamped with SentAt.
type Notification struct {
	BaseModel

	Subject   string                      `gorm:"size:255;not null" json:"subject"`
	Header    string                      `gorm:"size:255" json:"header"`
	Audience  Audience                    `gorm:"size:16;not null;index" json:"audience"`
	UserID    *string                     `gorm:"size:36;index" json:"user_id,omitempty"`
	Addresses datatypes.JSONSlice[string] `json:"addresses,omitempty"`
	Blocks    []NotificationBlock         `gorm:"foreignKey:NotificationID;constraint:OnDelete:CASCADE" json:"blocks"`

	IsTest      bool       `gorm:"default:false" json:"is_test"`
	ScheduledAt *time.Time `gorm:"index" json:"scheduled_at"`
	WasSent     bool       `gorm:"default:false;index" json:"was_sent"`
	SentAt      *time.Time `json:"sent_at"`
	// SendingAt is set while one sender owns the delivery; it is cleared on failure.
	SendingAt   *time.Time `json:"-"`
	CreatedByID *string    `gorm:"size:36" json:"created_by_id,omitempty"`
}

// NotificationBlock is one titled section of a notification body.
type NotificationBlock struct {
	BaseModel

	NotificationID string `gorm:"size:36;not null;index" json:"-"`
	Position       int    `json:"position"`
	Title          string `gorm:"size:255" json:"title"`
	Content        string `gorm:"type:text" json:"content"`
}
