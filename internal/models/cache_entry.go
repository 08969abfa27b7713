package models

import (
	"time"
)

// CacheEntry is a key/value row used by the database cache store, mostly for rate-limit counters.
type CacheEntry struct {
	Key       string    `gorm:"primaryKey;size:191"`
	Value     []byte    `gorm:"not null"`
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
