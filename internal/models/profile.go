package models

import "gorm.io/datatypes"

// Gender enumerates the values accepted for Profile.Gender.
type Gender string

const (
	GenderFemale      Gender = "F"
	GenderMale        Gender = "M"
	GenderNonBinary   Gender = "N"
	GenderUndisclosed Gender = "P"
)

// Valid reports whether g is empty or one of the known choices.
func (g Gender) Valid() bool {
	switch g {
	case "", GenderFemale, GenderMale, GenderNonBinary, GenderUndisclosed:
		return true
	default:
		return false
	}
}

// Profile is created once, when the owning user verifies their email.
type Profile struct {
	BaseModel

	UserID    string          `gorm:"size:36;uniqueIndex;not null" json:"user_id"`
	Gender    Gender          `gorm:"size:1" json:"gender"`
	Bio       string          `gorm:"type:text" json:"bio"`
	BirthDate *datatypes.Date `json:"birth_date"`
}
