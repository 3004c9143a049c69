package models

import "time"

type LinkType string

const (
	LinkGeneral  LinkType = "GENERAL"
	LinkPromoter LinkType = "PROMOTER"
	LinkPersonal LinkType = "PERSONAL"
)

// FieldMode controls whether a signup form field is shown and required.
type FieldMode string

const (
	FieldHidden   FieldMode = "HIDDEN"
	FieldOptional FieldMode = "OPTIONAL"
	FieldRequired FieldMode = "REQUIRED"
)

const DefaultMaxPlusOnesPerSignup = 3

type SignupLink struct {
	ID uint `gorm:"primaryKey" json:"id"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	EventID uint  `gorm:"index;not null" json:"eventId"`
	Event   Event `gorm:"foreignKey:EventID" json:"-"`

	Slug   string   `gorm:"size:128;uniqueIndex" json:"slug"`
	Title  string   `gorm:"size:255" json:"title,omitempty"`
	Type   LinkType `gorm:"size:32" json:"type"`
	Active bool     `gorm:"default:true" json:"active"`

	// SingleUse is derived from Type == PERSONAL.
	SingleUse bool `json:"singleUse"`

	MaxTotalGuests       *int      `json:"maxTotalGuests,omitempty"`
	MaxPlusOnesPerSignup int       `gorm:"not null" json:"maxPlusOnesPerSignup"`
	EmailMode            FieldMode `gorm:"size:16;default:OPTIONAL" json:"emailMode"`
	PhoneMode            FieldMode `gorm:"size:16;default:OPTIONAL" json:"phoneMode"`
	AllowNotes           bool      `json:"allowNotes"`

	PromoterID *uint `gorm:"index" json:"promoterId,omitempty"`
}
