package models

import (
	"time"
)

type Guest struct {
	ID uint `gorm:"primaryKey;autoIncrement" json:"id"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	EventID      uint  `gorm:"index;not null" json:"eventId"`
	SignupLinkID *uint `gorm:"index;column:signup_link_id" json:"signupLinkId,omitempty"`
	// PromoterID is the staff member who added the guest by hand or by import.
	PromoterID *uint `gorm:"index" json:"promoterId,omitempty"`

	SignupLink *SignupLink `gorm:"foreignKey:SignupLinkID;constraint:OnDelete:SET NULL" json:"-"`

	FirstName string  `gorm:"size:255" json:"firstName"`
	LastName  string  `gorm:"size:255" json:"lastName"`
	Email     *string `gorm:"size:255;index" json:"email,omitempty"`
	Phone     *string `gorm:"size:32;index" json:"phone,omitempty"` // normalized
	Note      *string `gorm:"type:text" json:"note,omitempty"`

	PlusOnesCount int `gorm:"default:0" json:"plusOnesCount"`

	CheckIn *CheckIn `gorm:"foreignKey:GuestID;constraint:OnDelete:CASCADE" json:"checkIn,omitempty"`
}

// PartySize is the guest plus their +1s.
func (g Guest) PartySize() int {
	return 1 + g.PlusOnesCount
}

func (g Guest) FullName() string {
	return g.FirstName + " " + g.LastName
}
