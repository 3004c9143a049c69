package models

import "time"

// AdmissionState is the door state of a guest.
type AdmissionState string

const (
	StateNotArrived AdmissionState = "NOT_ARRIVED"
	StateCheckedIn  AdmissionState = "CHECKED_IN"
	StateCheckedOut AdmissionState = "CHECKED_OUT"
)

// CheckIn is one-to-one with Guest; no row means the guest has not arrived.
type CheckIn struct {
	ID uint `gorm:"primaryKey" json:"id"`

	GuestID uint `gorm:"uniqueIndex;not null" json:"guestId"`

	CheckedInAt       time.Time `json:"checkedInAt"`
	CheckedInByUserID uint      `gorm:"index" json:"checkedInByUserId"`
	CheckedInCount    int       `json:"checkedInCount"`

	CheckedOutAt    *time.Time `json:"checkedOutAt"`
	CheckedOutCount *int       `json:"checkedOutCount"`

	UpdatedAt time.Time `json:"updatedAt"`
}

// Inside reports whether the party is currently admitted.
func (c *CheckIn) Inside() bool {
	return c != nil && c.CheckedOutAt == nil
}

// StateOf derives the door state from an optional check-in record.
func StateOf(c *CheckIn) AdmissionState {
	switch {
	case c == nil:
		return StateNotArrived
	case c.CheckedOutAt == nil:
		return StateCheckedIn
	default:
		return StateCheckedOut
	}
}
