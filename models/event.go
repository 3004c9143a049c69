package models

import "time"

type EventStatus string

const (
	EventDraft     EventStatus = "DRAFT"
	EventPublished EventStatus = "PUBLISHED"
	EventArchived  EventStatus = "ARCHIVED"
)

// Join tables of the Event assignments; columns are event_id and user_id.
const (
	EventPromotersTable = "event_promoters"
	EventDoorStaffTable = "event_door_staff"
)

type Event struct {
	ID uint `gorm:"primaryKey" json:"id"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Name        string     `gorm:"size:255" json:"name"`
	Slug        string     `gorm:"size:128;uniqueIndex" json:"slug"`
	Date        *time.Time `json:"date,omitempty"`
	VenueName   string     `gorm:"size:255" json:"venueName,omitempty"`
	Description string     `gorm:"type:text" json:"description,omitempty"`

	// Capacity caps admitted people (guests plus their +1s); nil means unlimited.
	Capacity *int        `json:"capacity,omitempty"`
	Status   EventStatus `gorm:"size:32;default:DRAFT;index" json:"status"`

	CreatedByUserID uint `gorm:"index" json:"createdByUserId"`

	// AssignedPromoters may add and import guests and create links;
	// DoorStaff see the event in their door list once it is published.
	AssignedPromoters []User `gorm:"many2many:event_promoters" json:"assignedPromoters,omitempty"`
	DoorStaff         []User `gorm:"many2many:event_door_staff" json:"doorStaff,omitempty"`

	Links  []SignupLink `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE" json:"links,omitempty"`
	Guests []Guest      `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE" json:"guests,omitempty"`
}
