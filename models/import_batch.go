package models

import (
	"time"

	"gorm.io/datatypes"
)

// ImportBatch records one completed guest import.
type ImportBatch struct {
	ID uint `gorm:"primaryKey" json:"id"`

	CreatedAt time.Time `json:"createdAt"`

	EventID          uint `gorm:"index;not null" json:"eventId"`
	ImportedByUserID uint `gorm:"index" json:"importedByUserId"`

	Created int `json:"created"`
	Updated int `json:"updated"`

	// Outcomes holds the per-row result, see services.ImportRowOutcome.
	Outcomes datatypes.JSON `json:"outcomes,omitempty"`
}
