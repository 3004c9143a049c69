package models

import "time"

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:255" json:"name"`
	Email        string    `gorm:"size:150;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"size:255" json:"-"` // bcrypt, never returned
	Role         Role      `gorm:"size:32;index" json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
