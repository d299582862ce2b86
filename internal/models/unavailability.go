package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Unavailability is a window during which the user cannot be assessed.
type Unavailability struct {
	ID       string    `gorm:"type:uuid;primaryKey"`
	UserID   string    `gorm:"type:uuid;index"`
	StartsAt time.Time `gorm:"not null"`
	EndsAt   time.Time `gorm:"not null"`
	Reason   string
}

func (u *Unavailability) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}
