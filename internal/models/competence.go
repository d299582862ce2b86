package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Specialization is the category a competence belongs to.
type Specialization struct {
	ID   string `gorm:"type:uuid;primaryKey"`
	Name string `gorm:"uniqueIndex;not null"`
}

type Competence struct {
	ID               string `gorm:"type:uuid;primaryKey"`
	Name             string `gorm:"not null"`
	SpecializationID string `gorm:"type:uuid;index"`

	Specialization *Specialization `gorm:"foreignKey:SpecializationID"`
}

// UserCompetence records an assessment, UpdatedAt is the last time it passed.
type UserCompetence struct {
	ID           string `gorm:"type:uuid;primaryKey"`
	UserID       string `gorm:"type:uuid;index"`
	CompetenceID string `gorm:"type:uuid;index"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;index"`

	Competence *Competence `gorm:"foreignKey:CompetenceID"`
}

func (s *Specialization) BeforeCreate(*gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}

func (c *Competence) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

func (uc *UserCompetence) BeforeCreate(*gorm.DB) error {
	if uc.ID == "" {
		uc.ID = uuid.New().String()
	}
	return nil
}
