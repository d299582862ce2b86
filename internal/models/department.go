package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Department struct {
	ID   string `gorm:"type:uuid;primaryKey"`
	Name string `gorm:"uniqueIndex;not null"`

	Memberships []UserDepartment `gorm:"foreignKey:DepartmentID"`
}

func (d *Department) BeforeCreate(*gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	return nil
}

// UserDepartment is a user's membership in a department with a per-department role.
type UserDepartment struct {
	ID           string `gorm:"type:uuid;primaryKey"`
	UserID       string `gorm:"type:uuid;uniqueIndex:idx_user_department"`
	DepartmentID string `gorm:"type:uuid;uniqueIndex:idx_user_department"`
	Role         Role   `gorm:"not null;default:developer"`

	Department *Department `gorm:"foreignKey:DepartmentID"`
}

func (m *UserDepartment) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.Role == "" {
		m.Role = RoleDeveloper
	}
	return nil
}
