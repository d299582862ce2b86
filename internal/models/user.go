package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID               string `gorm:"type:uuid;primaryKey"`
	FirstName        string
	LastName         string
	Avatar           string
	Email            string `gorm:"uniqueIndex"`
	Level            Level  `gorm:"default:TRAINEE"`
	Blocked          bool   `gorm:"not null;default:false"`
	NeedCongratulate bool   `gorm:"not null;default:false"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	Memberships      []UserDepartment `gorm:"foreignKey:UserID"`
	Competences      []UserCompetence `gorm:"foreignKey:UserID"`
	Unavailabilities []Unavailability `gorm:"foreignKey:UserID"`

	// Derived at read time.
	Role             Role       `gorm:"-"`
	LastDatetimePass *time.Time `gorm:"-"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.Level == "" {
		u.Level = LevelTrainee
	}
	return nil
}

// BeforeUpdate flags the user for congratulation whenever the update set
// contains the level column, whether or not the value differs.
func (u *User) BeforeUpdate(tx *gorm.DB) error {
	set, ok := tx.Statement.Dest.(map[string]any)
	if !ok {
		return nil
	}
	if _, ok := set["level"]; ok {
		tx.Statement.SetColumn("need_congratulate", true)
	}
	return nil
}

// DepartmentNames returns the names of the loaded memberships' departments.
func (u *User) DepartmentNames() []string {
	names := make([]string, 0, len(u.Memberships))
	for _, m := range u.Memberships {
		if m.Department != nil {
			names = append(names, m.Department.Name)
		}
	}
	return names
}

// UserUpdate is a partial update, nil fields are left untouched.
type UserUpdate struct {
	FirstName *string
	LastName  *string
	Avatar    *string
	Email     *string
	Level     *Level
	Blocked   *bool
}

func (u UserUpdate) Empty() bool {
	return len(u.Columns()) == 0
}

func (u UserUpdate) Columns() map[string]any {
	set := map[string]any{}
	if u.FirstName != nil {
		set["first_name"] = *u.FirstName
	}
	if u.LastName != nil {
		set["last_name"] = *u.LastName
	}
	if u.Avatar != nil {
		set["avatar"] = *u.Avatar
	}
	if u.Email != nil {
		set["email"] = *u.Email
	}
	if u.Level != nil {
		set["level"] = *u.Level
	}
	if u.Blocked != nil {
		set["blocked"] = *u.Blocked
	}
	return set
}
