package testutil

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/C4T-BuT-S4D/skillmatrix/internal/models"
	"gorm.io/gorm"
)

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *gorm.DB
	t  *testing.T

	competence *models.Competence
}

func NewFixtures(t *testing.T, db *gorm.DB) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

func (f *Fixtures) DB() *gorm.DB {
	return f.db
}

func (f *Fixtures) CreateDepartment(ctx context.Context, name string) *models.Department {
	f.t.Helper()

	dept := &models.Department{Name: name}
	if err := f.db.WithContext(ctx).Create(dept).Error; err != nil {
		f.t.Fatalf("failed to create department %q: %v", name, err)
	}
	return dept
}

// CreateUser creates an active user, the email is derived from the names.
func (f *Fixtures) CreateUser(ctx context.Context, firstName, lastName string, level models.Level) *models.User {
	f.t.Helper()

	user := &models.User{
		FirstName: firstName,
		LastName:  lastName,
		Email:     strings.ToLower(fmt.Sprintf("%s.%s@example.com", firstName, lastName)),
		Level:     level,
	}
	if err := f.db.WithContext(ctx).Create(user).Error; err != nil {
		f.t.Fatalf("failed to create user %s %s: %v", firstName, lastName, err)
	}
	return user
}

func (f *Fixtures) Block(ctx context.Context, user *models.User) {
	f.t.Helper()

	if err := f.db.WithContext(ctx).Model(user).Update("blocked", true).Error; err != nil {
		f.t.Fatalf("failed to block user: %v", err)
	}
	user.Blocked = true
}

func (f *Fixtures) AddMembership(ctx context.Context, user *models.User, dept *models.Department, role models.Role) {
	f.t.Helper()

	m := &models.UserDepartment{UserID: user.ID, DepartmentID: dept.ID, Role: role}
	if err := f.db.WithContext(ctx).Create(m).Error; err != nil {
		f.t.Fatalf("failed to add membership: %v", err)
	}
}

// AddCompetence records a passed competence assessment at updatedAt.
func (f *Fixtures) AddCompetence(ctx context.Context, user *models.User, updatedAt time.Time) *models.UserCompetence {
	f.t.Helper()

	if f.competence == nil {
		spec := &models.Specialization{Name: "Backend development"}
		if err := f.db.WithContext(ctx).Create(spec).Error; err != nil {
			f.t.Fatalf("failed to create specialization: %v", err)
		}
		f.competence = &models.Competence{Name: "Go", SpecializationID: spec.ID}
		if err := f.db.WithContext(ctx).Create(f.competence).Error; err != nil {
			f.t.Fatalf("failed to create competence: %v", err)
		}
	}

	uc := &models.UserCompetence{
		UserID:       user.ID,
		CompetenceID: f.competence.ID,
		CreatedAt:    updatedAt,
		UpdatedAt:    updatedAt,
	}
	if err := f.db.WithContext(ctx).Create(uc).Error; err != nil {
		f.t.Fatalf("failed to add competence: %v", err)
	}
	return uc
}

func (f *Fixtures) Reload(ctx context.Context, user *models.User) *models.User {
	f.t.Helper()

	var fresh models.User
	if err := f.db.WithContext(ctx).Where("id = ?", user.ID).First(&fresh).Error; err != nil {
		f.t.Fatalf("failed to reload user: %v", err)
	}
	return &fresh
}
