package filter

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/C4T-BuT-S4D/skillmatrix/internal/models"
	"gorm.io/gorm"
)

var ErrUnknownRole = errors.New("unknown role")

// Params is the raw, optional filter input of the list endpoints.
type Params struct {
	Search      string   `query:"search" validate:"max=100"`
	Departments []string `query:"departments" validate:"dive,max=100"`
	Role        string   `query:"role" validate:"omitempty,oneof=admin techLead headOfDepartment manager developer"`
	Period      string   `query:"period" validate:"omitempty,oneof=day week month quarter halfYear year"`
}

// Spec is the normalized filter. Zero fields do not constrain the result.
type Spec struct {
	Search      string
	Departments []string
	Role        models.Role
	Range       *Range
}

func Build(p Params, now time.Time) (Spec, error) {
	spec := Spec{
		Search:      strings.ToLower(strings.TrimSpace(p.Search)),
		Departments: normalizeNames(p.Departments),
	}

	if p.Role != "" {
		role := models.Role(p.Role)
		if !role.Valid() {
			return Spec{}, fmt.Errorf("%w: %q", ErrUnknownRole, p.Role)
		}
		spec.Role = role
	}

	if p.Period != "" {
		r, err := Resolve(Period(p.Period), now)
		if err != nil {
			return Spec{}, err
		}
		spec.Range = &r
	}

	return spec, nil
}

// Restrict replaces the department filter with names when restricted is set.
// The requested departments are discarded, not intersected.
func (s Spec) Restrict(names []string, restricted bool) Spec {
	if !restricted {
		return s
	}
	s.Departments = normalizeNames(names)
	if s.Departments == nil {
		s.Departments = []string{}
	}
	return s
}

// HasDepartments reports whether the spec constrains departments. A non-nil
// empty list matches nothing.
func (s Spec) HasDepartments() bool {
	return s.Departments != nil
}

func (s Spec) Scopes() []func(*gorm.DB) *gorm.DB {
	var scopes []func(*gorm.DB) *gorm.DB
	if s.Search != "" {
		scopes = append(scopes, BySearch(s.Search))
	}
	if s.HasDepartments() {
		scopes = append(scopes, ByDepartments(s.Departments))
	}
	if s.Role != "" {
		scopes = append(scopes, ByRole(s.Role))
	}
	if s.Range != nil {
		scopes = append(scopes, ByCompetenceUpdated(*s.Range))
	}
	return scopes
}

func NotBlocked(db *gorm.DB) *gorm.DB {
	return db.Where("users.blocked = ?", false)
}

func BySearch(search string) func(*gorm.DB) *gorm.DB {
	pattern := "%" + escapeLike(strings.ToLower(search)) + "%"
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(
			`(LOWER(users.first_name) LIKE ? ESCAPE '\' OR LOWER(users.last_name) LIKE ? ESCAPE '\')`,
			pattern,
			pattern,
		)
	}
}

func ByDepartments(names []string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(
			`EXISTS (SELECT 1 FROM user_departments
				JOIN departments ON departments.id = user_departments.department_id
				WHERE user_departments.user_id = users.id AND departments.name IN ?)`,
			nonEmpty(names),
		)
	}
}

func ByRole(role models.Role) func(*gorm.DB) *gorm.DB {
	return ByAnyRole(role)
}

func ByAnyRole(roles ...models.Role) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(
			`EXISTS (SELECT 1 FROM user_departments
				WHERE user_departments.user_id = users.id AND user_departments.role IN ?)`,
			roleStrings(roles),
		)
	}
}

// DevelopersOnly keeps users whose derived role is developer, that is users
// without any membership of a more privileged role.
func DevelopersOnly(db *gorm.DB) *gorm.DB {
	return db.Where(
		`NOT EXISTS (SELECT 1 FROM user_departments
			WHERE user_departments.user_id = users.id AND user_departments.role <> ?)`,
		string(models.RoleDeveloper),
	)
}

func ByCompetenceUpdated(r Range) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(
			`EXISTS (SELECT 1 FROM user_competences
				WHERE user_competences.user_id = users.id
				AND user_competences.updated_at >= ? AND user_competences.updated_at < ?)`,
			r.Start,
			r.End,
		)
	}
}

func normalizeNames(names []string) []string {
	if names == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(names))
	result := make([]string, 0, len(names))
	for _, raw := range names {
		for _, name := range strings.Split(raw, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			result = append(result, name)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

// nonEmpty keeps IN (...) valid for an empty list, which matches nothing.
func nonEmpty(names []string) []string {
	if len(names) == 0 {
		return []string{""}
	}
	return names
}

func roleStrings(roles []models.Role) []string {
	result := make([]string, 0, len(roles))
	for _, r := range roles {
		result = append(result, string(r))
	}
	return result
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
