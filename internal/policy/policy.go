// Package policy decides what an authenticated caller may see.
//
// Rules:
//   - admins, tech leads and heads of department see every department
//   - managers see only the departments they are members of
//   - a manager may not view a user who shares none of their departments
package policy

import (
	"github.com/C4T-BuT-S4D/skillmatrix/internal/models"
)

// Caller is the authenticated user issuing a request.
type Caller struct {
	ID          string
	Email       string
	Role        models.Role
	Departments []string
}

// DepartmentScope returns the department names the caller's department-scoped
// queries are limited to. restricted is false when no limit applies.
func DepartmentScope(caller *Caller) (names []string, restricted bool) {
	if caller == nil {
		return []string{}, true
	}
	if IsExaminer(caller.Role) {
		return nil, false
	}
	names = make([]string, len(caller.Departments))
	copy(names, caller.Departments)
	return names, true
}

// CanViewUser reports whether the caller may see the detail or statistics of
// a user who is a member of targetDepartments.
func CanViewUser(caller *Caller, targetDepartments []string) bool {
	if caller == nil {
		return false
	}
	if IsExaminer(caller.Role) {
		return true
	}
	for _, own := range caller.Departments {
		for _, target := range targetDepartments {
			if own == target {
				return true
			}
		}
	}
	return false
}

func IsExaminer(role models.Role) bool {
	for _, r := range models.ExaminerRoles {
		if r == role {
			return true
		}
	}
	return false
}

// HasRole reports whether the caller's role is one of roles.
func HasRole(caller *Caller, roles ...models.Role) bool {
	if caller == nil {
		return false
	}
	for _, r := range roles {
		if caller.Role == r {
			return true
		}
	}
	return false
}
