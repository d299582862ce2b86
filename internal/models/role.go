package models

type Role string

// Roles are ordered from the most to the least privileged.
const (
	RoleAdmin            Role = "admin"
	RoleTechLead         Role = "techLead"
	RoleHeadOfDepartment Role = "headOfDepartment"
	RoleManager          Role = "manager"
	RoleDeveloper        Role = "developer"
)

var Roles = []Role{
	RoleAdmin,
	RoleTechLead,
	RoleHeadOfDepartment,
	RoleManager,
	RoleDeveloper,
}

// Rank is the privilege rank of r, lower is more privileged.
// Unknown roles rank as developer.
func (r Role) Rank() int {
	for i, role := range Roles {
		if role == r {
			return i
		}
	}
	return len(Roles) - 1
}

func (r Role) Valid() bool {
	for _, role := range Roles {
		if role == r {
			return true
		}
	}
	return false
}

// RoleByRank is the inverse of Rank.
func RoleByRank(rank int) Role {
	if rank < 0 || rank >= len(Roles) {
		return RoleDeveloper
	}
	return Roles[rank]
}

// MinRole returns the most privileged of roles, developer if there are none.
func MinRole(roles ...Role) Role {
	best := RoleDeveloper
	for _, r := range roles {
		if r.Rank() < best.Rank() {
			best = r
		}
	}
	return best
}

// ExaminerRoles may assess other users' competences.
var ExaminerRoles = []Role{RoleAdmin, RoleTechLead, RoleHeadOfDepartment}
