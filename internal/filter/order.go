package filter

import (
	"fmt"
	"strings"

	"github.com/C4T-BuT-S4D/skillmatrix/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ListOrder sorts by department name, level, last name, first name.
func ListOrder(spec Spec) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		dept, vars := departmentKey(spec)
		return db.Order(clause.OrderBy{Expression: clause.Expr{
			SQL:  dept + " ASC, " + levelKey() + " ASC, users.last_name ASC, users.first_name ASC",
			Vars: vars,
		}})
	}
}

// StatisticsOrder sorts by level, last name, first name and department name last.
func StatisticsOrder(spec Spec) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		dept, vars := departmentKey(spec)
		return db.Order(clause.OrderBy{Expression: clause.Expr{
			SQL:  levelKey() + " ASC, users.last_name ASC, users.first_name ASC, " + dept + " ASC",
			Vars: vars,
		}})
	}
}

// NameOrder sorts by last name, first name.
func NameOrder(db *gorm.DB) *gorm.DB {
	return db.Order("users.last_name ASC").Order("users.first_name ASC")
}

// departmentKey is the smallest department name among the user's memberships
// that pass the spec's department filter.
func departmentKey(spec Spec) (string, []any) {
	sql := `(SELECT MIN(departments.name) FROM user_departments
		JOIN departments ON departments.id = user_departments.department_id
		WHERE user_departments.user_id = users.id`
	if !spec.HasDepartments() {
		return sql + ")", nil
	}
	return sql + " AND departments.name IN ?)", []any{nonEmpty(spec.Departments)}
}

func levelKey() string {
	var b strings.Builder
	b.WriteString("CASE users.level")
	for i, l := range models.Levels {
		fmt.Fprintf(&b, " WHEN '%s' THEN %d", l, i)
	}
	fmt.Fprintf(&b, " ELSE %d END", len(models.Levels))
	return b.String()
}
