package api

import (
	"context"

	"github.com/C4T-BuT-S4D/skillmatrix/internal/authutil"
	"github.com/C4T-BuT-S4D/skillmatrix/internal/config"
	"github.com/C4T-BuT-S4D/skillmatrix/internal/directory"
	"github.com/C4T-BuT-S4D/skillmatrix/internal/models"
	"github.com/labstack/echo/v4"
)

// Accounts resolves authenticated identities to users.
type Accounts interface {
	GetOrCreateUserByEmail(ctx context.Context, email, firstName, lastName string) (*models.User, error)
	GetCaller(ctx context.Context, userID string) (*models.User, error)
}

type Service struct {
	config    *config.Config
	accounts  Accounts
	directory *directory.Service
	resolver  authutil.Resolver
}

func NewService(cfg *config.Config, accounts Accounts, dir *directory.Service, resolver authutil.Resolver) *Service {
	return &Service{
		config:    cfg,
		accounts:  accounts,
		directory: dir,
		resolver:  resolver,
	}
}

var viewers = []models.Role{
	models.RoleAdmin,
	models.RoleTechLead,
	models.RoleHeadOfDepartment,
	models.RoleManager,
}

// NewServer builds the echo instance with every route registered.
func (s *Service) NewServer() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = newRequestValidator()
	e.Use(s.requestLogger)

	users := e.Group("/users", s.withTimeout, s.authenticate)
	users.GET("", s.HandleList(), s.RequireRoles(viewers...))
	users.GET("/examiners", s.HandleExaminers(), s.RequireRoles(models.RoleAdmin))
	users.GET("/me", s.HandleMe())
	users.PATCH("/congratulated", s.HandleCongratulated(), s.RequireRoles(models.RoleDeveloper))
	users.GET("/by-departments", s.HandleListByDepartments(), s.RequireRoles(viewers...))
	users.GET("/statistic", s.HandleStatistics(), s.RequireRoles(viewers...))
	users.GET("/:id", s.HandleFindByID(), s.RequireRoles(viewers...))
	users.PATCH("/:id", s.HandleUpdate(), s.RequireRoles(models.RoleAdmin))
	users.PATCH("/:id/level-up", s.HandleLevelUp(), s.RequireRoles(models.ExaminerRoles...))
	users.GET("/:id/statistic", s.HandleStatisticForUser(), s.RequireRoles(viewers...))

	return e
}
