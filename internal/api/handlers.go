package api

import (
	"fmt"
	"net/http"

	"github.com/C4T-BuT-S4D/skillmatrix/internal/filter"
	"github.com/C4T-BuT-S4D/skillmatrix/internal/models"
	"github.com/labstack/echo/v4"
)

func (s *Service) HandleList() echo.HandlerFunc {
	return func(c echo.Context) error {
		params, err := s.bindFilter(c)
		if err != nil {
			return s.fail(c, err)
		}

		users, err := s.directory.List(c.Request().Context(), CurrentCaller(c), params)
		if err != nil {
			return s.fail(c, err)
		}

		L(c).Debugf("listed %d users", len(users))
		return c.JSON(http.StatusOK, newUserListResponse(users))
	}
}

func (s *Service) HandleExaminers() echo.HandlerFunc {
	return func(c echo.Context) error {
		users, err := s.directory.Examiners(c.Request().Context())
		if err != nil {
			return s.fail(c, err)
		}
		return c.JSON(http.StatusOK, newUserListResponse(users))
	}
}

func (s *Service) HandleMe() echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := s.directory.Me(c.Request().Context(), CurrentCaller(c))
		if err != nil {
			return s.fail(c, err)
		}
		return c.JSON(http.StatusOK, newUserResponse(user))
	}
}

func (s *Service) HandleCongratulated() echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := s.directory.Congratulated(c.Request().Context(), CurrentCaller(c))
		if err != nil {
			return s.fail(c, err)
		}

		L(c).Infof("user %s acknowledged congratulation on level %s", user.ID, user.Level)
		return c.JSON(http.StatusOK, newUserResponse(user))
	}
}

func (s *Service) HandleListByDepartments() echo.HandlerFunc {
	return func(c echo.Context) error {
		params, err := s.bindFilter(c)
		if err != nil {
			return s.fail(c, err)
		}

		groups, err := s.directory.ListByDepartments(c.Request().Context(), CurrentCaller(c), params)
		if err != nil {
			return s.fail(c, err)
		}
		return c.JSON(http.StatusOK, newDepartmentGroupsResponse(groups))
	}
}

func (s *Service) HandleStatistics() echo.HandlerFunc {
	return func(c echo.Context) error {
		params, err := s.bindFilter(c)
		if err != nil {
			return s.fail(c, err)
		}

		stats, err := s.directory.Statistics(c.Request().Context(), CurrentCaller(c), params)
		if err != nil {
			return s.fail(c, err)
		}
		return c.JSON(http.StatusOK, newStatisticsResponse(stats))
	}
}

func (s *Service) HandleFindByID() echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := s.directory.FindByID(c.Request().Context(), CurrentCaller(c), c.Param("id"))
		if err != nil {
			return s.fail(c, err)
		}
		return c.JSON(http.StatusOK, newUserResponse(user))
	}
}

func (s *Service) HandleUpdate() echo.HandlerFunc {
	return func(c echo.Context) error {
		var req UpdateUserRequest
		if err := s.bindBody(c, &req); err != nil {
			return s.fail(c, err)
		}

		id := c.Param("id")
		user, err := s.directory.Update(c.Request().Context(), id, req.toUpdate())
		if err != nil {
			return s.fail(c, err)
		}

		L(c).Infof("updated user %s", id)
		return c.JSON(http.StatusOK, newUserResponse(user))
	}
}

func (s *Service) HandleLevelUp() echo.HandlerFunc {
	return func(c echo.Context) error {
		var req LevelUpRequest
		if err := s.bindBody(c, &req); err != nil {
			return s.fail(c, err)
		}

		var current *models.Level
		if req.Level != nil {
			level := models.Level(*req.Level)
			current = &level
		}

		user, err := s.directory.LevelUp(c.Request().Context(), CurrentCaller(c), c.Param("id"), current)
		if err != nil {
			return s.fail(c, err)
		}

		L(c).Infof("user %s is now %s", user.ID, user.Level)
		return c.JSON(http.StatusOK, newUserResponse(user))
	}
}

func (s *Service) HandleStatisticForUser() echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := s.directory.StatisticForUser(c.Request().Context(), CurrentCaller(c), c.Param("id"))
		if err != nil {
			return s.fail(c, err)
		}
		return c.JSON(http.StatusOK, newUserResponse(user))
	}
}

func (s *Service) bindFilter(c echo.Context) (filter.Params, error) {
	var params filter.Params
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &params); err != nil {
		return filter.Params{}, fmt.Errorf("%w: %w", errValidation, err)
	}
	if err := c.Validate(&params); err != nil {
		return filter.Params{}, err
	}
	return params, nil
}

func (s *Service) bindBody(c echo.Context, dst any) error {
	if err := (&echo.DefaultBinder{}).BindBody(c, dst); err != nil {
		return fmt.Errorf("%w: %w", errValidation, err)
	}
	return c.Validate(dst)
}
