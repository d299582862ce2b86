package api

import (
	"context"
	"fmt"
	"time"

	"github.com/C4T-BuT-S4D/skillmatrix/internal/authutil"
	"github.com/C4T-BuT-S4D/skillmatrix/internal/models"
	"github.com/C4T-BuT-S4D/skillmatrix/internal/policy"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

func (s *Service) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := c.Request().Header.Get(echo.HeaderXRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Response().Header().Set(echo.HeaderXRequestID, requestID)

		c.Set(logKey, logrus.WithFields(logrus.Fields{
			"request_id": requestID,
			"method":     c.Request().Method,
			"path":       c.Request().URL.Path,
		}))

		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		L(c).Infof("handled with status %d in %s", c.Response().Status, time.Since(start))
		return nil
	}
}

func (s *Service) withTimeout(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.config.RequestTimeout <= 0 {
			return next(c)
		}
		ctx, cancel := context.WithTimeout(c.Request().Context(), s.config.RequestTimeout)
		defer cancel()
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

func (s *Service) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		token, err := authutil.BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return s.fail(c, err)
		}

		identity, err := s.resolver.Resolve(ctx, token)
		if err != nil {
			return s.fail(c, fmt.Errorf("resolving identity: %w", err))
		}

		user, err := s.accounts.GetOrCreateUserByEmail(ctx, identity.Email, identity.FirstName, identity.LastName)
		if err != nil {
			return s.fail(c, fmt.Errorf("getting user for %v: %w", identity, err))
		}

		caller, err := s.accounts.GetCaller(ctx, user.ID)
		if err != nil {
			return s.fail(c, fmt.Errorf("loading caller: %w", err))
		}
		if caller.Blocked {
			return s.fail(c, fmt.Errorf("%w: user is blocked", authutil.ErrUnauthorized))
		}

		setCaller(c, &policy.Caller{
			ID:          caller.ID,
			Email:       caller.Email,
			Role:        caller.Role,
			Departments: caller.DepartmentNames(),
		})
		return next(c)
	}
}

// RequireRoles rejects callers whose role is not one of roles.
func (s *Service) RequireRoles(roles ...models.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			caller := CurrentCaller(c)
			if !policy.HasRole(caller, roles...) {
				L(c).Warnf("role %q is not allowed here", callerRole(caller))
				return s.fail(c, errRoleNotAllowed)
			}
			return next(c)
		}
	}
}

func callerRole(caller *policy.Caller) models.Role {
	if caller == nil {
		return ""
	}
	return caller.Role
}
