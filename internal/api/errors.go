package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/C4T-BuT-S4D/skillmatrix/internal/authutil"
	"github.com/C4T-BuT-S4D/skillmatrix/internal/directory"
	"github.com/labstack/echo/v4"
)

var (
	errRoleNotAllowed = errors.New("role is not allowed")
	errValidation     = errors.New("validation failed")
)

func (s *Service) fail(c echo.Context, err error) error {
	status, message := http.StatusInternalServerError, "internal error"

	var httpErr *echo.HTTPError
	switch {
	case errors.Is(err, directory.ErrNotFound):
		status, message = http.StatusNotFound, directory.ErrNotFound.Error()
	case errors.Is(err, directory.ErrConflict):
		status, message = http.StatusConflict, directory.ErrConflict.Error()
	case errors.Is(err, directory.ErrForbidden):
		status, message = http.StatusForbidden, directory.ErrForbidden.Error()
	case errors.Is(err, errRoleNotAllowed):
		status, message = http.StatusForbidden, errRoleNotAllowed.Error()
	case errors.Is(err, authutil.ErrUnauthorized):
		status, message = http.StatusUnauthorized, "unauthorized"
		L(c).Infof("unauthorized: %v", err)
	case errors.Is(err, directory.ErrInvalid), errors.Is(err, errValidation):
		status, message = http.StatusBadRequest, err.Error()
	case errors.As(err, &httpErr):
		status, message = httpErr.Code, fmt.Sprint(httpErr.Message)
	case errors.Is(err, context.DeadlineExceeded):
		status, message = http.StatusGatewayTimeout, "request timed out"
		L(c).Warnf("request timed out: %v", err)
	default:
		L(c).Errorf("request failed: %v", err)
	}

	return c.JSON(status, echo.Map{"error": message})
}
