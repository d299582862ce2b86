package api

import (
	"github.com/C4T-BuT-S4D/skillmatrix/internal/policy"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const (
	logKey    = "log"
	callerKey = "caller"
)

// L returns the request-scoped logger.
func L(c echo.Context) *logrus.Entry {
	if entry, ok := c.Get(logKey).(*logrus.Entry); ok {
		return entry
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

// CurrentCaller returns the authenticated caller, nil before authentication.
func CurrentCaller(c echo.Context) *policy.Caller {
	caller, _ := c.Get(callerKey).(*policy.Caller)
	return caller
}

func setCaller(c echo.Context, caller *policy.Caller) {
	c.Set(callerKey, caller)
	c.Set(logKey, L(c).WithFields(logrus.Fields{
		"caller_id":   caller.ID,
		"caller_role": caller.Role,
	}))
}
