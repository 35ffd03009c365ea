package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/onepwr/procurement-tracker/internal/core/domain"
)

// ctxUser extracts the user snapshot injected by the Session middleware and
// performs a fast-fail check before any service call: a snapshot without an
// email is structurally present but operationally unusable, reject with 401.
func ctxUser(c echo.Context) (domain.UserSnapshot, error) {
	user, ok := c.Get("user").(domain.UserSnapshot)
	if !ok || user.Email == "" {
		return domain.UserSnapshot{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return user, nil
}

// ctxSessionID returns the validated session id for the request.
func ctxSessionID(c echo.Context) (string, error) {
	sid, _ := c.Get("session_id").(string)
	if sid == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing session identity")
	}
	return sid, nil
}
