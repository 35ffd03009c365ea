package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/onepwr/procurement-tracker/internal/core/domain"
	"github.com/onepwr/procurement-tracker/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token string              `json:"token"`
	User  domain.UserSnapshot `json:"user"`
}

// Login authenticates a user, replaces any prior session and returns a
// bearer token bound to the new session.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      401   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	}

	result, err := h.authService.Authenticate(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, loginResponse{Token: result.Token, User: result.Session.User})
}

// Logout deactivates the caller's session. The bearer token stops working
// immediately even though it has not expired.
//
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Success      204
// @Failure      401   {object}  map[string]string
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	sid, err := ctxSessionID(c)
	if err != nil {
		return err
	}

	if err := h.authService.Logout(c.Request().Context(), sid); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

// Me returns the snapshot of the authenticated user.
//
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Success      200   {object}  domain.UserSnapshot
// @Failure      401   {object}  map[string]string
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	user, err := ctxUser(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}
