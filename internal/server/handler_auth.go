package server

import (
	"net/http"

	"compost-be/internal/auth"
	"compost-be/internal/user"
	"compost-be/internal/utils"

	"github.com/labstack/echo/v4"
)

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
	Location string `json:"location"`
}

type sessionResponse struct {
	Token   string        `json:"token"`
	Profile *user.Profile `json:"profile"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSignUp(c echo.Context) error {
	var req signUpRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Email == "" || req.Password == "" || req.Name == "" || req.Phone == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email, password, name and phone are required")
	}

	token, profile, err := s.deps.Users.SignUp(c.Request().Context(), user.SignUpInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Phone:    req.Phone,
		Role:     auth.Role(req.Role),
		Location: req.Location,
	})
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, sessionResponse{Token: token, Profile: profile})
}

func (s *Server) handleSignIn(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	token, profile, err := s.deps.Users.SignIn(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, sessionResponse{Token: token, Profile: profile})
}

func (s *Server) handleMe(c echo.Context) error {
	userID, ok := utils.GetUserIDFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	profile, err := s.deps.Users.GetByID(c.Request().Context(), userID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, profile)
}

func (s *Server) handleListFarmers(c echo.Context) error {
	farmers, err := s.deps.Users.ListFarmers(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, farmers)
}
