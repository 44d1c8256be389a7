package server

import (
	"net/http"

	"compost-be/internal/rider"
	"compost-be/internal/utils"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type createRiderRequest struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	VehicleType string `json:"vehicle_type"`
}

func (s *Server) handleCreateRider(c echo.Context) error {
	var req createRiderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" || req.Phone == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name and phone are required")
	}

	phone, err := utils.NormalizePhoneKE(req.Phone)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "expected a 9 or 12 digit Kenyan number")
	}

	rd := &rider.Rider{
		Name:        req.Name,
		PhoneNumber: phone,
		VehicleType: req.VehicleType,
	}
	if err := s.deps.Riders.Create(c.Request().Context(), rd); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, rd)
}

func (s *Server) handleListRiders(c echo.Context) error {
	onlyAvailable := c.QueryParam("available") == "true"

	list, err := s.deps.Riders.List(c.Request().Context(), onlyAvailable)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, list)
}

func (s *Server) handleUpdateRiderStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid rider id")
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	status, err := rider.ParseStatus(req.Status)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := s.deps.Riders.UpdateStatus(c.Request().Context(), id, status); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
