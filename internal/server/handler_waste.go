package server

import (
	"net/http"

	"compost-be/internal/payment"
	"compost-be/internal/utils"
	"compost-be/internal/waste"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type reportWasteRequest struct {
	WasteType  string  `json:"waste_type"`
	QuantityKg float64 `json:"quantity_kg"`
	Location   string  `json:"location"`
}

func (s *Server) handleReportWaste(c echo.Context) error {
	userID, _ := utils.GetUserIDFromContext(c.Request().Context())

	var req reportWasteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	w, err := s.deps.Wastes.Report(c.Request().Context(), userID, waste.ReportInput{
		WasteType:  req.WasteType,
		QuantityKg: req.QuantityKg,
		Location:   req.Location,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, w)
}

func (s *Server) handleMyWasteReports(c echo.Context) error {
	userID, _ := utils.GetUserIDFromContext(c.Request().Context())

	reports, err := s.deps.Wastes.ListByFarmer(c.Request().Context(), userID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, reports)
}

func (s *Server) handleListWasteReports(c echo.Context) error {
	var status *waste.Status
	if raw := c.QueryParam("status"); raw != "" {
		st := waste.Status(raw)
		status = &st
	}

	reports, err := s.deps.Wastes.List(c.Request().Context(), status)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, reports)
}

func (s *Server) handleVerifyWasteReport(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid report id")
	}

	w, err := s.deps.Wastes.Verify(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, w)
}

func (s *Server) handleAssignWasteRider(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid report id")
	}

	var req struct {
		RiderID uuid.UUID `json:"rider_id"`
	}
	if err := c.Bind(&req); err != nil || req.RiderID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "rider_id is required")
	}

	w, err := s.deps.Wastes.AssignRider(c.Request().Context(), id, req.RiderID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, w)
}

func (s *Server) handleCollectWasteReport(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid report id")
	}

	w, err := s.deps.Wastes.MarkCollected(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, w)
}

type processPaymentResponse struct {
	Report  *waste.WasteReport `json:"report"`
	Payment *payment.Payment   `json:"payment"`
}

func (s *Server) handleProcessWastePayment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid report id")
	}

	w, p, err := s.deps.Wastes.ProcessPayment(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, processPaymentResponse{Report: w, Payment: p})
}

func (s *Server) handleWasteStats(c echo.Context) error {
	stats, err := s.deps.Wastes.Stats(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, stats)
}

func (s *Server) handleRiderWasteReports(c echo.Context) error {
	userID, _ := utils.GetUserIDFromContext(c.Request().Context())

	// Dispatch sessions see reports assigned to their rider record; the
	// rider id may also be passed explicitly by admins.
	riderID := userID
	if raw := c.QueryParam("rider_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid rider id")
		}
		riderID = parsed
	}

	reports, err := s.deps.Wastes.ListByRider(c.Request().Context(), riderID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, reports)
}
