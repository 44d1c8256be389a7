package server

import (
	"net/http"

	"compost-be/internal/payment"
	"compost-be/internal/utils"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func (s *Server) handleMyPayments(c echo.Context) error {
	userID, _ := utils.GetUserIDFromContext(c.Request().Context())

	list, err := s.deps.Payments.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, list)
}

type overridePaymentRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleOverridePayment(c echo.Context) error {
	actorID, _ := utils.GetUserIDFromContext(c.Request().Context())

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payment id")
	}

	var req overridePaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	p, err := s.deps.Payments.Override(c.Request().Context(), actorID, id, payment.Status(req.Status))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}
