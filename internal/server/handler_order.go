package server

import (
	"net/http"

	"compost-be/internal/auth"
	"compost-be/internal/order"
	"compost-be/internal/payment"
	"compost-be/internal/utils"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type orderItemRequest struct {
	ProductID  uuid.UUID `json:"product_id"`
	QuantityKg float64   `json:"quantity_kg"`
}

type createOrderRequest struct {
	Items           []orderItemRequest `json:"items"`
	QuantityKg      float64            `json:"quantity_kg"`
	PricePerKg      float64            `json:"price_per_kg"`
	SourceReportIDs []uuid.UUID        `json:"source_report_ids"`
}

func (s *Server) handleCreateOrder(c echo.Context) error {
	userID, _ := utils.GetUserIDFromContext(c.Request().Context())

	var req createOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	input := order.CreateInput{
		QuantityKg:      req.QuantityKg,
		PricePerKg:      req.PricePerKg,
		SourceReportIDs: req.SourceReportIDs,
	}
	for _, item := range req.Items {
		input.Items = append(input.Items, order.ItemInput{
			ProductID:  item.ProductID,
			QuantityKg: item.QuantityKg,
		})
	}

	o, err := s.deps.Orders.Create(c.Request().Context(), userID, input)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, o)
}

func (s *Server) handleMyOrders(c echo.Context) error {
	userID, _ := utils.GetUserIDFromContext(c.Request().Context())

	orders, err := s.deps.Orders.ListByCustomer(c.Request().Context(), userID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, orders)
}

func (s *Server) handleGetOrder(c echo.Context) error {
	userID, _ := utils.GetUserIDFromContext(c.Request().Context())

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}

	o, err := s.deps.Orders.GetForCustomer(c.Request().Context(), id, userID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, o)
}

func (s *Server) handleListOrders(c echo.Context) error {
	var status *order.Status
	if raw := c.QueryParam("status"); raw != "" {
		st := order.Status(raw)
		status = &st
	}

	orders, err := s.deps.Orders.List(c.Request().Context(), status)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, orders)
}

func (s *Server) handleAssignOrderRider(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}

	var req struct {
		RiderID uuid.UUID `json:"rider_id"`
	}
	if err := c.Bind(&req); err != nil || req.RiderID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "rider_id is required")
	}

	o, err := s.deps.Orders.AssignRider(c.Request().Context(), id, req.RiderID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, o)
}

func (s *Server) handleStartDelivery(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}

	o, err := s.deps.Orders.StartDelivery(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, o)
}

func (s *Server) handleMarkDelivered(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}

	o, err := s.deps.Orders.MarkDelivered(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, o)
}

func (s *Server) handleCancelOrder(c echo.Context) error {
	userID, _ := utils.GetUserIDFromContext(c.Request().Context())

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}

	// Customers cancel their own orders; admins can cancel any.
	if _, err := s.deps.Orders.GetForCustomer(c.Request().Context(), id, userID); err != nil {
		if role, ok := utils.GetRoleFromContext(c.Request().Context()); !ok || role != auth.RoleAdmin {
			return httpError(err)
		}
	}

	o, err := s.deps.Orders.Cancel(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, o)
}

type payOrderRequest struct {
	PhoneNumber string `json:"phone_number"`
}

func (s *Server) handlePayOrder(c echo.Context) error {
	userID, _ := utils.GetUserIDFromContext(c.Request().Context())

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}

	var req payOrderRequest
	if err := c.Bind(&req); err != nil || req.PhoneNumber == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "phone_number is required")
	}

	o, err := s.deps.Orders.GetForCustomer(c.Request().Context(), id, userID)
	if err != nil {
		return httpError(err)
	}

	result, err := s.deps.Payments.InitiateCharge(c.Request().Context(), payment.ChargeInput{
		CustomerID:  userID,
		OrderID:     &o.ID,
		PhoneNumber: req.PhoneNumber,
		Amount:      o.TotalAmount,
		PaymentType: payment.TypeManureSale,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusAccepted, result)
}
