package server

import (
	"errors"
	"net/http"

	"compost-be/internal/order"
	"compost-be/internal/payment"
	"compost-be/internal/product"
	"compost-be/internal/rider"
	"compost-be/internal/user"
	"compost-be/internal/waste"

	"github.com/labstack/echo/v4"
)

// httpError maps domain errors onto HTTP status codes. Anything not in
// the table is a 500 and echo logs it.
func httpError(err error) error {
	var invalidWaste *waste.InvalidTransitionError
	var invalidOrder *order.InvalidTransitionError
	var validation *payment.ValidationError
	var gateway *payment.GatewayError

	switch {
	case errors.Is(err, user.ErrProfileNotFound),
		errors.Is(err, waste.ErrReportNotFound),
		errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, payment.ErrPaymentNotFound),
		errors.Is(err, rider.ErrRiderNotFound),
		errors.Is(err, product.ErrProductNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())

	case errors.Is(err, user.ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())

	case errors.Is(err, order.ErrUnauthorized):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())

	case errors.Is(err, user.ErrEmailExists),
		errors.Is(err, payment.ErrDuplicatePayment),
		errors.Is(err, waste.ErrRiderAlreadySet):
		return echo.NewHTTPError(http.StatusConflict, err.Error())

	case errors.Is(err, waste.ErrStaleTransition),
		errors.Is(err, order.ErrStaleTransition),
		errors.Is(err, payment.ErrTerminalStatus):
		return echo.NewHTTPError(http.StatusConflict, err.Error())

	case errors.As(err, &invalidWaste),
		errors.As(err, &invalidOrder):
		return echo.NewHTTPError(http.StatusConflict, err.Error())

	case errors.Is(err, user.ErrAdminSignupClosed),
		errors.Is(err, waste.ErrRiderRequired),
		errors.Is(err, rider.ErrRiderUnavailable),
		errors.Is(err, order.ErrInsufficientStock):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())

	case errors.As(err, &validation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())

	case errors.As(err, &gateway):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}

	return err
}
