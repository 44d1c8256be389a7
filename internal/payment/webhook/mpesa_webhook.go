package webhook

import (
	"net/http"

	"compost-be/internal/logger"
	"compost-be/internal/payment"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// StkCallbackPayload is the JSON Daraja posts to the callback URL after the
// payer responds to (or ignores) the STK prompt.
type StkCallbackPayload struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []struct {
					Name  string      `json:"Name"`
					Value interface{} `json:"Value"`
				} `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// B2CResultPayload is the JSON Daraja posts to the B2C result URL. The
// payout was already settled from the synchronous ack, so this is received
// for the audit trail.
type B2CResultPayload struct {
	Result struct {
		ResultType     int    `json:"ResultType"`
		ResultCode     int    `json:"ResultCode"`
		ResultDesc     string `json:"ResultDesc"`
		ConversationID string `json:"ConversationID"`
		TransactionID  string `json:"TransactionID"`
	} `json:"Result"`
}

type Handler struct {
	PaymentSvc payment.Service
}

func NewHandler(paymentSvc payment.Service) *Handler {
	return &Handler{PaymentSvc: paymentSvc}
}

// ack is the body Daraja expects; anything else triggers redelivery.
type ack struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

// StkCallback settles a pending STK charge from the asynchronous gateway
// confirmation.
func (h *Handler) StkCallback(c echo.Context) error {
	ctx := c.Request().Context()

	var payload StkCallbackPayload
	if err := c.Bind(&payload); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid JSON payload"})
	}

	cb := payload.Body.StkCallback
	if cb.CheckoutRequestID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing CheckoutRequestID"})
	}

	var receipt string
	for _, item := range cb.CallbackMetadata.Item {
		if item.Name == "MpesaReceiptNumber" {
			if s, ok := item.Value.(string); ok {
				receipt = s
			}
		}
	}

	_, err := h.PaymentSvc.ConfirmSTKResult(ctx, cb.CheckoutRequestID, cb.ResultCode, cb.ResultDesc, receipt)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to reconcile STK callback",
			zap.String("checkout_request_id", cb.CheckoutRequestID),
			zap.Error(err),
		)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to update payment"})
	}

	return c.JSON(http.StatusOK, ack{ResultCode: 0, ResultDesc: "Accepted"})
}

// B2CResult acknowledges the asynchronous payout result. Settlement already
// happened on the synchronous ack; the body is logged for reconciliation.
func (h *Handler) B2CResult(c echo.Context) error {
	ctx := c.Request().Context()

	var payload B2CResultPayload
	if err := c.Bind(&payload); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid JSON payload"})
	}

	logger.FromCtx(ctx).Info("B2C result received",
		zap.String("conversation_id", payload.Result.ConversationID),
		zap.String("transaction_id", payload.Result.TransactionID),
		zap.Int("result_code", payload.Result.ResultCode),
		zap.String("result_desc", payload.Result.ResultDesc),
	)

	return c.JSON(http.StatusOK, ack{ResultCode: 0, ResultDesc: "Accepted"})
}

// B2CTimeout is hit when the payout request sat in the gateway queue too
// long. The pending row is left for the expiry sweep to settle.
func (h *Handler) B2CTimeout(c echo.Context) error {
	logger.FromCtx(c.Request().Context()).Warn("B2C queue timeout received")
	return c.JSON(http.StatusOK, ack{ResultCode: 0, ResultDesc: "Accepted"})
}
