package payment

import "context"

type STKPushRequest struct {
	PhoneNumber      string
	Amount           float64
	AccountReference string
	Description      string
}

type STKPushResponse struct {
	MerchantRequestID   string
	CheckoutRequestID   string
	ResponseCode        string
	ResponseDescription string
	CustomerMessage     string
}

type B2CRequest struct {
	PhoneNumber string
	Amount      float64
	Reference   string
	Remarks     string
}

type B2CResponse struct {
	ConversationID      string
	ResponseCode        string
	ResponseDescription string
	TransactionID       string
	Sandbox             bool
}

// Gateway is the mobile-money processor. STKPush only initiates a charge;
// confirmation arrives asynchronously on the callback webhook. B2CPayout is
// acknowledged synchronously in this integration.
type Gateway interface {
	STKPush(ctx context.Context, req STKPushRequest) (*STKPushResponse, error)
	B2CPayout(ctx context.Context, req B2CRequest) (*B2CResponse, error)
}
