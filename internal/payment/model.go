package payment

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	// StatusExpired is the terminal state for pending payments whose
	// gateway confirmation never arrived.
	StatusExpired Status = "expired"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusExpired
}

type PaymentType string

const (
	TypeWastePurchase PaymentType = "waste_purchase"
	TypeManureSale    PaymentType = "manure_sale"
	TypeBonus         PaymentType = "bonus"
	TypeRefund        PaymentType = "refund"
	TypeOther         PaymentType = "other"
)

type Payment struct {
	ID          uuid.UUID   `json:"id"`
	FarmerID    *uuid.UUID  `json:"farmer_id,omitempty"`
	CustomerID  *uuid.UUID  `json:"customer_id,omitempty"`
	OrderID     *uuid.UUID  `json:"order_id,omitempty"`
	ReportID    *uuid.UUID  `json:"report_id,omitempty"`
	Amount      float64     `json:"amount"`
	PaymentType PaymentType `json:"payment_type"`
	Status      Status      `json:"status"`
	PhoneNumber string      `json:"phone_number"`

	// CorrelationRef is embedded in every gateway request as the account
	// reference. It is the only key that matches an asynchronous gateway
	// response back to this row, and is unique to prevent duplicate
	// submissions for the same payment.
	CorrelationRef string `json:"correlation_ref"`

	MpesaTransactionID *string `json:"mpesa_transaction_id,omitempty"`
	CheckoutRequestID  *string `json:"checkout_request_id,omitempty"`
	FailureReason      *string `json:"failure_reason,omitempty"`
	SandboxMode        bool    `json:"sandbox_mode"`

	// OverrideBy records the admin who forced a terminal status outside the
	// gateway reconciliation path.
	OverrideBy *uuid.UUID `json:"override_by,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
