package order

import (
	"time"

	"github.com/google/uuid"
)

// Status is the canonical five-state order lifecycle. Earlier iterations of
// the dashboards disagreed on whether out_for_delivery existed; it does,
// and every call site uses this single vocabulary.
type Status string

const (
	StatusPending        Status = "pending"
	StatusConfirmed      Status = "confirmed"
	StatusOutForDelivery Status = "out_for_delivery"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
)

var allowedTransitions = map[Status][]Status{
	StatusPending:        {StatusConfirmed, StatusCancelled},
	StatusConfirmed:      {StatusOutForDelivery, StatusCancelled},
	StatusOutForDelivery: {StatusDelivered},
}

func CanTransition(from, to Status) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Order struct {
	ID            uuid.UUID  `json:"id"`
	CustomerID    uuid.UUID  `json:"customer_id"`
	QuantityKg    float64    `json:"quantity_kg"`
	PricePerKg    float64    `json:"price_per_kg"`
	TotalAmount   float64    `json:"total_amount"`
	Status        Status     `json:"status"`
	AssignedRider *uuid.UUID `json:"assigned_rider,omitempty"`
	DeliveredAt   *time.Time `json:"delivered_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	Items []OrderItem `json:"items,omitempty"`
	// SourceReportIDs links the order to the waste batches the manure came
	// from; delivery notifications fan out to exactly those farmers.
	SourceReportIDs []uuid.UUID `json:"source_report_ids,omitempty"`
}

type OrderItem struct {
	ID         uuid.UUID `json:"id"`
	OrderID    uuid.UUID `json:"order_id"`
	ProductID  uuid.UUID `json:"product_id"`
	QuantityKg float64   `json:"quantity_kg"`
	PricePerKg float64   `json:"price_per_kg"`
}
