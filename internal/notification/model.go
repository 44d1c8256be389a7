package notification

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeApproval            Type = "approval"
	TypeRiderAssigned       Type = "rider_assigned"
	TypeCollectionCompleted Type = "collection_completed"
	TypePaymentReceived     Type = "payment_received"
	TypeOrderStatus         Type = "order_status"
	TypeDeliverySuccess     Type = "delivery_success"
)

// Notification is the system-of-record for "who was told what, when".
// Rows are append-only except for the IsRead flag; fan-out to several
// recipients means one row per recipient.
type Notification struct {
	ID              uuid.UUID  `json:"id"`
	RecipientID     uuid.UUID  `json:"recipient_id"`
	Type            Type       `json:"type"`
	Title           string     `json:"title"`
	Message         string     `json:"message"`
	IsRead          bool       `json:"is_read"`
	RelatedEntityID *uuid.UUID `json:"related_entity_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}
