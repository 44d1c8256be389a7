package rider

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusAvailable Status = "available"
	StatusBusy      Status = "busy"
	StatusOffline   Status = "offline"
)

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusAvailable, StatusBusy, StatusOffline:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown rider status: %q", s)
}

type Rider struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	PhoneNumber     string    `json:"phone_number"`
	VehicleType     string    `json:"vehicle_type"`
	Status          Status    `json:"status"`
	CurrentOrders   int       `json:"current_orders"`
	TotalDeliveries int       `json:"total_deliveries"`
	SuccessRate     float64   `json:"success_rate"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
