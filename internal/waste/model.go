package waste

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusReported  Status = "reported"
	StatusScheduled Status = "scheduled"
	StatusCollected Status = "collected"
	StatusProcessed Status = "processed"
)

// statusRank defines the forward-only ordering of the lifecycle. A report
// never moves to a status with a lower or equal rank.
var statusRank = map[Status]int{
	StatusReported:  0,
	StatusScheduled: 1,
	StatusCollected: 2,
	StatusProcessed: 3,
}

func (s Status) Rank() int {
	return statusRank[s]
}

type WasteType string

const (
	TypeAnimalManure WasteType = "animal_manure"
	TypeCoffeeHusks  WasteType = "coffee_husks"
	TypeRiceHulls    WasteType = "rice_hulls"
	TypeMaizeStalks  WasteType = "maize_stalks"
	TypeOther        WasteType = "other"
)

// Label is the human-readable form used in notifications and USSD screens.
func (t WasteType) Label() string {
	switch t {
	case TypeAnimalManure:
		return "Animal manure"
	case TypeCoffeeHusks:
		return "Coffee husks"
	case TypeRiceHulls:
		return "Rice hulls"
	case TypeMaizeStalks:
		return "Maize stalks"
	default:
		return "Other waste"
	}
}

func ParseWasteType(s string) (WasteType, error) {
	switch WasteType(s) {
	case TypeAnimalManure, TypeCoffeeHusks, TypeRiceHulls, TypeMaizeStalks, TypeOther:
		return WasteType(s), nil
	}
	return "", fmt.Errorf("unknown waste type: %q", s)
}

type WasteReport struct {
	ID            uuid.UUID  `json:"id"`
	FarmerID      uuid.UUID  `json:"farmer_id"`
	WasteType     WasteType  `json:"waste_type"`
	QuantityKg    float64    `json:"quantity_kg"`
	Location      string     `json:"location"`
	Status        Status     `json:"status"`
	AdminVerified bool       `json:"admin_verified"`
	RiderID       *uuid.UUID `json:"rider_id,omitempty"`
	CollectedDate *time.Time `json:"collected_date,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Stats is the admin dashboard aggregate view: all values are derived
// queries over waste_reports, not independent state.
type Stats struct {
	CountsByStatus map[Status]int `json:"counts_by_status"`
	TotalKg        float64        `json:"total_kg"`
	CollectedKg    float64        `json:"collected_kg"`
	Revenue        float64        `json:"revenue"`
	FarmerCount    int            `json:"farmer_count"`
}
