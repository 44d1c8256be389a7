package product

import (
	"time"

	"github.com/google/uuid"
)

// BaseCompostSKU is the catalog entry that processed waste batches feed
// into; it is seeded by the migrations.
const BaseCompostSKU = "COMPOST-BASE"

type Product struct {
	ID          uuid.UUID `json:"id"`
	SKU         string    `json:"sku"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	PricePerKg  float64   `json:"price_per_kg"`
	StockKg     float64   `json:"stock_kg"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// InventoryEntry records one processed waste batch entering sellable stock.
type InventoryEntry struct {
	ID             uuid.UUID `json:"id"`
	SourceReportID uuid.UUID `json:"source_report_id"`
	QuantityKg     float64   `json:"quantity_kg"`
	CreatedAt      time.Time `json:"created_at"`
}
