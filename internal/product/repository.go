package product

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

var ErrProductNotFound = errors.New("product not found")

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Product, error)
	List(ctx context.Context) ([]*Product, error)
	// AddProcessedKg books a processed waste batch into inventory and adds
	// it to the base compost stock in one transaction.
	AddProcessedKg(ctx context.Context, sourceReportID uuid.UUID, kg float64) error
	ListInventory(ctx context.Context, limit int) ([]*InventoryEntry, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const productColumns = `id, sku, name, description, price_per_kg, stock_kg, created_at, updated_at`

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	var p Product
	err := r.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id,
	).Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.PricePerKg, &p.StockKg, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) List(ctx context.Context) ([]*Product, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.PricePerKg, &p.StockKg, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, &p)
	}
	return list, rows.Err()
}

func (r *repository) AddProcessedKg(ctx context.Context, sourceReportID uuid.UUID, kg float64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO inventory (source_report_id, quantity_kg) VALUES ($1, $2)
	`, sourceReportID, kg); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE products SET stock_kg = stock_kg + $1, updated_at = now() WHERE sku = $2
	`, kg, BaseCompostSKU)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrProductNotFound
	}

	return tx.Commit()
}

func (r *repository) ListInventory(ctx context.Context, limit int) ([]*InventoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, source_report_id, quantity_kg, created_at
		FROM inventory ORDER BY created_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*InventoryEntry
	for rows.Next() {
		var e InventoryEntry
		if err := rows.Scan(&e.ID, &e.SourceReportID, &e.QuantityKg, &e.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}
