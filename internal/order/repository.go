package order

import (
	"context"
	"database/sql"
	"errors"

	"compost-be/internal/notification"

	"github.com/google/uuid"
)

type Repository interface {
	// CreateTx inserts the order, its items, its waste-batch links and
	// decrements product stock in a single transaction.
	CreateTx(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*Order, error)
	ListByStatus(ctx context.Context, status *Status) ([]*Order, error)
	// TransitionTx applies the validated transition and inserts the
	// notification rows in the same transaction. The update is guarded by
	// the expected source status.
	TransitionTx(ctx context.Context, o *Order, from Status, notes []*notification.Notification) error
	// FarmerIDsForOrder resolves the distinct farmers whose waste reports
	// are linked to the order through order_sources.
	FarmerIDsForOrder(ctx context.Context, orderID uuid.UUID) ([]uuid.UUID, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const orderColumns = `id, customer_id, quantity_kg, price_per_kg, total_amount, status, assigned_rider, delivered_at, created_at, updated_at`

func (r *repository) CreateTx(ctx context.Context, o *Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (customer_id, quantity_kg, price_per_kg, total_amount, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`, o.CustomerID, o.QuantityKg, o.PricePerKg, o.TotalAmount, o.Status,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return err
	}

	for i := range o.Items {
		item := &o.Items[i]
		item.OrderID = o.ID

		res, err := tx.ExecContext(ctx, `
			UPDATE products SET stock_kg = stock_kg - $1, updated_at = now()
			WHERE id = $2 AND stock_kg >= $1
		`, item.QuantityKg, item.ProductID)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrInsufficientStock
		}

		err = tx.QueryRowContext(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity_kg, price_per_kg)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`, item.OrderID, item.ProductID, item.QuantityKg, item.PricePerKg,
		).Scan(&item.ID)
		if err != nil {
			return err
		}
	}

	for _, reportID := range o.SourceReportIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO order_sources (order_id, report_id) VALUES ($1, $2)
		`, o.ID, reportID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func scanOrder(scanner interface{ Scan(...any) error }) (*Order, error) {
	var o Order
	var riderID uuid.NullUUID
	var delivered sql.NullTime
	err := scanner.Scan(
		&o.ID, &o.CustomerID, &o.QuantityKg, &o.PricePerKg, &o.TotalAmount,
		&o.Status, &riderID, &delivered, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if riderID.Valid {
		o.AssignedRider = &riderID.UUID
	}
	if delivered.Valid {
		o.DeliveredAt = &delivered.Time
	}
	return &o, nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, quantity_kg, price_per_kg
		FROM order_items WHERE order_id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.QuantityKg, &item.PricePerKg); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, item)
	}
	return o, rows.Err()
}

func (r *repository) list(ctx context.Context, query string, args ...any) ([]*Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, o)
	}
	return list, rows.Err()
}

func (r *repository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*Order, error) {
	return r.list(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE customer_id = $1 ORDER BY created_at DESC`,
		customerID)
}

func (r *repository) ListByStatus(ctx context.Context, status *Status) ([]*Order, error) {
	if status == nil {
		return r.list(ctx,
			`SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC`)
	}
	return r.list(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE status = $1 ORDER BY created_at DESC`,
		*status)
}

func (r *repository) TransitionTx(ctx context.Context, o *Order, from Status, notes []*notification.Notification) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var riderID any
	if o.AssignedRider != nil {
		riderID = *o.AssignedRider
	}
	var delivered any
	if o.DeliveredAt != nil {
		delivered = *o.DeliveredAt
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $1, assigned_rider = $2, delivered_at = $3, updated_at = now()
		WHERE id = $4 AND status = $5
	`, o.Status, riderID, delivered, o.ID, from)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrStaleTransition
	}

	for _, note := range notes {
		if err := notification.InsertTx(ctx, tx, note); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *repository) FarmerIDsForOrder(ctx context.Context, orderID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT w.farmer_id
		FROM order_sources s
		JOIN waste_reports w ON w.id = s.report_id
		WHERE s.order_id = $1
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
