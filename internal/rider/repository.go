package rider

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, r *Rider) error
	GetByID(ctx context.Context, id uuid.UUID) (*Rider, error)
	List(ctx context.Context, onlyAvailable bool) ([]*Rider, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	IncrementAssignments(ctx context.Context, id uuid.UUID) error
	RecordDelivery(ctx context.Context, id uuid.UUID, success bool) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const riderColumns = `id, name, phone_number, vehicle_type, status, current_orders, total_deliveries, success_rate, created_at, updated_at`

func (r *repository) Create(ctx context.Context, rd *Rider) error {
	if rd.Status == "" {
		rd.Status = StatusAvailable
	}
	return r.db.QueryRowContext(ctx, `
		INSERT INTO riders (name, phone_number, vehicle_type, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, current_orders, total_deliveries, success_rate, created_at, updated_at
	`, rd.Name, rd.PhoneNumber, rd.VehicleType, rd.Status,
	).Scan(&rd.ID, &rd.CurrentOrders, &rd.TotalDeliveries, &rd.SuccessRate, &rd.CreatedAt, &rd.UpdatedAt)
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Rider, error) {
	var rd Rider
	err := r.db.QueryRowContext(ctx,
		`SELECT `+riderColumns+` FROM riders WHERE id = $1`, id,
	).Scan(
		&rd.ID, &rd.Name, &rd.PhoneNumber, &rd.VehicleType, &rd.Status,
		&rd.CurrentOrders, &rd.TotalDeliveries, &rd.SuccessRate, &rd.CreatedAt, &rd.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRiderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rd, nil
}

func (r *repository) List(ctx context.Context, onlyAvailable bool) ([]*Rider, error) {
	q := `SELECT ` + riderColumns + ` FROM riders`
	if onlyAvailable {
		q += ` WHERE status = 'available'`
	}
	q += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*Rider
	for rows.Next() {
		var rd Rider
		if err := rows.Scan(
			&rd.ID, &rd.Name, &rd.PhoneNumber, &rd.VehicleType, &rd.Status,
			&rd.CurrentOrders, &rd.TotalDeliveries, &rd.SuccessRate, &rd.CreatedAt, &rd.UpdatedAt,
		); err != nil {
			return nil, err
		}
		list = append(list, &rd)
	}
	return list, rows.Err()
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE riders SET status = $1, updated_at = now() WHERE id = $2
	`, status, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrRiderNotFound
	}
	return nil
}

func (r *repository) IncrementAssignments(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE riders SET current_orders = current_orders + 1, updated_at = now()
		WHERE id = $1
	`, id)
	return err
}

// RecordDelivery settles one assignment and recomputes the lifetime
// success rate from the updated counters.
func (r *repository) RecordDelivery(ctx context.Context, id uuid.UUID, success bool) error {
	successes := 0
	if success {
		successes = 1
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE riders SET
			current_orders = GREATEST(current_orders - 1, 0),
			total_deliveries = total_deliveries + 1,
			success_rate = (success_rate * total_deliveries + $2 * 100) / (total_deliveries + 1),
			updated_at = now()
		WHERE id = $1
	`, id, successes)
	return err
}
