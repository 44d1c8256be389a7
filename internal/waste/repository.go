package waste

import (
	"context"
	"database/sql"
	"errors"

	"compost-be/internal/notification"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, w *WasteReport) error
	GetByID(ctx context.Context, id uuid.UUID) (*WasteReport, error)
	ListByFarmer(ctx context.Context, farmerID uuid.UUID) ([]*WasteReport, error)
	ListByRider(ctx context.Context, riderID uuid.UUID) ([]*WasteReport, error)
	ListByStatus(ctx context.Context, status *Status) ([]*WasteReport, error)
	// TransitionTx applies the already-validated transition and, when note
	// is non-nil, inserts the notification row in the same transaction so a
	// crash never leaves an unannounced state change. The update is guarded
	// by the expected source status; a concurrent change surfaces as
	// ErrStaleTransition.
	TransitionTx(ctx context.Context, w *WasteReport, from Status, note *notification.Notification) error
	Stats(ctx context.Context) (*Stats, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const reportColumns = `id, farmer_id, waste_type, quantity_kg, location, status, admin_verified, rider_id, collected_date, created_at, updated_at`

func (r *repository) Create(ctx context.Context, w *WasteReport) error {
	w.Status = StatusReported
	return r.db.QueryRowContext(ctx, `
		INSERT INTO waste_reports (farmer_id, waste_type, quantity_kg, location, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, admin_verified, created_at, updated_at
	`, w.FarmerID, w.WasteType, w.QuantityKg, w.Location, w.Status,
	).Scan(&w.ID, &w.AdminVerified, &w.CreatedAt, &w.UpdatedAt)
}

func scanReport(scanner interface{ Scan(...any) error }) (*WasteReport, error) {
	var w WasteReport
	var riderID uuid.NullUUID
	var collected sql.NullTime
	err := scanner.Scan(
		&w.ID, &w.FarmerID, &w.WasteType, &w.QuantityKg, &w.Location,
		&w.Status, &w.AdminVerified, &riderID, &collected, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if riderID.Valid {
		w.RiderID = &riderID.UUID
	}
	if collected.Valid {
		w.CollectedDate = &collected.Time
	}
	return &w, nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*WasteReport, error) {
	w, err := scanReport(r.db.QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM waste_reports WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReportNotFound
	}
	return w, err
}

func (r *repository) list(ctx context.Context, query string, args ...any) ([]*WasteReport, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*WasteReport
	for rows.Next() {
		w, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, w)
	}
	return list, rows.Err()
}

func (r *repository) ListByFarmer(ctx context.Context, farmerID uuid.UUID) ([]*WasteReport, error) {
	return r.list(ctx,
		`SELECT `+reportColumns+` FROM waste_reports WHERE farmer_id = $1 ORDER BY created_at DESC`,
		farmerID)
}

func (r *repository) ListByRider(ctx context.Context, riderID uuid.UUID) ([]*WasteReport, error) {
	return r.list(ctx,
		`SELECT `+reportColumns+` FROM waste_reports WHERE rider_id = $1 ORDER BY created_at DESC`,
		riderID)
}

func (r *repository) ListByStatus(ctx context.Context, status *Status) ([]*WasteReport, error) {
	if status == nil {
		return r.list(ctx,
			`SELECT `+reportColumns+` FROM waste_reports ORDER BY created_at DESC`)
	}
	return r.list(ctx,
		`SELECT `+reportColumns+` FROM waste_reports WHERE status = $1 ORDER BY created_at DESC`,
		*status)
}

func (r *repository) TransitionTx(ctx context.Context, w *WasteReport, from Status, note *notification.Notification) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var riderID any
	if w.RiderID != nil {
		riderID = *w.RiderID
	}
	var collected any
	if w.CollectedDate != nil {
		collected = *w.CollectedDate
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE waste_reports
		SET status = $1, admin_verified = $2, rider_id = $3, collected_date = $4, updated_at = now()
		WHERE id = $5 AND status = $6
	`, w.Status, w.AdminVerified, riderID, collected, w.ID, from)
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

	if note != nil {
		if err := notification.InsertTx(ctx, tx, note); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *repository) Stats(ctx context.Context) (*Stats, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT status, COUNT(*), COALESCE(SUM(quantity_kg), 0)
		FROM waste_reports
		GROUP BY status
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := &Stats{CountsByStatus: make(map[Status]int)}
	for rows.Next() {
		var status Status
		var count int
		var kg float64
		if err := rows.Scan(&status, &count, &kg); err != nil {
			return nil, err
		}
		stats.CountsByStatus[status] = count
		stats.TotalKg += kg
		if status.Rank() >= StatusCollected.Rank() {
			stats.CollectedKg += kg
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT farmer_id) FROM waste_reports`,
	).Scan(&stats.FarmerCount)
	if err != nil {
		return nil, err
	}

	return stats, nil
}
