package payment

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	GetByCorrelationRef(ctx context.Context, ref string) (*Payment, error)
	GetByCheckoutRequestID(ctx context.Context, checkoutID string) (*Payment, error)
	// HasActive reports whether a pending or completed payment already
	// exists for the given report or order, whichever is non-nil.
	HasActiveForReport(ctx context.Context, reportID uuid.UUID) (bool, error)
	HasActiveForOrder(ctx context.Context, orderID uuid.UUID) (bool, error)
	SetCheckoutRequestID(ctx context.Context, id uuid.UUID, checkoutID string) error
	// MarkCompleted and MarkFailed only move rows out of pending; rows
	// already terminal are left untouched and report ErrTerminalStatus.
	MarkCompleted(ctx context.Context, id uuid.UUID, mpesaTxnID string, sandbox bool) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	Override(ctx context.Context, id uuid.UUID, status Status, actorID uuid.UUID) error
	ExpirePendingBefore(ctx context.Context, cutoff time.Time) (int64, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Payment, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const paymentColumns = `id, farmer_id, customer_id, order_id, report_id, amount, payment_type, status,
	phone_number, correlation_ref, mpesa_transaction_id, checkout_request_id, failure_reason,
	sandbox_mode, override_by, created_at, updated_at`

func (r *repository) Create(ctx context.Context, p *Payment) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO payments (farmer_id, customer_id, order_id, report_id, amount, payment_type, status, phone_number, correlation_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`,
		nullUUID(p.FarmerID), nullUUID(p.CustomerID), nullUUID(p.OrderID), nullUUID(p.ReportID),
		p.Amount, p.PaymentType, p.Status, p.PhoneNumber, p.CorrelationRef,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func nullUUID(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return *id
}

func scanPayment(scanner interface{ Scan(...any) error }) (*Payment, error) {
	var p Payment
	var farmerID, customerID, orderID, reportID, overrideBy uuid.NullUUID
	var txnID, checkoutID, failureReason sql.NullString

	err := scanner.Scan(
		&p.ID, &farmerID, &customerID, &orderID, &reportID, &p.Amount, &p.PaymentType, &p.Status,
		&p.PhoneNumber, &p.CorrelationRef, &txnID, &checkoutID, &failureReason,
		&p.SandboxMode, &overrideBy, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if farmerID.Valid {
		p.FarmerID = &farmerID.UUID
	}
	if customerID.Valid {
		p.CustomerID = &customerID.UUID
	}
	if orderID.Valid {
		p.OrderID = &orderID.UUID
	}
	if reportID.Valid {
		p.ReportID = &reportID.UUID
	}
	if overrideBy.Valid {
		p.OverrideBy = &overrideBy.UUID
	}
	if txnID.Valid {
		p.MpesaTransactionID = &txnID.String
	}
	if checkoutID.Valid {
		p.CheckoutRequestID = &checkoutID.String
	}
	if failureReason.Valid {
		p.FailureReason = &failureReason.String
	}
	return &p, nil
}

func (r *repository) getBy(ctx context.Context, where string, arg any) (*Payment, error) {
	p, err := scanPayment(r.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE `+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	return p, err
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Payment, error) {
	return r.getBy(ctx, `id = $1`, id)
}

func (r *repository) GetByCorrelationRef(ctx context.Context, ref string) (*Payment, error) {
	return r.getBy(ctx, `correlation_ref = $1`, ref)
}

func (r *repository) GetByCheckoutRequestID(ctx context.Context, checkoutID string) (*Payment, error) {
	return r.getBy(ctx, `checkout_request_id = $1`, checkoutID)
}

func (r *repository) hasActive(ctx context.Context, column string, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM payments
			WHERE `+column+` = $1 AND status IN ('pending', 'completed')
		)
	`, id).Scan(&exists)
	return exists, err
}

func (r *repository) HasActiveForReport(ctx context.Context, reportID uuid.UUID) (bool, error) {
	return r.hasActive(ctx, "report_id", reportID)
}

func (r *repository) HasActiveForOrder(ctx context.Context, orderID uuid.UUID) (bool, error) {
	return r.hasActive(ctx, "order_id", orderID)
}

func (r *repository) SetCheckoutRequestID(ctx context.Context, id uuid.UUID, checkoutID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE payments SET checkout_request_id = $1, updated_at = now() WHERE id = $2
	`, checkoutID, id)
	return err
}

func (r *repository) MarkCompleted(ctx context.Context, id uuid.UUID, mpesaTxnID string, sandbox bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE payments
		SET status = 'completed', mpesa_transaction_id = $1, sandbox_mode = $2, updated_at = now()
		WHERE id = $3 AND status = 'pending'
	`, mpesaTxnID, sandbox, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *repository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE payments
		SET status = 'failed', failure_reason = $1, updated_at = now()
		WHERE id = $2 AND status = 'pending'
	`, reason, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrTerminalStatus
	}
	return nil
}

func (r *repository) Override(ctx context.Context, id uuid.UUID, status Status, actorID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE payments
		SET status = $1, override_by = $2, updated_at = now()
		WHERE id = $3
	`, status, actorID, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

func (r *repository) ExpirePendingBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE payments
		SET status = 'expired', updated_at = now()
		WHERE status = 'pending' AND created_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Payment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE farmer_id = $1 OR customer_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}
