package notification

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

type Repository interface {
	Insert(ctx context.Context, n *Notification) error
	ListByRecipient(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, limit int) ([]*Notification, error)
	MarkRead(ctx context.Context, id, recipientID uuid.UUID) error
	MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

// execer is satisfied by both *sql.DB and *sql.Tx so lifecycle repositories
// can insert the notification inside the same transaction as the state
// transition it announces.
type execer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const insertQuery = `
	INSERT INTO notifications (recipient_id, type, title, message, related_entity_id)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING id, is_read, created_at
`

// InsertTx writes one notification row using the caller's transaction.
func InsertTx(ctx context.Context, tx execer, n *Notification) error {
	var relatedID any
	if n.RelatedEntityID != nil {
		relatedID = *n.RelatedEntityID
	}

	return tx.QueryRowContext(ctx, insertQuery,
		n.RecipientID, n.Type, n.Title, n.Message, relatedID,
	).Scan(&n.ID, &n.IsRead, &n.CreatedAt)
}

func (r *repository) Insert(ctx context.Context, n *Notification) error {
	return InsertTx(ctx, r.db, n)
}

func (r *repository) ListByRecipient(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, limit int) ([]*Notification, error) {
	q := `
		SELECT id, recipient_id, type, title, message, is_read, related_entity_id, created_at
		FROM notifications
		WHERE recipient_id = $1
	`
	if unreadOnly {
		q += ` AND is_read = false`
	}
	q += ` ORDER BY created_at DESC LIMIT $2`

	rows, err := r.db.QueryContext(ctx, q, recipientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*Notification
	for rows.Next() {
		var n Notification
		var relatedID uuid.NullUUID
		if err := rows.Scan(
			&n.ID, &n.RecipientID, &n.Type, &n.Title, &n.Message,
			&n.IsRead, &relatedID, &n.CreatedAt,
		); err != nil {
			return nil, err
		}
		if relatedID.Valid {
			n.RelatedEntityID = &relatedID.UUID
		}
		list = append(list, &n)
	}
	return list, rows.Err()
}

func (r *repository) MarkRead(ctx context.Context, id, recipientID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = true
		WHERE id = $1 AND recipient_id = $2
	`, id, recipientID)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *repository) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = true
		WHERE recipient_id = $1 AND is_read = false
	`, recipientID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
