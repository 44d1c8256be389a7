package user

import (
	"context"
	"database/sql"
	"errors"

	"compost-be/internal/auth"
	"compost-be/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Repository interface {
	Create(ctx context.Context, p *Profile) error
	FindByEmail(ctx context.Context, email string) (*Profile, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Profile, error)
	FindByPhone(ctx context.Context, phone string) (*Profile, error)
	ListByRole(ctx context.Context, role auth.Role) ([]*Profile, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const profileColumns = `id, email, password_hash, name, phone_number, role, location, created_at, updated_at`

func (r *repository) Create(ctx context.Context, p *Profile) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO profiles (email, password_hash, name, phone_number, role, location)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, p.Email, p.PasswordHash, p.Name, p.PhoneNumber, p.Role, p.Location,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)

	if err != nil {
		logger.FromCtx(ctx).Error("db: failed to insert profile",
			zap.String("email", p.Email),
			zap.Error(err),
		)
	}
	return err
}

func (r *repository) scanProfile(row *sql.Row) (*Profile, error) {
	var p Profile
	err := row.Scan(
		&p.ID, &p.Email, &p.PasswordHash, &p.Name, &p.PhoneNumber,
		&p.Role, &p.Location, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*Profile, error) {
	return r.scanProfile(r.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE email = $1`, email))
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*Profile, error) {
	return r.scanProfile(r.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id))
}

func (r *repository) FindByPhone(ctx context.Context, phone string) (*Profile, error) {
	return r.scanProfile(r.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE phone_number = $1`, phone))
}

func (r *repository) ListByRole(ctx context.Context, role auth.Role) ([]*Profile, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE role = $1 ORDER BY created_at`, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*Profile
	for rows.Next() {
		var p Profile
		if err := rows.Scan(
			&p.ID, &p.Email, &p.PasswordHash, &p.Name, &p.PhoneNumber,
			&p.Role, &p.Location, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		list = append(list, &p)
	}
	return list, rows.Err()
}
