package user

import (
	"time"

	"compost-be/internal/auth"

	"github.com/google/uuid"
)

type Profile struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Name         string
	PhoneNumber  string
	Role         auth.Role
	Location     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
