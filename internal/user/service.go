package user

import (
	"context"
	"strings"

	"compost-be/internal/auth"
	"compost-be/internal/logger"
	"compost-be/internal/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type SignUpInput struct {
	Email    string
	Password string
	Name     string
	Phone    string
	Role     auth.Role
	Location string
}

type Service interface {
	SignUp(ctx context.Context, input SignUpInput) (string, *Profile, error)
	SignIn(ctx context.Context, email, password string) (string, *Profile, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Profile, error)
	ListFarmers(ctx context.Context) ([]*Profile, error)
}

type service struct {
	repo      Repository
	jwtSecret string
}

func NewService(repo Repository, jwtSecret string) Service {
	return &service{repo: repo, jwtSecret: jwtSecret}
}

func (s *service) SignUp(ctx context.Context, input SignUpInput) (string, *Profile, error) {
	log := logger.FromCtx(ctx)

	role, err := auth.ParseRole(string(input.Role))
	if err != nil {
		return "", nil, err
	}
	// Admin accounts are provisioned out of band, not through the public
	// signup endpoint.
	if role == auth.RoleAdmin {
		return "", nil, ErrAdminSignupClosed
	}

	phone, err := utils.NormalizePhoneKE(input.Phone)
	if err != nil {
		return "", nil, err
	}

	hashed, err := auth.HashPassword(input.Password)
	if err != nil {
		log.Error("failed to hash password", zap.Error(err))
		return "", nil, err
	}

	p := &Profile{
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		PasswordHash: hashed,
		Name:         input.Name,
		PhoneNumber:  phone,
		Role:         role,
		Location:     input.Location,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		if strings.Contains(err.Error(), "profiles_email_key") {
			return "", nil, ErrEmailExists
		}
		return "", nil, err
	}

	token, err := auth.GenerateJWT(s.jwtSecret, p.ID, p.Role, p.Email)
	if err != nil {
		log.Error("failed to generate jwt", zap.String("user_id", p.ID.String()), zap.Error(err))
		return "", nil, err
	}

	log.Info("signup completed",
		zap.String("user_id", p.ID.String()),
		zap.String("role", p.Role.String()),
	)
	return token, p, nil
}

func (s *service) SignIn(ctx context.Context, email, password string) (string, *Profile, error) {
	p, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return "", nil, ErrInvalidCredentials
	}

	if !auth.CheckPasswordHash(password, p.PasswordHash) {
		return "", nil, ErrInvalidCredentials
	}

	token, err := auth.GenerateJWT(s.jwtSecret, p.ID, p.Role, p.Email)
	if err != nil {
		return "", nil, err
	}

	return token, p, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*Profile, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) ListFarmers(ctx context.Context) ([]*Profile, error) {
	return s.repo.ListByRole(ctx, auth.RoleFarmer)
}
