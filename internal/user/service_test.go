package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"compost-be/internal/auth"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, p *Profile) error {
	args := m.Called(ctx, p)
	if args.Error(0) == nil {
		p.ID = uuid.New()
		p.CreatedAt = time.Now()
		p.UpdatedAt = p.CreatedAt
	}
	return args.Error(0)
}

func (m *MockRepository) FindByEmail(ctx context.Context, email string) (*Profile, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Profile), args.Error(1)
}

func (m *MockRepository) FindByID(ctx context.Context, id uuid.UUID) (*Profile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Profile), args.Error(1)
}

func (m *MockRepository) FindByPhone(ctx context.Context, phone string) (*Profile, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Profile), args.Error(1)
}

func (m *MockRepository) ListByRole(ctx context.Context, role auth.Role) ([]*Profile, error) {
	args := m.Called(ctx, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Profile), args.Error(1)
}

func TestService_SignUp(t *testing.T) {
	ctx := context.Background()

	input := SignUpInput{
		Email:    "Wanjiku@Example.com",
		Password: "secret123",
		Name:     "Wanjiku",
		Phone:    "0712345678",
		Role:     auth.RoleFarmer,
		Location: "Nakuru",
	}

	t.Run("Success", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, testSecret)

		repo.On("Create", ctx, mock.MatchedBy(func(p *Profile) bool {
			return p.Email == "wanjiku@example.com" &&
				p.PhoneNumber == "254712345678" &&
				p.PasswordHash != "secret123"
		})).Return(nil)

		token, profile, err := svc.SignUp(ctx, input)
		require.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.True(t, auth.CheckPasswordHash("secret123", profile.PasswordHash))

		claims, err := auth.ParseJWT(testSecret, token)
		require.NoError(t, err)
		assert.Equal(t, profile.ID, claims.UserID)
		assert.Equal(t, auth.RoleFarmer, claims.Role)
	})

	t.Run("AdminSignupClosed", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, testSecret)

		admin := input
		admin.Role = auth.RoleAdmin
		_, _, err := svc.SignUp(ctx, admin)
		assert.ErrorIs(t, err, ErrAdminSignupClosed)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("UnknownRole", func(t *testing.T) {
		svc := NewService(new(MockRepository), testSecret)

		bad := input
		bad.Role = auth.Role("superuser")
		_, _, err := svc.SignUp(ctx, bad)
		assert.Error(t, err)
	})

	t.Run("BadPhone", func(t *testing.T) {
		svc := NewService(new(MockRepository), testSecret)

		bad := input
		bad.Phone = "12"
		_, _, err := svc.SignUp(ctx, bad)
		assert.Error(t, err)
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, testSecret)

		repo.On("Create", ctx, mock.Anything).
			Return(errors.New(`pq: duplicate key value violates unique constraint "profiles_email_key"`))

		_, _, err := svc.SignUp(ctx, input)
		assert.ErrorIs(t, err, ErrEmailExists)
	})
}

func TestService_SignIn(t *testing.T) {
	ctx := context.Background()

	hashed, err := auth.HashPassword("secret123")
	require.NoError(t, err)

	stored := &Profile{
		ID:           uuid.New(),
		Email:        "wanjiku@example.com",
		PasswordHash: hashed,
		Role:         auth.RoleFarmer,
	}

	t.Run("Success", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, testSecret)

		repo.On("FindByEmail", ctx, "wanjiku@example.com").Return(stored, nil)

		token, profile, err := svc.SignIn(ctx, " Wanjiku@Example.com ", "secret123")
		require.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.Equal(t, stored.ID, profile.ID)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, testSecret)

		repo.On("FindByEmail", ctx, "wanjiku@example.com").Return(stored, nil)

		_, _, err := svc.SignIn(ctx, "wanjiku@example.com", "nope")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("UnknownEmail", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, testSecret)

		repo.On("FindByEmail", ctx, "ghost@example.com").Return(nil, ErrProfileNotFound)

		_, _, err := svc.SignIn(ctx, "ghost@example.com", "secret123")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}
