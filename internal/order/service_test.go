package order

import (
	"context"
	"testing"
	"time"

	"compost-be/internal/notification"
	"compost-be/internal/product"
	"compost-be/internal/realtime"
	"compost-be/internal/rider"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateTx(ctx context.Context, o *Order) error {
	args := m.Called(ctx, o)
	if args.Error(0) == nil {
		o.ID = uuid.New()
		o.CreatedAt = time.Now()
		o.UpdatedAt = o.CreatedAt
	}
	return args.Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Order), args.Error(1)
}

func (m *MockRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*Order, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Order), args.Error(1)
}

func (m *MockRepository) ListByStatus(ctx context.Context, status *Status) ([]*Order, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Order), args.Error(1)
}

func (m *MockRepository) TransitionTx(ctx context.Context, o *Order, from Status, notes []*notification.Notification) error {
	return m.Called(ctx, o, from, notes).Error(0)
}

func (m *MockRepository) FarmerIDsForOrder(ctx context.Context, orderID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

type MockRiderRepo struct {
	mock.Mock
}

func (m *MockRiderRepo) Create(ctx context.Context, r *rider.Rider) error {
	return m.Called(ctx, r).Error(0)
}

func (m *MockRiderRepo) GetByID(ctx context.Context, id uuid.UUID) (*rider.Rider, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rider.Rider), args.Error(1)
}

func (m *MockRiderRepo) List(ctx context.Context, onlyAvailable bool) ([]*rider.Rider, error) {
	args := m.Called(ctx, onlyAvailable)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*rider.Rider), args.Error(1)
}

func (m *MockRiderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status rider.Status) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *MockRiderRepo) IncrementAssignments(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockRiderRepo) RecordDelivery(ctx context.Context, id uuid.UUID, success bool) error {
	return m.Called(ctx, id, success).Error(0)
}

type MockProductRepo struct {
	mock.Mock
}

func (m *MockProductRepo) GetByID(ctx context.Context, id uuid.UUID) (*product.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*product.Product), args.Error(1)
}

func (m *MockProductRepo) List(ctx context.Context) ([]*product.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*product.Product), args.Error(1)
}

func (m *MockProductRepo) AddProcessedKg(ctx context.Context, sourceReportID uuid.UUID, kg float64) error {
	return m.Called(ctx, sourceReportID, kg).Error(0)
}

func (m *MockProductRepo) ListInventory(ctx context.Context, limit int) ([]*product.InventoryEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*product.InventoryEntry), args.Error(1)
}

type orderFixture struct {
	repo     *MockRepository
	riders   *MockRiderRepo
	products *MockProductRepo
	svc      Service
}

func newFixture() *orderFixture {
	f := &orderFixture{
		repo:     new(MockRepository),
		riders:   new(MockRiderRepo),
		products: new(MockProductRepo),
	}
	f.svc = NewService(f.repo, f.riders, f.products, realtime.NoopPublisher{})
	return f
}

func orderInStatus(status Status) *Order {
	return &Order{
		ID:         uuid.New(),
		CustomerID: uuid.New(),
		QuantityKg: 100,
		PricePerKg: 25,
		TotalAmount: 2500,
		Status:     status,
	}
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	customerID := uuid.New()

	t.Run("DirectPurchaseTotalFixedAtCreation", func(t *testing.T) {
		f := newFixture()
		f.repo.On("CreateTx", ctx, mock.MatchedBy(func(o *Order) bool {
			return o.Status == StatusPending && o.TotalAmount == 2500
		})).Return(nil)

		o, err := f.svc.Create(ctx, customerID, CreateInput{QuantityKg: 100, PricePerKg: 25})
		require.NoError(t, err)
		assert.Equal(t, 2500.0, o.TotalAmount)
	})

	t.Run("CatalogItemsPricedFromProducts", func(t *testing.T) {
		f := newFixture()
		p := &product.Product{ID: uuid.New(), SKU: product.BaseCompostSKU, PricePerKg: 30}

		f.products.On("GetByID", ctx, p.ID).Return(p, nil)
		f.repo.On("CreateTx", ctx, mock.MatchedBy(func(o *Order) bool {
			return len(o.Items) == 1 &&
				o.Items[0].PricePerKg == 30 &&
				o.TotalAmount == 1200 &&
				o.QuantityKg == 40
		})).Return(nil)

		o, err := f.svc.Create(ctx, customerID, CreateInput{
			Items: []ItemInput{{ProductID: p.ID, QuantityKg: 40}},
		})
		require.NoError(t, err)
		assert.Equal(t, 1200.0, o.TotalAmount)
	})

	t.Run("RejectsZeroQuantity", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.Create(ctx, customerID, CreateInput{QuantityKg: 0, PricePerKg: 25})
		assert.Error(t, err)
		f.repo.AssertNotCalled(t, "CreateTx", mock.Anything, mock.Anything)
	})

	t.Run("InsufficientStock", func(t *testing.T) {
		f := newFixture()
		p := &product.Product{ID: uuid.New(), PricePerKg: 30}

		f.products.On("GetByID", ctx, p.ID).Return(p, nil)
		f.repo.On("CreateTx", ctx, mock.Anything).Return(ErrInsufficientStock)

		_, err := f.svc.Create(ctx, customerID, CreateInput{
			Items: []ItemInput{{ProductID: p.ID, QuantityKg: 9999}},
		})
		assert.ErrorIs(t, err, ErrInsufficientStock)
	})
}

func TestService_Transitions(t *testing.T) {
	ctx := context.Background()

	t.Run("CancelRejectedAfterDispatch", func(t *testing.T) {
		for _, status := range []Status{StatusOutForDelivery, StatusDelivered, StatusCancelled} {
			f := newFixture()
			o := orderInStatus(status)
			f.repo.On("GetByID", ctx, o.ID).Return(o, nil)

			_, err := f.svc.Cancel(ctx, o.ID)

			var invalid *InvalidTransitionError
			require.ErrorAs(t, err, &invalid, "status %s", status)
			assert.Equal(t, status, invalid.From)
		}
	})

	t.Run("DeliveryRequiresOutForDelivery", func(t *testing.T) {
		f := newFixture()
		o := orderInStatus(StatusConfirmed)
		f.repo.On("GetByID", ctx, o.ID).Return(o, nil)

		_, err := f.svc.MarkDelivered(ctx, o.ID)

		var invalid *InvalidTransitionError
		require.ErrorAs(t, err, &invalid)
	})

	t.Run("StartDeliveryRequiresConfirmed", func(t *testing.T) {
		f := newFixture()
		o := orderInStatus(StatusPending)
		f.repo.On("GetByID", ctx, o.ID).Return(o, nil)

		_, err := f.svc.StartDelivery(ctx, o.ID)

		var invalid *InvalidTransitionError
		require.ErrorAs(t, err, &invalid)
	})
}

func TestService_AssignRider(t *testing.T) {
	ctx := context.Background()
	rd := &rider.Rider{
		ID:          uuid.New(),
		Name:        "Grace Njeri",
		PhoneNumber: "254700333444",
		Status:      rider.StatusAvailable,
	}

	f := newFixture()
	o := orderInStatus(StatusPending)

	f.repo.On("GetByID", ctx, o.ID).Return(o, nil)
	f.riders.On("GetByID", ctx, rd.ID).Return(rd, nil)
	f.repo.On("TransitionTx", ctx, mock.Anything, StatusPending,
		mock.MatchedBy(func(notes []*notification.Notification) bool {
			return len(notes) == 1 &&
				notes[0].RecipientID == o.CustomerID &&
				notes[0].Type == notification.TypeRiderAssigned
		})).Return(nil)
	f.riders.On("IncrementAssignments", ctx, rd.ID).Return(nil)

	got, err := f.svc.AssignRider(ctx, o.ID, rd.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, got.Status)
	assert.Equal(t, rd.ID, *got.AssignedRider)
}

// Delivery notifies the customer once and each linked farmer once; farmers
// with no batch in the order hear nothing.
func TestService_MarkDelivered_FanOut(t *testing.T) {
	ctx := context.Background()

	f := newFixture()
	o := orderInStatus(StatusOutForDelivery)
	riderID := uuid.New()
	o.AssignedRider = &riderID

	farmerA := uuid.New()
	farmerB := uuid.New()
	f.repo.On("GetByID", ctx, o.ID).Return(o, nil)
	f.repo.On("FarmerIDsForOrder", ctx, o.ID).Return([]uuid.UUID{farmerA, farmerB}, nil)
	f.repo.On("TransitionTx", ctx, mock.Anything, StatusOutForDelivery,
		mock.MatchedBy(func(notes []*notification.Notification) bool {
			if len(notes) != 3 {
				return false
			}
			if notes[0].RecipientID != o.CustomerID || notes[0].Type != notification.TypeOrderStatus {
				return false
			}
			recipients := map[uuid.UUID]bool{}
			for _, n := range notes[1:] {
				if n.Type != notification.TypeDeliverySuccess {
					return false
				}
				recipients[n.RecipientID] = true
			}
			return recipients[farmerA] && recipients[farmerB]
		})).Return(nil)
	f.riders.On("RecordDelivery", ctx, riderID, true).Return(nil)

	got, err := f.svc.MarkDelivered(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, got.Status)
	require.NotNil(t, got.DeliveredAt)
	f.repo.AssertExpectations(t)
	f.riders.AssertExpectations(t)
}

func TestService_MarkDelivered_NoLinkedFarmers(t *testing.T) {
	ctx := context.Background()

	f := newFixture()
	o := orderInStatus(StatusOutForDelivery)

	f.repo.On("GetByID", ctx, o.ID).Return(o, nil)
	f.repo.On("FarmerIDsForOrder", ctx, o.ID).Return([]uuid.UUID{}, nil)
	f.repo.On("TransitionTx", ctx, mock.Anything, StatusOutForDelivery,
		mock.MatchedBy(func(notes []*notification.Notification) bool {
			return len(notes) == 1 && notes[0].RecipientID == o.CustomerID
		})).Return(nil)

	_, err := f.svc.MarkDelivered(ctx, o.ID)
	require.NoError(t, err)
}

func TestService_Cancel(t *testing.T) {
	ctx := context.Background()

	f := newFixture()
	o := orderInStatus(StatusConfirmed)
	riderID := uuid.New()
	o.AssignedRider = &riderID

	f.repo.On("GetByID", ctx, o.ID).Return(o, nil)
	f.repo.On("TransitionTx", ctx, mock.Anything, StatusConfirmed, mock.Anything).Return(nil)
	f.riders.On("RecordDelivery", ctx, riderID, false).Return(nil)

	got, err := f.svc.Cancel(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)
	f.riders.AssertCalled(t, "RecordDelivery", ctx, riderID, false)
}

func TestService_GetForCustomer(t *testing.T) {
	ctx := context.Background()

	f := newFixture()
	o := orderInStatus(StatusPending)
	f.repo.On("GetByID", ctx, o.ID).Return(o, nil)

	_, err := f.svc.GetForCustomer(ctx, o.ID, uuid.New())
	assert.ErrorIs(t, err, ErrUnauthorized)

	got, err := f.svc.GetForCustomer(ctx, o.ID, o.CustomerID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)
}
