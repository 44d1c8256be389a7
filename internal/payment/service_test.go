package payment

import (
	"context"
	"testing"
	"time"

	"compost-be/internal/config"
	"compost-be/internal/notification"
	"compost-be/internal/realtime"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, p *Payment) error {
	args := m.Called(ctx, p)
	if args.Error(0) == nil {
		p.ID = uuid.New()
		p.CreatedAt = time.Now()
		p.UpdatedAt = p.CreatedAt
	}
	return args.Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, id uuid.UUID) (*Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Payment), args.Error(1)
}

func (m *MockRepository) GetByCorrelationRef(ctx context.Context, ref string) (*Payment, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Payment), args.Error(1)
}

func (m *MockRepository) GetByCheckoutRequestID(ctx context.Context, checkoutID string) (*Payment, error) {
	args := m.Called(ctx, checkoutID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Payment), args.Error(1)
}

func (m *MockRepository) HasActiveForReport(ctx context.Context, reportID uuid.UUID) (bool, error) {
	args := m.Called(ctx, reportID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) HasActiveForOrder(ctx context.Context, orderID uuid.UUID) (bool, error) {
	args := m.Called(ctx, orderID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) SetCheckoutRequestID(ctx context.Context, id uuid.UUID, checkoutID string) error {
	return m.Called(ctx, id, checkoutID).Error(0)
}

func (m *MockRepository) MarkCompleted(ctx context.Context, id uuid.UUID, mpesaTxnID string, sandbox bool) error {
	return m.Called(ctx, id, mpesaTxnID, sandbox).Error(0)
}

func (m *MockRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return m.Called(ctx, id, reason).Error(0)
}

func (m *MockRepository) Override(ctx context.Context, id uuid.UUID, status Status, actorID uuid.UUID) error {
	return m.Called(ctx, id, status, actorID).Error(0)
}

func (m *MockRepository) ExpirePendingBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Payment, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Payment), args.Error(1)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) STKPush(ctx context.Context, req STKPushRequest) (*STKPushResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*STKPushResponse), args.Error(1)
}

func (m *MockGateway) B2CPayout(ctx context.Context, req B2CRequest) (*B2CResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*B2CResponse), args.Error(1)
}

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Notify(ctx context.Context, recipientID uuid.UUID, typ notification.Type, title, message string, relatedEntityID *uuid.UUID) (*notification.Notification, error) {
	args := m.Called(ctx, recipientID, typ, title, message, relatedEntityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notification.Notification), args.Error(1)
}

func serviceMpesaConfig() config.MpesaConfig {
	return config.MpesaConfig{
		BaseURL:            "https://api.safaricom.example",
		ConsumerKey:        "key",
		ConsumerSecret:     "secret",
		ShortCode:          "174379",
		Passkey:            "passkey",
		InitiatorName:      "initiator",
		SecurityCredential: "credential",
	}
}

func newTestService(repo *MockRepository, gw *MockGateway, disp *MockDispatcher) Service {
	return NewService(repo, gw, serviceMpesaConfig(), disp, realtime.NoopPublisher{})
}

func TestService_InitiateCharge(t *testing.T) {
	ctx := context.Background()
	customerID := uuid.New()
	orderID := uuid.New()

	input := ChargeInput{
		CustomerID:  customerID,
		OrderID:     &orderID,
		PhoneNumber: "0712345678",
		Amount:      2500,
		PaymentType: TypeManureSale,
	}

	t.Run("Success", func(t *testing.T) {
		repo := new(MockRepository)
		gw := new(MockGateway)
		svc := newTestService(repo, gw, new(MockDispatcher))

		repo.On("HasActiveForOrder", ctx, orderID).Return(false, nil)
		repo.On("Create", ctx, mock.MatchedBy(func(p *Payment) bool {
			return p.Status == StatusPending &&
				p.PhoneNumber == "254712345678" &&
				p.CorrelationRef != ""
		})).Return(nil)
		gw.On("STKPush", ctx, mock.MatchedBy(func(req STKPushRequest) bool {
			return req.PhoneNumber == "254712345678" && req.Amount == 2500
		})).Return(&STKPushResponse{
			CheckoutRequestID: "ws_CO_42",
			ResponseCode:      "0",
			CustomerMessage:   "Check your phone",
		}, nil)
		repo.On("SetCheckoutRequestID", ctx, mock.Anything, "ws_CO_42").Return(nil)

		result, err := svc.InitiateCharge(ctx, input)
		require.NoError(t, err)
		assert.Equal(t, StatusPending, result.Payment.Status)
		assert.Equal(t, "Check your phone", result.CustomerMessage)
		assert.Equal(t, "ws_CO_42", *result.Payment.CheckoutRequestID)
		repo.AssertExpectations(t)
		gw.AssertExpectations(t)
	})

	t.Run("DuplicateOrderPayment", func(t *testing.T) {
		repo := new(MockRepository)
		gw := new(MockGateway)
		svc := newTestService(repo, gw, new(MockDispatcher))

		repo.On("HasActiveForOrder", ctx, orderID).Return(true, nil)

		_, err := svc.InitiateCharge(ctx, input)
		assert.ErrorIs(t, err, ErrDuplicatePayment)
		gw.AssertNotCalled(t, "STKPush", mock.Anything, mock.Anything)
	})

	t.Run("InvalidPhone", func(t *testing.T) {
		svc := newTestService(new(MockRepository), new(MockGateway), new(MockDispatcher))

		bad := input
		bad.PhoneNumber = "123"
		_, err := svc.InitiateCharge(ctx, bad)

		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "phone_number", vErr.Field)
	})

	t.Run("InvalidAmount", func(t *testing.T) {
		svc := newTestService(new(MockRepository), new(MockGateway), new(MockDispatcher))

		bad := input
		bad.Amount = 0
		_, err := svc.InitiateCharge(ctx, bad)

		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "amount", vErr.Field)
	})

	t.Run("MissingGatewayConfig", func(t *testing.T) {
		svc := NewService(new(MockRepository), new(MockGateway), config.MpesaConfig{}, new(MockDispatcher), realtime.NoopPublisher{})

		_, err := svc.InitiateCharge(ctx, input)
		assert.ErrorIs(t, err, config.ErrGatewayConfig)
	})

	t.Run("GatewayFailureMarksFailed", func(t *testing.T) {
		repo := new(MockRepository)
		gw := new(MockGateway)
		svc := newTestService(repo, gw, new(MockDispatcher))

		repo.On("HasActiveForOrder", ctx, orderID).Return(false, nil)
		repo.On("Create", ctx, mock.Anything).Return(nil)
		gw.On("STKPush", ctx, mock.Anything).Return(nil, &GatewayError{Code: "1", Description: "rejected"})
		repo.On("MarkFailed", ctx, mock.Anything, mock.Anything).Return(nil)

		_, err := svc.InitiateCharge(ctx, input)
		require.Error(t, err)
		repo.AssertCalled(t, "MarkFailed", ctx, mock.Anything, mock.Anything)
	})
}

func TestService_PayoutForReport(t *testing.T) {
	ctx := context.Background()
	farmerID := uuid.New()
	reportID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		repo := new(MockRepository)
		gw := new(MockGateway)
		disp := new(MockDispatcher)
		svc := newTestService(repo, gw, disp)

		repo.On("HasActiveForReport", ctx, reportID).Return(false, nil)
		repo.On("Create", ctx, mock.MatchedBy(func(p *Payment) bool {
			return p.PaymentType == TypeWastePurchase && *p.ReportID == reportID
		})).Return(nil)
		gw.On("B2CPayout", ctx, mock.Anything).Return(&B2CResponse{
			TransactionID: "AG_99",
			ResponseCode:  "0",
		}, nil)
		repo.On("MarkCompleted", ctx, mock.Anything, "AG_99", false).Return(nil)
		disp.On("Notify", ctx, farmerID, notification.TypePaymentReceived,
			mock.Anything, mock.Anything, &reportID).Return(&notification.Notification{}, nil)

		p, err := svc.PayoutForReport(ctx, farmerID, reportID, "0712345678", 1500)
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, p.Status)
		assert.Equal(t, "AG_99", *p.MpesaTransactionID)
		assert.False(t, p.SandboxMode)
		disp.AssertExpectations(t)
	})

	t.Run("SandboxMarkerPersisted", func(t *testing.T) {
		repo := new(MockRepository)
		gw := new(MockGateway)
		disp := new(MockDispatcher)
		svc := newTestService(repo, gw, disp)

		repo.On("HasActiveForReport", ctx, reportID).Return(false, nil)
		repo.On("Create", ctx, mock.Anything).Return(nil)
		gw.On("B2CPayout", ctx, mock.Anything).Return(&B2CResponse{
			TransactionID: "SANDBOX-abc12345",
			ResponseCode:  "0",
			Sandbox:       true,
		}, nil)
		repo.On("MarkCompleted", ctx, mock.Anything, "SANDBOX-abc12345", true).Return(nil)
		disp.On("Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(&notification.Notification{}, nil)

		p, err := svc.PayoutForReport(ctx, farmerID, reportID, "0712345678", 1500)
		require.NoError(t, err)
		assert.True(t, p.SandboxMode)
		repo.AssertCalled(t, "MarkCompleted", ctx, mock.Anything, "SANDBOX-abc12345", true)
	})

	t.Run("DuplicatePayout", func(t *testing.T) {
		repo := new(MockRepository)
		gw := new(MockGateway)
		svc := newTestService(repo, gw, new(MockDispatcher))

		repo.On("HasActiveForReport", ctx, reportID).Return(true, nil)

		_, err := svc.PayoutForReport(ctx, farmerID, reportID, "0712345678", 1500)
		assert.ErrorIs(t, err, ErrDuplicatePayment)
		gw.AssertNotCalled(t, "B2CPayout", mock.Anything, mock.Anything)
	})

	t.Run("GatewayFailureLeavesRetryableRow", func(t *testing.T) {
		repo := new(MockRepository)
		gw := new(MockGateway)
		svc := newTestService(repo, gw, new(MockDispatcher))

		repo.On("HasActiveForReport", ctx, reportID).Return(false, nil)
		repo.On("Create", ctx, mock.Anything).Return(nil)
		gw.On("B2CPayout", ctx, mock.Anything).Return(nil, &GatewayError{Code: "500", Description: "down"})
		repo.On("MarkFailed", ctx, mock.Anything, mock.Anything).Return(nil)

		p, err := svc.PayoutForReport(ctx, farmerID, reportID, "0712345678", 1500)
		require.Error(t, err)
		require.NotNil(t, p)
		assert.Equal(t, StatusFailed, p.Status)
	})
}

func TestService_ConfirmSTKResult(t *testing.T) {
	ctx := context.Background()
	customerID := uuid.New()

	pending := func() *Payment {
		return &Payment{
			ID:         uuid.New(),
			CustomerID: &customerID,
			Amount:     2500,
			Status:     StatusPending,
		}
	}

	t.Run("SuccessCallback", func(t *testing.T) {
		repo := new(MockRepository)
		disp := new(MockDispatcher)
		svc := newTestService(repo, new(MockGateway), disp)

		p := pending()
		repo.On("GetByCheckoutRequestID", ctx, "ws_CO_1").Return(p, nil)
		repo.On("MarkCompleted", ctx, p.ID, "RCPT123", false).Return(nil)
		disp.On("Notify", ctx, customerID, notification.TypePaymentReceived,
			mock.Anything, mock.Anything, mock.Anything).Return(&notification.Notification{}, nil)

		got, err := svc.ConfirmSTKResult(ctx, "ws_CO_1", 0, "Success", "RCPT123")
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, got.Status)
	})

	t.Run("FailureCallback", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, new(MockGateway), new(MockDispatcher))

		p := pending()
		repo.On("GetByCheckoutRequestID", ctx, "ws_CO_2").Return(p, nil)
		repo.On("MarkFailed", ctx, p.ID, "Request cancelled by user").Return(nil)

		got, err := svc.ConfirmSTKResult(ctx, "ws_CO_2", 1032, "Request cancelled by user", "")
		require.NoError(t, err)
		assert.Equal(t, StatusFailed, got.Status)
		assert.Equal(t, "Request cancelled by user", *got.FailureReason)
	})

	t.Run("DuplicateCallbackIsNoop", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, new(MockGateway), new(MockDispatcher))

		settled := pending()
		settled.Status = StatusCompleted
		repo.On("GetByCheckoutRequestID", ctx, "ws_CO_3").Return(settled, nil)

		got, err := svc.ConfirmSTKResult(ctx, "ws_CO_3", 0, "Success", "RCPT999")
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, got.Status)
		repo.AssertNotCalled(t, "MarkCompleted", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("UnknownCheckoutID", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, new(MockGateway), new(MockDispatcher))

		repo.On("GetByCheckoutRequestID", ctx, "ws_CO_unknown").Return(nil, ErrPaymentNotFound)

		_, err := svc.ConfirmSTKResult(ctx, "ws_CO_unknown", 0, "Success", "RCPT")
		assert.ErrorIs(t, err, ErrPaymentNotFound)
	})
}

func TestService_Override(t *testing.T) {
	ctx := context.Background()
	actorID := uuid.New()
	paymentID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, new(MockGateway), new(MockDispatcher))

		repo.On("Override", ctx, paymentID, StatusCompleted, actorID).Return(nil)
		repo.On("GetByID", ctx, paymentID).Return(&Payment{
			ID:         paymentID,
			Status:     StatusCompleted,
			OverrideBy: &actorID,
		}, nil)

		p, err := svc.Override(ctx, actorID, paymentID, StatusCompleted)
		require.NoError(t, err)
		assert.Equal(t, actorID, *p.OverrideBy)
	})

	t.Run("RejectsNonTerminalTarget", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, new(MockGateway), new(MockDispatcher))

		_, err := svc.Override(ctx, actorID, paymentID, StatusPending)
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		repo.AssertNotCalled(t, "Override", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestService_ExpirePending(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	svc := newTestService(repo, new(MockGateway), new(MockDispatcher))

	repo.On("ExpirePendingBefore", ctx, mock.MatchedBy(func(cutoff time.Time) bool {
		return time.Since(cutoff) >= 29*time.Minute
	})).Return(int64(3), nil)

	count, err := svc.ExpirePending(ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}
