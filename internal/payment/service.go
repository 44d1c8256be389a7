package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"compost-be/internal/config"
	"compost-be/internal/logger"
	"compost-be/internal/notification"
	"compost-be/internal/realtime"
	"compost-be/internal/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ChargeInput struct {
	CustomerID  uuid.UUID
	OrderID     *uuid.UUID
	PhoneNumber string
	Amount      float64
	PaymentType PaymentType
}

// ChargeResult carries the pending payment together with the gateway's
// customer-facing prompt ("check your phone").
type ChargeResult struct {
	Payment         *Payment
	CustomerMessage string
}

type Service interface {
	// InitiateCharge starts an STK push. The payment stays pending until
	// the callback webhook settles it.
	InitiateCharge(ctx context.Context, input ChargeInput) (*ChargeResult, error)
	// PayoutForReport pays a farmer for a processed waste report over B2C.
	PayoutForReport(ctx context.Context, farmerID, reportID uuid.UUID, phone string, amount float64) (*Payment, error)
	// ConfirmSTKResult reconciles an asynchronous STK callback against the
	// pending payment it correlates to. Duplicate callbacks are no-ops.
	ConfirmSTKResult(ctx context.Context, checkoutRequestID string, resultCode int, resultDesc, receiptNumber string) (*Payment, error)
	// Override is the audited manual correction path for stuck payments.
	Override(ctx context.Context, actorID, paymentID uuid.UUID, status Status) (*Payment, error)
	// ExpirePending sweeps payments whose confirmation never arrived.
	ExpirePending(ctx context.Context, olderThan time.Duration) (int64, error)

	GetByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Payment, error)
}

type service struct {
	repo      Repository
	gateway   Gateway
	cfg       config.MpesaConfig
	notifier  notification.Dispatcher
	publisher realtime.Publisher
}

func NewService(
	repo Repository,
	gateway Gateway,
	cfg config.MpesaConfig,
	notifier notification.Dispatcher,
	publisher realtime.Publisher,
) Service {
	return &service{
		repo:      repo,
		gateway:   gateway,
		cfg:       cfg,
		notifier:  notifier,
		publisher: publisher,
	}
}

func (s *service) InitiateCharge(ctx context.Context, input ChargeInput) (*ChargeResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("customer_id", input.CustomerID.String()),
		zap.Float64("amount", input.Amount),
	)

	if err := s.cfg.ValidateSTK(); err != nil {
		return nil, err
	}
	if input.Amount <= 0 {
		return nil, &ValidationError{Field: "amount", Reason: "must be greater than zero"}
	}

	phone, err := utils.NormalizePhoneKE(input.PhoneNumber)
	if err != nil {
		return nil, &ValidationError{Field: "phone_number", Reason: "expected a 9 or 12 digit Kenyan number"}
	}

	if input.OrderID != nil {
		active, err := s.repo.HasActiveForOrder(ctx, *input.OrderID)
		if err != nil {
			return nil, err
		}
		if active {
			return nil, ErrDuplicatePayment
		}
	}

	paymentType := input.PaymentType
	if paymentType == "" {
		paymentType = TypeManureSale
	}

	p := &Payment{
		CustomerID:     &input.CustomerID,
		OrderID:        input.OrderID,
		Amount:         input.Amount,
		PaymentType:    paymentType,
		Status:         StatusPending,
		PhoneNumber:    phone,
		CorrelationRef: uuid.NewString(),
	}
	if err := s.repo.Create(ctx, p); err != nil {
		log.Error("failed to create payment row", zap.Error(err))
		return nil, err
	}

	resp, err := s.gateway.STKPush(ctx, STKPushRequest{
		PhoneNumber:      phone,
		Amount:           input.Amount,
		AccountReference: p.CorrelationRef,
		Description:      "Captain Compost purchase",
	})
	if err != nil {
		// Initiation failed synchronously, settle the row right away.
		if markErr := s.repo.MarkFailed(ctx, p.ID, err.Error()); markErr != nil {
			log.Error("failed to mark payment failed", zap.Error(markErr))
		}
		p.Status = StatusFailed
		s.publishUpdate(ctx, p)
		return nil, err
	}

	if err := s.repo.SetCheckoutRequestID(ctx, p.ID, resp.CheckoutRequestID); err != nil {
		log.Error("failed to store checkout request id", zap.Error(err))
	}
	p.CheckoutRequestID = &resp.CheckoutRequestID

	log.Info("STK charge initiated",
		zap.String("payment_id", p.ID.String()),
		zap.String("checkout_request_id", resp.CheckoutRequestID),
	)

	return &ChargeResult{Payment: p, CustomerMessage: resp.CustomerMessage}, nil
}

func (s *service) PayoutForReport(ctx context.Context, farmerID, reportID uuid.UUID, phone string, amount float64) (*Payment, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("farmer_id", farmerID.String()),
		zap.String("report_id", reportID.String()),
		zap.Float64("amount", amount),
	)

	if err := s.cfg.ValidateB2C(); err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, &ValidationError{Field: "amount", Reason: "must be greater than zero"}
	}

	normalized, err := utils.NormalizePhoneKE(phone)
	if err != nil {
		return nil, &ValidationError{Field: "phone_number", Reason: "expected a 9 or 12 digit Kenyan number"}
	}

	active, err := s.repo.HasActiveForReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, ErrDuplicatePayment
	}

	p := &Payment{
		FarmerID:       &farmerID,
		ReportID:       &reportID,
		Amount:         amount,
		PaymentType:    TypeWastePurchase,
		Status:         StatusPending,
		PhoneNumber:    normalized,
		CorrelationRef: uuid.NewString(),
	}
	if err := s.repo.Create(ctx, p); err != nil {
		log.Error("failed to create payout row", zap.Error(err))
		return nil, err
	}

	resp, err := s.gateway.B2CPayout(ctx, B2CRequest{
		PhoneNumber: normalized,
		Amount:      amount,
		Reference:   p.CorrelationRef,
		Remarks:     "Waste purchase payout",
	})
	if err != nil {
		if markErr := s.repo.MarkFailed(ctx, p.ID, err.Error()); markErr != nil {
			log.Error("failed to mark payout failed", zap.Error(markErr))
		}
		p.Status = StatusFailed
		s.publishUpdate(ctx, p)
		return p, err
	}

	if err := s.repo.MarkCompleted(ctx, p.ID, resp.TransactionID, resp.Sandbox); err != nil {
		log.Error("failed to mark payout completed", zap.Error(err))
		return p, err
	}
	p.Status = StatusCompleted
	p.MpesaTransactionID = &resp.TransactionID
	p.SandboxMode = resp.Sandbox

	s.publishUpdate(ctx, p)

	_, notifyErr := s.notifier.Notify(ctx, farmerID,
		notification.TypePaymentReceived,
		"Payment Received",
		fmt.Sprintf("KES %.0f has been sent to %s for your waste report.", amount, normalized),
		&reportID,
	)
	if notifyErr != nil {
		log.Warn("payout completed but notification failed", zap.Error(notifyErr))
	}

	log.Info("payout completed",
		zap.String("payment_id", p.ID.String()),
		zap.String("transaction_id", resp.TransactionID),
		zap.Bool("sandbox", resp.Sandbox),
	)
	return p, nil
}

func (s *service) ConfirmSTKResult(ctx context.Context, checkoutRequestID string, resultCode int, resultDesc, receiptNumber string) (*Payment, error) {
	log := logger.FromCtx(ctx).With(zap.String("checkout_request_id", checkoutRequestID))

	p, err := s.repo.GetByCheckoutRequestID(ctx, checkoutRequestID)
	if err != nil {
		return nil, err
	}

	// The gateway may deliver the same callback more than once; settled
	// rows stay settled.
	if p.Status.Terminal() {
		log.Info("ignoring duplicate callback", zap.String("status", string(p.Status)))
		return p, nil
	}

	if resultCode == 0 {
		if err := s.repo.MarkCompleted(ctx, p.ID, receiptNumber, false); err != nil {
			if errors.Is(err, ErrTerminalStatus) {
				return p, nil
			}
			return nil, err
		}
		p.Status = StatusCompleted
		p.MpesaTransactionID = &receiptNumber

		if p.CustomerID != nil {
			_, notifyErr := s.notifier.Notify(ctx, *p.CustomerID,
				notification.TypePaymentReceived,
				"Payment Received",
				fmt.Sprintf("Your payment of KES %.0f was received. Receipt: %s.", p.Amount, receiptNumber),
				p.OrderID,
			)
			if notifyErr != nil {
				log.Warn("payment confirmed but notification failed", zap.Error(notifyErr))
			}
		}
		log.Info("STK payment completed", zap.String("receipt", receiptNumber))
	} else {
		if err := s.repo.MarkFailed(ctx, p.ID, resultDesc); err != nil {
			if errors.Is(err, ErrTerminalStatus) {
				return p, nil
			}
			return nil, err
		}
		p.Status = StatusFailed
		p.FailureReason = &resultDesc
		log.Info("STK payment failed",
			zap.Int("result_code", resultCode),
			zap.String("result_desc", resultDesc),
		)
	}

	s.publishUpdate(ctx, p)
	return p, nil
}

func (s *service) Override(ctx context.Context, actorID, paymentID uuid.UUID, status Status) (*Payment, error) {
	if status != StatusCompleted && status != StatusFailed {
		return nil, &ValidationError{Field: "status", Reason: "override only allows completed or failed"}
	}

	if err := s.repo.Override(ctx, paymentID, status, actorID); err != nil {
		return nil, err
	}

	logger.FromCtx(ctx).Warn("payment status overridden by admin",
		zap.String("payment_id", paymentID.String()),
		zap.String("actor_id", actorID.String()),
		zap.String("status", string(status)),
	)

	p, err := s.repo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	s.publishUpdate(ctx, p)
	return p, nil
}

func (s *service) ExpirePending(ctx context.Context, olderThan time.Duration) (int64, error) {
	count, err := s.repo.ExpirePendingBefore(ctx, time.Now().Add(-olderThan))
	if err != nil {
		return 0, err
	}
	if count > 0 {
		logger.FromCtx(ctx).Info("expired stale pending payments", zap.Int64("count", count))
	}
	return count, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*Payment, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Payment, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *service) publishUpdate(ctx context.Context, p *Payment) {
	ev, err := realtime.NewEvent("payments", realtime.EventUpdate, nil, p)
	if err != nil {
		return
	}
	_ = s.publisher.Publish(ctx, ev)
}
