package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"compost-be/internal/logger"
	"compost-be/internal/notification"
	"compost-be/internal/product"
	"compost-be/internal/realtime"
	"compost-be/internal/rider"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ItemInput struct {
	ProductID  uuid.UUID
	QuantityKg float64
}

type CreateInput struct {
	Items []ItemInput
	// QuantityKg and PricePerKg cover the direct bulk purchase flow with
	// no catalog items attached.
	QuantityKg      float64
	PricePerKg      float64
	SourceReportIDs []uuid.UUID
}

type Service interface {
	Create(ctx context.Context, customerID uuid.UUID, input CreateInput) (*Order, error)
	Get(ctx context.Context, id uuid.UUID) (*Order, error)
	GetForCustomer(ctx context.Context, id, customerID uuid.UUID) (*Order, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*Order, error)
	List(ctx context.Context, status *Status) ([]*Order, error)

	AssignRider(ctx context.Context, orderID, riderID uuid.UUID) (*Order, error)
	StartDelivery(ctx context.Context, orderID uuid.UUID) (*Order, error)
	MarkDelivered(ctx context.Context, orderID uuid.UUID) (*Order, error)
	Cancel(ctx context.Context, orderID uuid.UUID) (*Order, error)
}

type service struct {
	repo      Repository
	riders    rider.Repository
	products  product.Repository
	publisher realtime.Publisher
}

func NewService(repo Repository, riders rider.Repository, products product.Repository, publisher realtime.Publisher) Service {
	return &service{
		repo:      repo,
		riders:    riders,
		products:  products,
		publisher: publisher,
	}
}

// Create computes the order total at creation time; it is never re-derived
// afterwards.
func (s *service) Create(ctx context.Context, customerID uuid.UUID, input CreateInput) (*Order, error) {
	log := logger.FromCtx(ctx).With(zap.String("customer_id", customerID.String()))

	o := &Order{
		CustomerID:      customerID,
		Status:          StatusPending,
		SourceReportIDs: input.SourceReportIDs,
	}

	if len(input.Items) > 0 {
		for _, item := range input.Items {
			if item.QuantityKg <= 0 {
				return nil, errors.New("item quantity must be greater than zero")
			}
			p, err := s.products.GetByID(ctx, item.ProductID)
			if err != nil {
				return nil, err
			}
			o.Items = append(o.Items, OrderItem{
				ProductID:  p.ID,
				QuantityKg: item.QuantityKg,
				PricePerKg: p.PricePerKg,
			})
			o.QuantityKg += item.QuantityKg
			o.TotalAmount += item.QuantityKg * p.PricePerKg
		}
		o.PricePerKg = o.TotalAmount / o.QuantityKg
	} else {
		if input.QuantityKg <= 0 {
			return nil, errors.New("quantity must be greater than zero")
		}
		if input.PricePerKg <= 0 {
			return nil, errors.New("price per kg must be greater than zero")
		}
		o.QuantityKg = input.QuantityKg
		o.PricePerKg = input.PricePerKg
		o.TotalAmount = input.QuantityKg * input.PricePerKg
	}

	if err := s.repo.CreateTx(ctx, o); err != nil {
		log.Error("failed to create order", zap.Error(err))
		return nil, err
	}

	s.publish(ctx, realtime.EventInsert, nil, o)

	log.Info("order created",
		zap.String("order_id", o.ID.String()),
		zap.Float64("total_amount", o.TotalAmount),
	)
	return o, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) GetForCustomer(ctx context.Context, id, customerID uuid.UUID) (*Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.CustomerID != customerID {
		return nil, ErrUnauthorized
	}
	return o, nil
}

func (s *service) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*Order, error) {
	return s.repo.ListByCustomer(ctx, customerID)
}

func (s *service) List(ctx context.Context, status *Status) ([]*Order, error) {
	return s.repo.ListByStatus(ctx, status)
}

func (s *service) AssignRider(ctx context.Context, orderID, riderID uuid.UUID) (*Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(o.Status, StatusConfirmed) {
		return nil, &InvalidTransitionError{From: o.Status, To: StatusConfirmed}
	}

	rd, err := s.riders.GetByID(ctx, riderID)
	if err != nil {
		return nil, err
	}
	if rd.Status == rider.StatusOffline {
		return nil, rider.ErrRiderUnavailable
	}

	old := *o
	o.Status = StatusConfirmed
	o.AssignedRider = &rd.ID

	notes := []*notification.Notification{{
		RecipientID:     o.CustomerID,
		Type:            notification.TypeRiderAssigned,
		Title:           "Rider Assigned",
		Message:         fmt.Sprintf("%s (%s) will deliver your order.", rd.Name, rd.PhoneNumber),
		RelatedEntityID: &o.ID,
	}}

	if err := s.repo.TransitionTx(ctx, o, old.Status, notes); err != nil {
		return nil, err
	}

	if err := s.riders.IncrementAssignments(ctx, rd.ID); err != nil {
		logger.FromCtx(ctx).Warn("failed to bump rider assignment count",
			zap.String("rider_id", rd.ID.String()),
			zap.Error(err),
		)
	}

	s.publish(ctx, realtime.EventUpdate, &old, o)
	s.publishNotifications(ctx, notes)
	return o, nil
}

func (s *service) StartDelivery(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(o.Status, StatusOutForDelivery) {
		return nil, &InvalidTransitionError{From: o.Status, To: StatusOutForDelivery}
	}

	old := *o
	o.Status = StatusOutForDelivery

	notes := []*notification.Notification{{
		RecipientID:     o.CustomerID,
		Type:            notification.TypeOrderStatus,
		Title:           "Order Out for Delivery",
		Message:         fmt.Sprintf("Your order of %.0f kg is on its way.", o.QuantityKg),
		RelatedEntityID: &o.ID,
	}}

	if err := s.repo.TransitionTx(ctx, o, old.Status, notes); err != nil {
		return nil, err
	}

	s.publish(ctx, realtime.EventUpdate, &old, o)
	s.publishNotifications(ctx, notes)
	return o, nil
}

// MarkDelivered completes the order. The customer gets an order_status
// notification and the farmers whose batches went into the order each get
// a delivery_success one; nobody else is notified.
func (s *service) MarkDelivered(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(o.Status, StatusDelivered) {
		return nil, &InvalidTransitionError{From: o.Status, To: StatusDelivered}
	}

	farmerIDs, err := s.repo.FarmerIDsForOrder(ctx, o.ID)
	if err != nil {
		return nil, err
	}

	old := *o
	now := time.Now()
	o.Status = StatusDelivered
	o.DeliveredAt = &now

	notes := []*notification.Notification{{
		RecipientID:     o.CustomerID,
		Type:            notification.TypeOrderStatus,
		Title:           "Order Delivered",
		Message:         fmt.Sprintf("Your order of %.0f kg has been delivered.", o.QuantityKg),
		RelatedEntityID: &o.ID,
	}}
	for _, farmerID := range farmerIDs {
		notes = append(notes, &notification.Notification{
			RecipientID:     farmerID,
			Type:            notification.TypeDeliverySuccess,
			Title:           "Your Compost Was Delivered",
			Message:         "Manure made from your waste batch reached a customer.",
			RelatedEntityID: &o.ID,
		})
	}

	if err := s.repo.TransitionTx(ctx, o, old.Status, notes); err != nil {
		return nil, err
	}

	if o.AssignedRider != nil {
		if err := s.riders.RecordDelivery(ctx, *o.AssignedRider, true); err != nil {
			logger.FromCtx(ctx).Warn("failed to record rider delivery",
				zap.String("rider_id", o.AssignedRider.String()),
				zap.Error(err),
			)
		}
	}

	s.publish(ctx, realtime.EventUpdate, &old, o)
	s.publishNotifications(ctx, notes)
	return o, nil
}

func (s *service) Cancel(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(o.Status, StatusCancelled) {
		return nil, &InvalidTransitionError{From: o.Status, To: StatusCancelled}
	}

	old := *o
	o.Status = StatusCancelled

	notes := []*notification.Notification{{
		RecipientID:     o.CustomerID,
		Type:            notification.TypeOrderStatus,
		Title:           "Order Cancelled",
		Message:         fmt.Sprintf("Your order of %.0f kg has been cancelled.", o.QuantityKg),
		RelatedEntityID: &o.ID,
	}}

	if err := s.repo.TransitionTx(ctx, o, old.Status, notes); err != nil {
		return nil, err
	}

	if o.AssignedRider != nil {
		if err := s.riders.RecordDelivery(ctx, *o.AssignedRider, false); err != nil {
			logger.FromCtx(ctx).Warn("failed to record cancelled delivery",
				zap.String("rider_id", o.AssignedRider.String()),
				zap.Error(err),
			)
		}
	}

	s.publish(ctx, realtime.EventUpdate, &old, o)
	s.publishNotifications(ctx, notes)
	return o, nil
}

func (s *service) publish(ctx context.Context, typ realtime.EventType, oldRow, newRow any) {
	ev, err := realtime.NewEvent("orders", typ, oldRow, newRow)
	if err != nil {
		logger.FromCtx(ctx).Warn("failed to build order event", zap.Error(err))
		return
	}
	_ = s.publisher.Publish(ctx, ev)
}

func (s *service) publishNotifications(ctx context.Context, notes []*notification.Notification) {
	for _, n := range notes {
		ev, err := realtime.NewEvent("notifications", realtime.EventInsert, nil, n)
		if err != nil {
			continue
		}
		_ = s.publisher.Publish(ctx, ev)
	}
}
