package waste

import (
	"context"
	"errors"
	"fmt"
	"time"

	"compost-be/internal/logger"
	"compost-be/internal/notification"
	"compost-be/internal/payment"
	"compost-be/internal/realtime"
	"compost-be/internal/rider"
	"compost-be/internal/user"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ReportInput struct {
	WasteType  string
	QuantityKg float64
	Location   string
}

// PayoutService initiates the mobile-money payout for a processed report.
// Implemented by the payment reconciliation controller.
type PayoutService interface {
	PayoutForReport(ctx context.Context, farmerID, reportID uuid.UUID, phone string, amount float64) (*payment.Payment, error)
}

// InventorySink receives processed waste as sellable manure stock.
type InventorySink interface {
	AddProcessedKg(ctx context.Context, sourceReportID uuid.UUID, kg float64) error
}

type Service interface {
	Report(ctx context.Context, farmerID uuid.UUID, input ReportInput) (*WasteReport, error)
	Get(ctx context.Context, id uuid.UUID) (*WasteReport, error)
	ListByFarmer(ctx context.Context, farmerID uuid.UUID) ([]*WasteReport, error)
	ListByRider(ctx context.Context, riderID uuid.UUID) ([]*WasteReport, error)
	List(ctx context.Context, status *Status) ([]*WasteReport, error)

	Verify(ctx context.Context, reportID uuid.UUID) (*WasteReport, error)
	AssignRider(ctx context.Context, reportID, riderID uuid.UUID) (*WasteReport, error)
	MarkCollected(ctx context.Context, reportID uuid.UUID) (*WasteReport, error)
	ProcessPayment(ctx context.Context, reportID uuid.UUID) (*WasteReport, *payment.Payment, error)

	Stats(ctx context.Context) (*Stats, error)
}

type service struct {
	repo      Repository
	riders    rider.Repository
	profiles  user.Repository
	payouts   PayoutService
	inventory InventorySink
	publisher realtime.Publisher

	ratePerKg float64
	// yieldRatio converts collected raw waste into sellable manure stock.
	yieldRatio float64
}

func NewService(
	repo Repository,
	riders rider.Repository,
	profiles user.Repository,
	payouts PayoutService,
	inventory InventorySink,
	publisher realtime.Publisher,
	ratePerKg float64,
) Service {
	if ratePerKg <= 0 {
		ratePerKg = 10
	}
	return &service{
		repo:       repo,
		riders:     riders,
		profiles:   profiles,
		payouts:    payouts,
		inventory:  inventory,
		publisher:  publisher,
		ratePerKg:  ratePerKg,
		yieldRatio: 0.6,
	}
}

func (s *service) Report(ctx context.Context, farmerID uuid.UUID, input ReportInput) (*WasteReport, error) {
	wasteType, err := ParseWasteType(input.WasteType)
	if err != nil {
		return nil, err
	}
	if input.QuantityKg <= 0 {
		return nil, errors.New("quantity must be greater than zero")
	}
	if input.Location == "" {
		return nil, errors.New("location is required")
	}

	w := &WasteReport{
		FarmerID:   farmerID,
		WasteType:  wasteType,
		QuantityKg: input.QuantityKg,
		Location:   input.Location,
	}

	if err := s.repo.Create(ctx, w); err != nil {
		logger.FromCtx(ctx).Error("failed to create waste report",
			zap.String("farmer_id", farmerID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	s.publish(ctx, realtime.EventInsert, nil, w)

	logger.FromCtx(ctx).Info("waste report created",
		zap.String("report_id", w.ID.String()),
		zap.String("waste_type", string(w.WasteType)),
		zap.Float64("quantity_kg", w.QuantityKg),
	)
	return w, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*WasteReport, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListByFarmer(ctx context.Context, farmerID uuid.UUID) ([]*WasteReport, error) {
	return s.repo.ListByFarmer(ctx, farmerID)
}

func (s *service) ListByRider(ctx context.Context, riderID uuid.UUID) ([]*WasteReport, error) {
	return s.repo.ListByRider(ctx, riderID)
}

func (s *service) List(ctx context.Context, status *Status) ([]*WasteReport, error) {
	return s.repo.ListByStatus(ctx, status)
}

// Verify moves a reported submission to scheduled and tells the farmer.
func (s *service) Verify(ctx context.Context, reportID uuid.UUID) (*WasteReport, error) {
	w, err := s.repo.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if w.Status != StatusReported {
		return nil, &InvalidTransitionError{From: w.Status, To: StatusScheduled}
	}

	old := *w
	w.Status = StatusScheduled
	w.AdminVerified = true

	note := &notification.Notification{
		RecipientID:     w.FarmerID,
		Type:            notification.TypeApproval,
		Title:           "Report Verified",
		Message:         fmt.Sprintf("Your %s report (%.0f kg) has been verified and scheduled for pickup.", w.WasteType, w.QuantityKg),
		RelatedEntityID: &w.ID,
	}

	if err := s.repo.TransitionTx(ctx, w, StatusReported, note); err != nil {
		return nil, err
	}

	s.publish(ctx, realtime.EventUpdate, &old, w)
	s.publishNotification(ctx, note)
	return w, nil
}

// AssignRider attaches a rider to a verified report. Assignment straight
// from reported is rejected: verification always comes first.
func (s *service) AssignRider(ctx context.Context, reportID, riderID uuid.UUID) (*WasteReport, error) {
	w, err := s.repo.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if w.Status != StatusScheduled {
		return nil, &InvalidTransitionError{From: w.Status, To: StatusScheduled}
	}
	if w.RiderID != nil {
		return nil, ErrRiderAlreadySet
	}

	rd, err := s.riders.GetByID(ctx, riderID)
	if err != nil {
		return nil, err
	}
	if rd.Status == rider.StatusOffline {
		return nil, rider.ErrRiderUnavailable
	}

	old := *w
	w.RiderID = &rd.ID

	note := &notification.Notification{
		RecipientID:     w.FarmerID,
		Type:            notification.TypeRiderAssigned,
		Title:           "Rider Assigned",
		Message:         fmt.Sprintf("%s (%s) will collect your waste from %s.", rd.Name, rd.PhoneNumber, w.Location),
		RelatedEntityID: &w.ID,
	}

	if err := s.repo.TransitionTx(ctx, w, StatusScheduled, note); err != nil {
		return nil, err
	}

	if err := s.riders.IncrementAssignments(ctx, rd.ID); err != nil {
		logger.FromCtx(ctx).Warn("failed to bump rider assignment count",
			zap.String("rider_id", rd.ID.String()),
			zap.Error(err),
		)
	}

	s.publish(ctx, realtime.EventUpdate, &old, w)
	s.publishNotification(ctx, note)
	return w, nil
}

func (s *service) MarkCollected(ctx context.Context, reportID uuid.UUID) (*WasteReport, error) {
	w, err := s.repo.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if w.Status != StatusScheduled {
		return nil, &InvalidTransitionError{From: w.Status, To: StatusCollected}
	}
	if w.RiderID == nil {
		return nil, ErrRiderRequired
	}

	old := *w
	now := time.Now()
	w.Status = StatusCollected
	w.CollectedDate = &now

	note := &notification.Notification{
		RecipientID:     w.FarmerID,
		Type:            notification.TypeCollectionCompleted,
		Title:           "Waste Collected",
		Message:         fmt.Sprintf("%.0f kg of %s collected from %s.", w.QuantityKg, w.WasteType, w.Location),
		RelatedEntityID: &w.ID,
	}

	if err := s.repo.TransitionTx(ctx, w, StatusScheduled, note); err != nil {
		return nil, err
	}

	s.publish(ctx, realtime.EventUpdate, &old, w)
	s.publishNotification(ctx, note)
	return w, nil
}

// ProcessPayment marks a collected report processed, moves the yield into
// manure inventory and initiates the farmer payout at the flat rate. A
// report already processed but still unpaid (earlier payout attempt failed)
// may retry the payout; the payment controller refuses duplicates while a
// payout is pending or completed.
func (s *service) ProcessPayment(ctx context.Context, reportID uuid.UUID) (*WasteReport, *payment.Payment, error) {
	w, err := s.repo.GetByID(ctx, reportID)
	if err != nil {
		return nil, nil, err
	}

	switch w.Status {
	case StatusCollected:
		old := *w
		w.Status = StatusProcessed
		if err := s.repo.TransitionTx(ctx, w, StatusCollected, nil); err != nil {
			return nil, nil, err
		}
		if err := s.inventory.AddProcessedKg(ctx, w.ID, w.QuantityKg*s.yieldRatio); err != nil {
			logger.FromCtx(ctx).Error("failed to add processed stock",
				zap.String("report_id", w.ID.String()),
				zap.Error(err),
			)
		}
		s.publish(ctx, realtime.EventUpdate, &old, w)
	case StatusProcessed:
		// payout retry path, transition already done
	default:
		return nil, nil, &InvalidTransitionError{From: w.Status, To: StatusProcessed}
	}

	farmer, err := s.profiles.FindByID(ctx, w.FarmerID)
	if err != nil {
		return w, nil, err
	}

	amount := w.QuantityKg * s.ratePerKg
	p, err := s.payouts.PayoutForReport(ctx, w.FarmerID, w.ID, farmer.PhoneNumber, amount)
	if err != nil {
		return w, nil, err
	}

	return w, p, nil
}

func (s *service) Stats(ctx context.Context) (*Stats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, err
	}
	stats.Revenue = stats.CollectedKg * s.ratePerKg
	return stats, nil
}

func (s *service) publish(ctx context.Context, typ realtime.EventType, oldRow, newRow any) {
	ev, err := realtime.NewEvent("waste_reports", typ, oldRow, newRow)
	if err != nil {
		logger.FromCtx(ctx).Warn("failed to build waste report event", zap.Error(err))
		return
	}
	_ = s.publisher.Publish(ctx, ev)
}

func (s *service) publishNotification(ctx context.Context, n *notification.Notification) {
	ev, err := realtime.NewEvent("notifications", realtime.EventInsert, nil, n)
	if err != nil {
		return
	}
	_ = s.publisher.Publish(ctx, ev)
}
