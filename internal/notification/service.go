package notification

import (
	"context"

	"compost-be/internal/logger"
	"compost-be/internal/realtime"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Dispatcher is the write side consumed by the lifecycle controllers.
// Notifications are side information, not the source of truth, so inserts
// are at-least-once and failures never roll back the transition that
// produced them.
type Dispatcher interface {
	Notify(ctx context.Context, recipientID uuid.UUID, typ Type, title, message string, relatedEntityID *uuid.UUID) (*Notification, error)
}

type Service interface {
	Dispatcher
	List(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, limit int) ([]*Notification, error)
	MarkRead(ctx context.Context, id, recipientID uuid.UUID) error
	MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error)
}

type service struct {
	repo      Repository
	publisher realtime.Publisher
}

func NewService(repo Repository, publisher realtime.Publisher) Service {
	return &service{repo: repo, publisher: publisher}
}

func (s *service) Notify(ctx context.Context, recipientID uuid.UUID, typ Type, title, message string, relatedEntityID *uuid.UUID) (*Notification, error) {
	n := &Notification{
		RecipientID:     recipientID,
		Type:            typ,
		Title:           title,
		Message:         message,
		RelatedEntityID: relatedEntityID,
	}

	if err := s.repo.Insert(ctx, n); err != nil {
		logger.FromCtx(ctx).Error("failed to insert notification",
			zap.String("recipient_id", recipientID.String()),
			zap.String("type", string(typ)),
			zap.Error(err),
		)
		return nil, err
	}

	s.publishInsert(ctx, n)
	return n, nil
}

func (s *service) publishInsert(ctx context.Context, n *Notification) {
	ev, err := realtime.NewEvent("notifications", realtime.EventInsert, nil, n)
	if err != nil {
		logger.FromCtx(ctx).Warn("failed to build notification event", zap.Error(err))
		return
	}
	_ = s.publisher.Publish(ctx, ev)
}

func (s *service) List(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, limit int) ([]*Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListByRecipient(ctx, recipientID, unreadOnly, limit)
}

func (s *service) MarkRead(ctx context.Context, id, recipientID uuid.UUID) error {
	return s.repo.MarkRead(ctx, id, recipientID)
}

func (s *service) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	count, err := s.repo.MarkAllRead(ctx, recipientID)
	if err != nil {
		return 0, err
	}

	if count > 0 {
		logger.FromCtx(ctx).Info("marked notifications read",
			zap.String("recipient_id", recipientID.String()),
			zap.Int64("count", count),
		)
	}
	return count, nil
}
