package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"compost-be/internal/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const channelPrefix = "realtime:"

// Publisher fans row mutations out to any subscribed dashboard session.
// Delivery is best-effort: a publish failure must never fail the state
// transition that produced the event.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

type redisPublisher struct {
	client *redis.Client
}

func NewPublisher(client *redis.Client) Publisher {
	return &redisPublisher{client: client}
}

func (p *redisPublisher) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal realtime event: %w", err)
	}

	if err := p.client.Publish(ctx, channelPrefix+ev.Table, payload).Err(); err != nil {
		logger.FromCtx(ctx).Warn("realtime publish failed",
			zap.String("table", ev.Table),
			zap.String("type", string(ev.Type)),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// NoopPublisher satisfies Publisher where no redis is configured (tests,
// local tooling).
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, ev Event) error { return nil }
