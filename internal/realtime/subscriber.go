package realtime

import (
	"context"
	"encoding/json"

	"compost-be/internal/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Subscriber exposes a per-table stream of events for dashboard sessions.
type Subscriber struct {
	client *redis.Client
}

func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{client: client}
}

// Subscribe returns a channel of events for the given table. The channel is
// closed when ctx is cancelled or the returned stop function is called.
func (s *Subscriber) Subscribe(ctx context.Context, table string) (<-chan Event, func()) {
	sub := s.client.Subscribe(ctx, channelPrefix+table)
	out := make(chan Event)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-sub.Channel():
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					logger.FromCtx(ctx).Warn("dropping malformed realtime event",
						zap.String("table", table),
						zap.Error(err),
					)
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	stop := func() { _ = sub.Close() }
	return out, stop
}
