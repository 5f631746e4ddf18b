package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"screens-sales/internal/cms"
)

// Relay feeds events published on Redis by any instance into the local hub.
type Relay struct {
	sub    *redis.PubSub
	hub    *Hub
	logger *log.Logger
}

// NewRelay subscribes to the broadcast channel and waits for Redis to confirm.
func NewRelay(ctx context.Context, rdb *redis.Client, hub *Hub, logger *log.Logger) (*Relay, error) {
	sub := rdb.Subscribe(ctx, cms.BroadcastChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", cms.BroadcastChannel, err)
	}
	return &Relay{sub: sub, hub: hub, logger: logger}, nil
}

// Run relays until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	defer r.sub.Close()

	ch := r.sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev cms.ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				r.logger.Warn("skip malformed event", "err", err)
				continue
			}
			r.hub.Publish(ctx, ev)
		}
	}
}
