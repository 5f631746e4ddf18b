package cms

import (
	"context"
	"encoding/json"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
)

// BroadcastChannel is the Redis channel change events are published on.
const BroadcastChannel = "broadcast"

const (
	EventContentInserted  = "playlist.content.inserted"
	EventContentMoved     = "playlist.content.moved"
	EventDurationUpdated  = "playlist.content.duration"
	EventContentRemoved   = "playlist.content.removed"
	EventPlaylistUpdated  = "playlist.updated"
	EventPlaylistDeleted  = "playlist.deleted"
	EventPlaylistAttached = "screen.playlist.attached"
)

// ChangeEvent is a notification about a committed change. Payload carries
// "playlistId" and, for screen events, "screenId".
type ChangeEvent struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

func (e ChangeEvent) str(key string) string {
	v, _ := e.Payload[key].(string)
	return v
}

func (e ChangeEvent) PlaylistID() string { return e.str("playlistId") }
func (e ChangeEvent) ScreenID() string   { return e.str("screenId") }

// Publisher fans change events out to screens. Publishing is best effort and never fails a request.
type Publisher interface {
	Publish(ctx context.Context, ev ChangeEvent)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, ChangeEvent) {}

// RedisPublisher publishes JSON encoded events on BroadcastChannel.
type RedisPublisher struct {
	rdb    *redis.Client
	logger *log.Logger
}

func NewRedisPublisher(rdb *redis.Client, logger *log.Logger) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, logger: logger}
}

func (p *RedisPublisher) Publish(ctx context.Context, ev ChangeEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		p.logger.Error("marshal event", "type", ev.Type, "err", err)
		return
	}
	if err := p.rdb.Publish(ctx, BroadcastChannel, string(data)).Err(); err != nil {
		p.logger.Warn("publish event", "type", ev.Type, "err", err)
	}
}
