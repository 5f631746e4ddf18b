package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screens-sales/internal/cms"
	"screens-sales/internal/logging"
)

const (
	screen1   = "s-1"
	playlist1 = "p-1"
	playlist2 = "p-2"
)

type feedEnv struct {
	hub    *Hub
	server *httptest.Server
	cancel context.CancelFunc
}

// newFeedEnv serves the feed for a screen that plays playlistID (empty for none).
func newFeedEnv(t *testing.T, allowedOrigin, playlistID string) *feedEnv {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(logging.Discard())
	go hub.Run(ctx)

	feed := NewFeed(hub, allowedOrigin, logging.Discard())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		screen := cms.Screen{ID: screen1}
		if playlistID != "" {
			screen.PlaylistID = &playlistID
		}
		feed.ServeFeed(w, r, screen)
	}))

	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return &feedEnv{hub: hub, server: srv, cancel: cancel}
}

func (e *feedEnv) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	msg := readJSON(t, conn)
	require.Equal(t, "welcome", msg["type"])
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func payloadOf(msg map[string]any) map[string]any {
	p, _ := msg["payload"].(map[string]any)
	return p
}

func TestFeed_Welcome(t *testing.T) {
	env := newFeedEnv(t, "*", playlist1)
	url := "ws" + strings.TrimPrefix(env.server.URL, "http")

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	msg := readJSON(t, conn)
	assert.Equal(t, "welcome", msg["type"])
	assert.Equal(t, screen1, msg["screenId"])
	assert.Equal(t, playlist1, msg["playlistId"])
	assert.NotEmpty(t, msg["now"])
}

func TestFeed_OnlyFollowedPlaylistIsDelivered(t *testing.T) {
	env := newFeedEnv(t, "*", playlist1)
	conn := env.dial(t)
	ctx := context.Background()

	env.hub.Publish(ctx, cms.ChangeEvent{Type: cms.EventContentMoved, Payload: map[string]any{"playlistId": playlist2}})
	env.hub.Publish(ctx, cms.ChangeEvent{Type: cms.EventContentMoved, Payload: map[string]any{"playlistId": playlist1, "to": 2}})

	// Events are routed in order, so the first frame proves the other playlist was skipped.
	msg := readJSON(t, conn)
	assert.Equal(t, cms.EventContentMoved, msg["type"])
	assert.Equal(t, playlist1, payloadOf(msg)["playlistId"])
}

func TestFeed_AttachSwitchesPlaylist(t *testing.T) {
	env := newFeedEnv(t, "*", playlist1)
	conn := env.dial(t)
	ctx := context.Background()

	env.hub.Publish(ctx, cms.ChangeEvent{
		Type:    cms.EventPlaylistAttached,
		Payload: map[string]any{"screenId": screen1, "playlistId": playlist2},
	})
	msg := readJSON(t, conn)
	assert.Equal(t, cms.EventPlaylistAttached, msg["type"])

	env.hub.Publish(ctx, cms.ChangeEvent{Type: cms.EventContentRemoved, Payload: map[string]any{"playlistId": playlist1}})
	env.hub.Publish(ctx, cms.ChangeEvent{Type: cms.EventContentInserted, Payload: map[string]any{"playlistId": playlist2}})

	msg = readJSON(t, conn)
	assert.Equal(t, cms.EventContentInserted, msg["type"])
	assert.Equal(t, playlist2, payloadOf(msg)["playlistId"])
}

func TestFeed_ScreenWithoutPlaylist(t *testing.T) {
	env := newFeedEnv(t, "", "")
	conn := env.dial(t)

	env.hub.Publish(context.Background(), cms.ChangeEvent{
		Type:    cms.EventPlaylistAttached,
		Payload: map[string]any{"screenId": screen1, "playlistId": playlist1},
	})
	msg := readJSON(t, conn)
	assert.Equal(t, playlist1, payloadOf(msg)["playlistId"])
}

func TestFeed_AttachBeforeRegistrationIsReplayed(t *testing.T) {
	// The feed handler read playlist1, but playlist2 was attached before the socket registered.
	env := newFeedEnv(t, "*", playlist1)
	env.hub.Publish(context.Background(), cms.ChangeEvent{
		Type:    cms.EventPlaylistAttached,
		Payload: map[string]any{"screenId": screen1, "playlistId": playlist2},
	})
	conn := env.dial(t)

	msg := readJSON(t, conn)
	assert.Equal(t, cms.EventPlaylistAttached, msg["type"])
	assert.Equal(t, playlist2, payloadOf(msg)["playlistId"])

	env.hub.Publish(context.Background(), cms.ChangeEvent{Type: cms.EventContentRemoved, Payload: map[string]any{"playlistId": playlist1}})
	env.hub.Publish(context.Background(), cms.ChangeEvent{Type: cms.EventContentInserted, Payload: map[string]any{"playlistId": playlist2}})
	msg = readJSON(t, conn)
	assert.Equal(t, cms.EventContentInserted, msg["type"])
}

func TestHub_CatchUp(t *testing.T) {
	attach := func(playlistID any) cms.ChangeEvent {
		return cms.ChangeEvent{
			Type:    cms.EventPlaylistAttached,
			Payload: map[string]any{"screenId": screen1, "playlistId": playlistID},
		}
	}
	tests := []struct {
		name     string
		routed   []cms.ChangeEvent
		read     string
		want     string
		replayed bool
	}{
		{"nothing routed", nil, playlist1, playlist1, false},
		{"same playlist", []cms.ChangeEvent{attach(playlist1)}, playlist1, playlist1, false},
		{"newer attach", []cms.ChangeEvent{attach(playlist1), attach(playlist2)}, playlist1, playlist2, true},
		{"detached", []cms.ChangeEvent{attach(nil)}, playlist1, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHub(logging.Discard())
			for _, ev := range tt.routed {
				h.route(ev)
			}
			c := &Client{send: make(chan []byte, 1), screenID: screen1, playlistID: tt.read}
			h.clients[c] = true
			h.catchUp(c)

			assert.Equal(t, tt.want, c.playlistID)
			assert.Equal(t, tt.replayed, len(c.send) == 1)
		})
	}
}

func TestFeed_RejectsForeignOrigin(t *testing.T) {
	env := newFeedEnv(t, "https://cms.example.com", playlist1)
	url := "ws" + strings.TrimPrefix(env.server.URL, "http")

	header := http.Header{"Origin": []string{"https://evil.example.com"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header = http.Header{"Origin": []string{"https://cms.example.com"}}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	_ = conn.Close()

	// Screen players send no Origin at all.
	conn, _, err = websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	_ = conn.Close()
}

func TestHub_ShutdownClosesScreens(t *testing.T) {
	env := newFeedEnv(t, "*", playlist1)
	conn := env.dial(t)

	env.cancel()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)

	done := make(chan struct{})
	go func() {
		env.hub.Publish(context.Background(), cms.ChangeEvent{Type: cms.EventPlaylistDeleted})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked after the hub stopped")
	}
}

func TestClient_Follows(t *testing.T) {
	c := &Client{screenID: screen1, playlistID: playlist1}

	tests := []struct {
		name string
		ev   cms.ChangeEvent
		want bool
	}{
		{"own playlist", cms.ChangeEvent{Payload: map[string]any{"playlistId": playlist1}}, true},
		{"other playlist", cms.ChangeEvent{Payload: map[string]any{"playlistId": playlist2}}, false},
		{"own screen", cms.ChangeEvent{Payload: map[string]any{"screenId": screen1, "playlistId": playlist2}}, true},
		{"other screen", cms.ChangeEvent{Payload: map[string]any{"screenId": "s-2"}}, false},
		{"no ids", cms.ChangeEvent{Type: cms.EventPlaylistUpdated}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.follows(tt.ev))
		})
	}
}

func TestRelay_DeliversRedisEvents(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	env := newFeedEnv(t, "*", playlist1)
	conn := env.dial(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	relay, err := NewRelay(ctx, rdb, env.hub, logging.Discard())
	require.NoError(t, err)
	go relay.Run(ctx)

	require.NoError(t, rdb.Publish(ctx, cms.BroadcastChannel, "not json").Err())
	cms.NewRedisPublisher(rdb, logging.Discard()).Publish(ctx, cms.ChangeEvent{
		Type:    cms.EventDurationUpdated,
		Payload: map[string]any{"playlistId": playlist1, "duration": 15},
	})

	msg := readJSON(t, conn)
	assert.Equal(t, cms.EventDurationUpdated, msg["type"])
	assert.EqualValues(t, 15, payloadOf(msg)["duration"])
}

func TestNewRelay_RedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := NewRelay(ctx, rdb, NewHub(logging.Discard()), logging.Discard())
	assert.Error(t, err)
}
