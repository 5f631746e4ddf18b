package realtime

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"screens-sales/internal/cms"
)

// Feed upgrades an authorized screen request to a websocket and registers it with the hub.
type Feed struct {
	hub      *Hub
	upgrader websocket.Upgrader
	logger   *log.Logger
}

// NewFeed accepts browser origins matching allowedOrigin ("*" or empty allows all).
// Requests without an Origin header come from screen players and are always accepted.
func NewFeed(hub *Hub, allowedOrigin string, logger *log.Logger) *Feed {
	return &Feed{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "" || allowedOrigin == "*" {
					return true
				}
				origin := r.Header.Get("Origin")
				return origin == "" || origin == allowedOrigin
			},
		},
	}
}

// ServeFeed streams screen's events. The hub replays any attach routed between
// reading screen and registering the socket.
func (f *Feed) ServeFeed(w http.ResponseWriter, r *http.Request, screen cms.Screen) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.Warn("ws upgrade", "screen", screen.ID, "err", err)
		return
	}

	client := &Client{
		hub:      f.hub,
		conn:     conn,
		send:     make(chan []byte, 256),
		screenID: screen.ID,
	}
	if screen.PlaylistID != nil {
		client.playlistID = *screen.PlaylistID
	}

	welcome := map[string]any{
		"type":       "welcome",
		"screenId":   client.screenID,
		"playlistId": screen.PlaylistID,
		"now":        time.Now().UTC().Format(time.RFC3339Nano),
	}
	if b, err := json.Marshal(welcome); err == nil {
		client.send <- b
	}

	if !f.hub.join(client) {
		_ = conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
