package realtime

import (
	"context"
	"encoding/json"

	"github.com/charmbracelet/log"

	"screens-sales/internal/cms"
)

// Hub owns the connected screens and routes each change event to the screens it concerns.
// Only the Run goroutine touches the client set.
type Hub struct {
	clients map[*Client]bool

	// Last attach event routed per screen. A screen that registers after its
	// attach was routed catches up from here.
	attached map[string]cms.ChangeEvent

	// Change events waiting to be routed.
	broadcast chan cms.ChangeEvent

	register   chan *Client
	unregister chan *Client

	// Closed when Run returns.
	done chan struct{}

	logger *log.Logger
}

func NewHub(logger *log.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		attached:   make(map[string]cms.ChangeEvent),
		broadcast:  make(chan cms.ChangeEvent, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run routes events until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			h.catchUp(client)

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
			}

		case ev := <-h.broadcast:
			h.route(ev)
		}
	}
}

func (h *Hub) route(ev cms.ChangeEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("marshal event", "type", ev.Type, "err", err)
		return
	}

	if ev.Type == cms.EventPlaylistAttached && ev.ScreenID() != "" {
		h.attached[ev.ScreenID()] = ev
	}

	for client := range h.clients {
		if ev.Type == cms.EventPlaylistAttached && ev.ScreenID() == client.screenID {
			client.playlistID = ev.PlaylistID()
		}
		if !client.follows(ev) {
			continue
		}
		select {
		case client.send <- data:
		default:
			h.logger.Warn("dropping slow screen", "screen", client.screenID)
			h.drop(client)
		}
	}
}

// catchUp replays the screen's last attach when it differs from what the client
// read before registering.
func (h *Hub) catchUp(client *Client) {
	ev, ok := h.attached[client.screenID]
	if !ok || ev.PlaylistID() == client.playlistID {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("marshal event", "type", ev.Type, "err", err)
		return
	}
	client.playlistID = ev.PlaylistID()
	select {
	case client.send <- data:
	default:
		h.drop(client)
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.send)
	_ = client.conn.Close()
}

// Publish hands ev to the hub. It implements cms.Publisher for single-instance deployments.
func (h *Hub) Publish(ctx context.Context, ev cms.ChangeEvent) {
	select {
	case h.broadcast <- ev:
	case <-ctx.Done():
	case <-h.done:
	}
}

func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
