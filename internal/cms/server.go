package cms

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
)

// FeedHandler streams a screen's change events once the caller is known to own the screen.
type FeedHandler interface {
	ServeFeed(w http.ResponseWriter, r *http.Request, screen Screen)
}

type Server struct {
	store   *Store
	members *Memberships
	guard   *Guard
	pub     Publisher
	feed    FeedHandler
	logger  *log.Logger
}

type Option func(*Server)

// WithFeed mounts the websocket screen feed.
func WithFeed(f FeedHandler) Option {
	return func(s *Server) { s.feed = f }
}

// NewServer wires the HTTP surface. A nil publisher drops change events.
func NewServer(db DB, pub Publisher, logger *log.Logger, opts ...Option) *Server {
	if pub == nil {
		pub = nopPublisher{}
	}
	s := &Server{
		store:   NewStore(db),
		members: NewMemberships(db),
		guard:   NewGuard(db),
		pub:     pub,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store exposes the server's store, which also resolves principals for the auth middleware.
func (s *Server) Store() *Store { return s.store }

// Router builds the routes. authenticate guards everything except /health.
func (s *Server) Router(authenticate func(http.Handler) http.Handler, middlewares ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	for _, mw := range middlewares {
		r.Use(mw)
	}

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(authenticate)

		r.Get("/users/me", s.handleMe)

		r.Get("/contents", s.handleListContents)
		r.Post("/contents", s.handleCreateContent)
		r.Get("/contents/{id}", s.handleGetContent)
		r.Put("/contents/{id}", s.handleUpdateContent)
		r.Put("/contents/{id}/addGroup", s.handleSetContentGroup)
		r.Delete("/contents/{id}", s.handleDeleteContent)

		r.Get("/playlists", s.handleListPlaylists)
		r.Post("/playlists", s.handleCreatePlaylist)
		r.Get("/playlists/{id}", s.handleGetPlaylist)
		r.Put("/playlists/{id}", s.handleUpdatePlaylist)
		r.Delete("/playlists/{id}", s.handleDeletePlaylist)

		r.Get("/playlists/{id}/contents", s.handleListPlaylistContents)
		r.Put("/playlists/{id}/contents", s.handleInsertContent)
		r.Post("/playlists/{id}/contents/{contentId}/move", s.handleMoveContent)
		r.Put("/playlists/{id}/contents/{contentId}/duration", s.handleUpdateDuration)
		r.Delete("/playlists/{id}/contents/{contentId}", s.handleRemoveContent)

		r.Get("/screens", s.handleListScreens)
		r.Post("/screens", s.handleCreateScreen)
		r.Get("/screens/{id}", s.handleGetScreen)
		r.Put("/screens/{id}", s.handleUpdateScreen)
		r.Delete("/screens/{id}", s.handleDeleteScreen)
		r.Put("/screens/{id}/playlist", s.handleAttachPlaylist)
		r.Get("/screens/{id}/feed", s.handleScreenFeed)

		r.Get("/events", s.handleListEvents)
		r.Post("/events", s.handleCreateEvent)
		r.Get("/events/{id}", s.handleGetEvent)
		r.Put("/events/{id}", s.handleUpdateEvent)
		r.Delete("/events/{id}", s.handleDeleteEvent)

		r.Get("/groups", s.handleListGroups)
		r.Post("/groups", s.handleCreateGroup)
		r.Get("/groups/{id}", s.handleGetGroup)
		r.Delete("/groups/{id}", s.handleDeleteGroup)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "screens-sales",
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOf(w, r)
	if !ok {
		return
	}
	u, err := s.store.GetUser(r.Context(), p.ID)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
