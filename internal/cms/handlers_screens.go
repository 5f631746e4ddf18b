package cms

import (
	"net/http"
)

type screenRequest struct {
	Name *string `json:"name"`
	// An empty string detaches the screen from its event.
	EventID *string `json:"eventId"`
}

func (s *Server) handleListScreens(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOf(w, r)
	if !ok {
		return
	}
	raw := r.URL.Query().Get("eventId")
	eventID, err := optionalID("eventId", &raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	items, err := s.store.ListScreens(r.Context(), p.ID, eventID)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleCreateScreen(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOf(w, r)
	if !ok {
		return
	}

	var body screenRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Name == nil {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	sc := Screen{UserID: p.ID}
	var err error
	if sc.Name, err = validName(*body.Name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if sc.EventID, err = optionalID("eventId", body.EventID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if sc.EventID != nil && !s.requireReference(w, r, EventRef(*sc.EventID), p.ID) {
		return
	}

	sc, err = s.store.CreateScreen(r.Context(), sc)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sc)
}

func (s *Server) handleGetScreen(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	if _, ok := s.authorize(w, r, ScreenRef(id)); !ok {
		return
	}
	sc, err := s.store.GetScreen(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

func (s *Server) handleUpdateScreen(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	p, ok := s.authorize(w, r, ScreenRef(id))
	if !ok {
		return
	}

	var body screenRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	sc, err := s.store.GetScreen(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if body.Name != nil {
		if sc.Name, err = validName(*body.Name); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if body.EventID != nil {
		if sc.EventID, err = optionalID("eventId", body.EventID); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if sc.EventID != nil && !s.requireReference(w, r, EventRef(*sc.EventID), p.ID) {
			return
		}
	}

	sc, err = s.store.UpdateScreen(r.Context(), sc)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

func (s *Server) handleDeleteScreen(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	if _, ok := s.authorize(w, r, ScreenRef(id)); !ok {
		return
	}
	if err := s.store.DeleteScreen(r.Context(), id); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAttachPlaylist switches what a screen plays. Connected feeds follow the switch.
func (s *Server) handleAttachPlaylist(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	p, ok := s.authorize(w, r, ScreenRef(id))
	if !ok {
		return
	}

	var body struct {
		PlaylistID *string `json:"playlistId"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	playlistID, err := optionalID("playlistId", body.PlaylistID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if playlistID == nil {
		writeError(w, http.StatusBadRequest, "playlistId is required")
		return
	}
	if !s.requireReference(w, r, PlaylistRef(*playlistID), p.ID) {
		return
	}

	sc, err := s.store.AttachPlaylist(r.Context(), id, *playlistID)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.publishScreenPlaylist(r, sc.ID, playlistID)
	writeJSON(w, http.StatusOK, sc)
}

func (s *Server) handleScreenFeed(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	if s.feed == nil {
		writeError(w, http.StatusNotFound, "screen feed is not enabled")
		return
	}
	if _, ok := s.authorize(w, r, ScreenRef(id)); !ok {
		return
	}
	sc, err := s.store.GetScreen(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.feed.ServeFeed(w, r, sc)
}
