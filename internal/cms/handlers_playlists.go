package cms

import (
	"net/http"
)

type playlistRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	// An empty string detaches the playlist from its screen.
	ScreenID *string `json:"screenId"`
}

func (s *Server) handleListPlaylists(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOf(w, r)
	if !ok {
		return
	}
	items, err := s.store.ListPlaylists(r.Context(), p.ID)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleCreatePlaylist(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOf(w, r)
	if !ok {
		return
	}

	var body playlistRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Name == nil {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	pl := Playlist{UserID: p.ID}
	var err error
	if pl.Name, err = validName(*body.Name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.Description != nil {
		if pl.Description, err = validDescription(*body.Description); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if pl.ScreenID, err = optionalID("screenId", body.ScreenID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if pl.ScreenID != nil && !s.requireReference(w, r, ScreenRef(*pl.ScreenID), p.ID) {
		return
	}

	pl, err = s.store.CreatePlaylist(r.Context(), pl)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if pl.ScreenID != nil {
		s.publishScreenPlaylist(r, *pl.ScreenID, &pl.ID)
	}
	writeJSON(w, http.StatusCreated, pl)
}

func (s *Server) handleGetPlaylist(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	if _, ok := s.authorize(w, r, PlaylistRef(id)); !ok {
		return
	}
	pl, err := s.store.GetPlaylist(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pl)
}

func (s *Server) handleUpdatePlaylist(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	p, ok := s.authorize(w, r, PlaylistRef(id))
	if !ok {
		return
	}

	var body playlistRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	pl, err := s.store.GetPlaylist(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if body.Name != nil {
		if pl.Name, err = validName(*body.Name); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if body.Description != nil {
		if pl.Description, err = validDescription(*body.Description); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if body.ScreenID != nil {
		if pl.ScreenID, err = optionalID("screenId", body.ScreenID); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if pl.ScreenID != nil && !s.requireReference(w, r, ScreenRef(*pl.ScreenID), p.ID) {
			return
		}
	}

	pl, relinked, err := s.store.UpdatePlaylist(r.Context(), pl, body.ScreenID != nil)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	var playing *string
	if pl.ScreenID != nil {
		playing = &pl.ID
	}
	for _, screenID := range relinked {
		s.publishScreenPlaylist(r, screenID, playing)
	}
	s.pub.Publish(r.Context(), ChangeEvent{
		Type:    EventPlaylistUpdated,
		Payload: map[string]any{"playlistId": pl.ID, "playlist": pl},
	})
	writeJSON(w, http.StatusOK, pl)
}

// publishScreenPlaylist tells screenID's feed what it plays now. A nil playlistID
// means the screen plays nothing.
func (s *Server) publishScreenPlaylist(r *http.Request, screenID string, playlistID *string) {
	var playing any
	if playlistID != nil {
		playing = *playlistID
	}
	s.pub.Publish(r.Context(), ChangeEvent{
		Type:    EventPlaylistAttached,
		Payload: map[string]any{"screenId": screenID, "playlistId": playing},
	})
}
