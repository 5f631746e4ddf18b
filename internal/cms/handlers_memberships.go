package cms

import (
	"net/http"
)

func (s *Server) handleListPlaylistContents(w http.ResponseWriter, r *http.Request) {
	playlistID, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	if _, ok := s.authorize(w, r, PlaylistRef(playlistID)); !ok {
		return
	}
	items, err := s.members.ListOrdered(r.Context(), playlistID)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// handleInsertContent appends one of the caller's contents to one of their playlists.
func (s *Server) handleInsertContent(w http.ResponseWriter, r *http.Request) {
	playlistID, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	p, ok := s.authorize(w, r, PlaylistRef(playlistID))
	if !ok {
		return
	}

	var body struct {
		ContentID *string `json:"contentId"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	contentID, err := optionalID("contentId", body.ContentID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if contentID == nil {
		writeError(w, http.StatusBadRequest, "contentId is required")
		return
	}
	if err := s.guard.Check(r.Context(), ContentRef(*contentID), p.ID); err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	m, err := s.members.InsertContent(r.Context(), playlistID, *contentID)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.pub.Publish(r.Context(), ChangeEvent{
		Type: EventContentInserted,
		Payload: map[string]any{
			"playlistId": m.PlaylistID,
			"contentId":  m.ContentID,
			"order":      m.Order,
		},
	})
	writeJSON(w, http.StatusCreated, m)
}

// handleMoveContent takes either an absolute {"position": n} or a single step {"direction": "up"|"down"}.
func (s *Server) handleMoveContent(w http.ResponseWriter, r *http.Request) {
	playlistID, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	contentID, ok := urlID(w, r, "contentId")
	if !ok {
		return
	}
	if _, ok := s.authorize(w, r, MembershipRef(playlistID, contentID)); !ok {
		return
	}

	var body struct {
		Position  *int    `json:"position"`
		Direction *string `json:"direction"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	var (
		mv  Move
		err error
	)
	switch {
	case body.Position != nil && body.Direction != nil:
		writeError(w, http.StatusBadRequest, "send either position or direction, not both")
		return
	case body.Position != nil:
		mv, err = s.members.MoveContent(r.Context(), playlistID, contentID, *body.Position)
	case body.Direction != nil:
		mv, err = s.members.StepContent(r.Context(), playlistID, contentID, Direction(*body.Direction))
	default:
		writeError(w, http.StatusBadRequest, "position or direction is required")
		return
	}
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	if mv.From != mv.To {
		s.pub.Publish(r.Context(), ChangeEvent{
			Type: EventContentMoved,
			Payload: map[string]any{
				"playlistId": mv.PlaylistID,
				"contentId":  mv.ContentID,
				"from":       mv.From,
				"to":         mv.To,
			},
		})
	}
	writeJSON(w, http.StatusOK, mv)
}

func (s *Server) handleUpdateDuration(w http.ResponseWriter, r *http.Request) {
	playlistID, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	contentID, ok := urlID(w, r, "contentId")
	if !ok {
		return
	}
	if _, ok := s.authorize(w, r, MembershipRef(playlistID, contentID)); !ok {
		return
	}

	var body struct {
		Duration *int `json:"duration"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	m, err := s.members.UpdateDuration(r.Context(), playlistID, contentID, body.Duration)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.pub.Publish(r.Context(), ChangeEvent{
		Type: EventDurationUpdated,
		Payload: map[string]any{
			"playlistId": m.PlaylistID,
			"contentId":  m.ContentID,
			"duration":   m.Duration,
		},
	})
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleRemoveContent(w http.ResponseWriter, r *http.Request) {
	playlistID, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	contentID, ok := urlID(w, r, "contentId")
	if !ok {
		return
	}
	if _, ok := s.authorize(w, r, MembershipRef(playlistID, contentID)); !ok {
		return
	}

	order, err := s.members.RemoveContent(r.Context(), playlistID, contentID)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.pub.Publish(r.Context(), ChangeEvent{
		Type: EventContentRemoved,
		Payload: map[string]any{
			"playlistId": playlistID,
			"contentId":  contentID,
			"order":      order,
		},
	})
	w.WriteHeader(http.StatusNoContent)
}
