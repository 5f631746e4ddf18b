package cms

import (
	"net/http"
)

type contentRequest struct {
	ContentType *string `json:"contentType"`
	Name        *string `json:"name"`
	GroupID     *string `json:"groupId"`
}

func (s *Server) handleListContents(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOf(w, r)
	if !ok {
		return
	}
	items, err := s.store.ListContents(r.Context(), p.ID)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleCreateContent(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOf(w, r)
	if !ok {
		return
	}

	var body contentRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.ContentType == nil || !ContentType(*body.ContentType).Valid() {
		writeError(w, http.StatusBadRequest, "contentType must be one of Video, HTML, MUSIC, IMAGE")
		return
	}
	if body.Name == nil {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	name, err := validName(*body.Name)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	groupID, err := optionalID("groupId", body.GroupID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if groupID != nil && !s.requireReference(w, r, GroupRef(*groupID), p.ID) {
		return
	}

	c, err := s.store.CreateContent(r.Context(), Content{
		ContentType: ContentType(*body.ContentType),
		Name:        name,
		UserID:      p.ID,
		GroupID:     groupID,
	})
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleGetContent(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	if _, ok := s.authorize(w, r, ContentRef(id)); !ok {
		return
	}
	c, err := s.store.GetContent(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleUpdateContent(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	if _, ok := s.authorize(w, r, ContentRef(id)); !ok {
		return
	}

	var body contentRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	c, err := s.store.GetContent(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if body.ContentType != nil {
		if !ContentType(*body.ContentType).Valid() {
			writeError(w, http.StatusBadRequest, "contentType must be one of Video, HTML, MUSIC, IMAGE")
			return
		}
		c.ContentType = ContentType(*body.ContentType)
	}
	if body.Name != nil {
		if c.Name, err = validName(*body.Name); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	c, err = s.store.UpdateContent(r.Context(), c)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// handleSetContentGroup files a content under one of the caller's groups. A null groupId ungroups it.
func (s *Server) handleSetContentGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	p, ok := s.authorize(w, r, ContentRef(id))
	if !ok {
		return
	}

	var body struct {
		GroupID *string `json:"groupId"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	groupID, err := optionalID("groupId", body.GroupID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if groupID != nil && !s.requireReference(w, r, GroupRef(*groupID), p.ID) {
		return
	}

	c, err := s.store.SetContentGroup(r.Context(), id, groupID)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// handleDeleteContent removes the content from every playlist before deleting it.
func (s *Server) handleDeleteContent(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	if _, ok := s.authorize(w, r, ContentRef(id)); !ok {
		return
	}

	detached, err := s.store.DeleteContent(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	for _, d := range detached {
		s.pub.Publish(r.Context(), ChangeEvent{
			Type: EventContentRemoved,
			Payload: map[string]any{
				"playlistId": d.PlaylistID,
				"contentId":  id,
				"order":      d.Order,
			},
		})
	}
	w.WriteHeader(http.StatusNoContent)
}
