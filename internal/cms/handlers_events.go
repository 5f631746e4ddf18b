package cms

import (
	"net/http"
)

type eventRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOf(w, r)
	if !ok {
		return
	}
	items, err := s.store.ListEvents(r.Context(), p.ID)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOf(w, r)
	if !ok {
		return
	}

	var body eventRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Name == nil {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	e := Event{UserID: p.ID}
	var err error
	if e.Name, err = validName(*body.Name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.Description != nil {
		if e.Description, err = validDescription(*body.Description); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	e, err = s.store.CreateEvent(r.Context(), e)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	if _, ok := s.authorize(w, r, EventRef(id)); !ok {
		return
	}
	e, err := s.store.GetEvent(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	if _, ok := s.authorize(w, r, EventRef(id)); !ok {
		return
	}

	var body eventRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	e, err := s.store.GetEvent(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if body.Name != nil {
		if e.Name, err = validName(*body.Name); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if body.Description != nil {
		if e.Description, err = validDescription(*body.Description); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	e, err = s.store.UpdateEvent(r.Context(), e)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	if _, ok := s.authorize(w, r, EventRef(id)); !ok {
		return
	}
	if err := s.store.DeleteEvent(r.Context(), id); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
