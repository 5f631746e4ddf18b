package cms

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"screens-sales/internal/auth"
)

const (
	maxNameLen        = 200
	maxDescriptionLen = 1000
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError maps the package's sentinel errors to a status code.
func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	var pe *PositionError
	switch {
	case errors.As(err, &pe):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": pe.Error(),
			"min":   pe.Min,
			"max":   pe.Max,
		})
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, ErrDuplicateMembership):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidDuration), errors.Is(err, ErrInvalidDirection):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "database error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// urlID reads a path parameter and rejects anything that is not a UUID.
func urlID(w http.ResponseWriter, r *http.Request, param string) (string, bool) {
	raw := chi.URLParam(r, param)
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+param)
		return "", false
	}
	return id.String(), true
}

// optionalID validates an id field from a request body. Empty strings count as absent.
func optionalID(field string, v *string) (*string, error) {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil, nil
	}
	id, err := uuid.Parse(strings.TrimSpace(*v))
	if err != nil {
		return nil, fmt.Errorf("%s must be a UUID", field)
	}
	s := id.String()
	return &s, nil
}

func validName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("name is required")
	}
	if utf8.RuneCountInString(name) > maxNameLen {
		return "", fmt.Errorf("name must be at most %d characters", maxNameLen)
	}
	return name, nil
}

func validDescription(d string) (string, error) {
	d = strings.TrimSpace(d)
	if utf8.RuneCountInString(d) > maxDescriptionLen {
		return "", fmt.Errorf("description must be at most %d characters", maxDescriptionLen)
	}
	return d, nil
}

func principalOf(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok || p.ID == "" {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return auth.Principal{}, false
	}
	return p, true
}

// authorize resolves the caller and checks they own ref. It writes the error response itself.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request, ref ResourceRef) (auth.Principal, bool) {
	p, ok := principalOf(w, r)
	if !ok {
		return auth.Principal{}, false
	}
	if err := s.guard.Check(r.Context(), ref, p.ID); err != nil {
		s.writeStoreError(w, r, err)
		return auth.Principal{}, false
	}
	return p, true
}

// requireReference validates an id the caller wants to link to. A missing target is the
// caller's mistake (400); a target owned by someone else is forbidden.
func (s *Server) requireReference(w http.ResponseWriter, r *http.Request, ref ResourceRef, principalID string) bool {
	err := s.guard.Check(r.Context(), ref, principalID)
	switch {
	case err == nil:
		return true
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusBadRequest, ref.Kind.String()+" does not exist")
	default:
		s.writeStoreError(w, r, err)
	}
	return false
}
