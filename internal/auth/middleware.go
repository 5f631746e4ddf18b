package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
)

// Principal is the authenticated user of a request.
type Principal struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// PrincipalResolver maps a verified token email to a local user.
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, email string) (Principal, error)
}

type ctxPrincipalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxPrincipalKey{}, p)
}

// PrincipalFromContext returns the principal stored by Middleware.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxPrincipalKey{}).(Principal)
	return p, ok && p.ID != ""
}

// Middleware verifies the bearer token and stores the resolved principal in the request context.
func Middleware(v *Verifier, users PrincipalResolver, logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := bearerToken(r.Header.Get("Authorization"))
			if err != nil {
				writeUnauthorized(w, err.Error())
				return
			}

			claims, err := v.Verify(r.Context(), raw)
			if err != nil {
				writeUnauthorized(w, ErrInvalidToken.Error())
				return
			}

			p, err := users.ResolvePrincipal(r.Context(), strings.ToLower(claims.Email))
			if err != nil {
				logger.Error("resolve principal", "err", err)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "internal error"})
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
