package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screens-sales/internal/config"
)

func TestRootCommand(t *testing.T) {
	root := newRootCmd()
	assert.Equal(t, "screens-sales", root.Use)

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "migrate"}, names)
}

func TestVerifierOptions(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	t.Run("secret only", func(t *testing.T) {
		opts, err := verifierOptions(ctx, config.AuthConfig{JWTSecret: []byte("s")})
		require.NoError(t, err)
		assert.Nil(t, opts.JWKS)
		assert.Equal(t, []byte("s"), opts.Secret)
		assert.Empty(t, opts.Issuer)
	})

	t.Run("issuer", func(t *testing.T) {
		jwks := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"keys":[]}`))
		}))
		defer jwks.Close()

		opts, err := verifierOptions(ctx, config.AuthConfig{
			IssuerURL: "https://tenant.auth0.com/",
			Audience:  "https://api",
			JWKSURL:   jwks.URL,
		})
		require.NoError(t, err)
		require.NotNil(t, opts.JWKS)
		assert.Equal(t, "https://tenant.auth0.com/", opts.Issuer)
		assert.Equal(t, "https://api", opts.Audience)
	})
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestCORSMiddleware(t *testing.T) {
	h := corsMiddleware("https://cms.example.com")(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/playlists", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://cms.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/playlists", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBodySizeLimitMiddleware(t *testing.T) {
	h := bodySizeLimitMiddleware(8)(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/contents", strings.NewReader(`{"name":"far too long"}`))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.JSONEq(t, `{"error":"request body too large"}`, w.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/contents", strings.NewReader(`{}`))
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	h := rateLimitMiddleware(2)(okHandler())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/contents", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	req := httptest.NewRequest(http.MethodGet, "/contents", nil)
	req.RemoteAddr = "10.0.0.2:5000"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code, "other clients keep their own budget")
}

func TestRateLimitMiddleware_Disabled(t *testing.T) {
	h := rateLimitMiddleware(0)(okHandler())
	for i := 0; i < 50; i++ {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/contents", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
}

func TestIPLimiter_ForgetsIdleClients(t *testing.T) {
	l := newIPLimiter(1)
	now := time.Now()

	assert.True(t, l.allow("a", now))
	assert.False(t, l.allow("a", now))

	later := now.Add(10 * time.Minute)
	assert.True(t, l.allow("b", later))
	l.mu.Lock()
	_, kept := l.visitors["a"]
	l.mu.Unlock()
	assert.False(t, kept)
}
