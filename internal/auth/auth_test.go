package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screens-sales/internal/logging"
)

const (
	testIssuer   = "https://tenant.example.com/"
	testAudience = "https://api.screens"
)

func signHS(t *testing.T, secret []byte, claims TokenClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return s
}

func validClaims(email string) TokenClaims {
	now := time.Now()
	return TokenClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			Audience:  jwt.ClaimStrings{testAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
}

func TestVerifier_HS256(t *testing.T) {
	secret := []byte("top-secret")
	v := NewVerifier(Options{Issuer: testIssuer, Audience: testAudience, Secret: secret})
	ctx := context.Background()

	t.Run("valid", func(t *testing.T) {
		claims, err := v.Verify(ctx, signHS(t, secret, validClaims("a@example.com")))
		require.NoError(t, err)
		assert.Equal(t, "a@example.com", claims.Email)
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := v.Verify(ctx, signHS(t, []byte("other"), validClaims("a@example.com")))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		c := validClaims("a@example.com")
		c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
		_, err := v.Verify(ctx, signHS(t, secret, c))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong audience", func(t *testing.T) {
		c := validClaims("a@example.com")
		c.Audience = jwt.ClaimStrings{"someone-else"}
		_, err := v.Verify(ctx, signHS(t, secret, c))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing email", func(t *testing.T) {
		_, err := v.Verify(ctx, signHS(t, secret, validClaims("")))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func jwksServer(t *testing.T, kid string, pub *rsa.PublicKey, hits *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]string{{
				"kid": kid,
				"kty": "RSA",
				"use": "sig",
				"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
			}},
		})
	}))
}

func TestVerifier_RS256WithJWKS(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	var hits int32
	srv := jwksServer(t, "k1", &key.PublicKey, &hits)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	keys, err := NewJWKS(ctx, srv.URL)
	require.NoError(t, err)

	v := NewVerifier(Options{
		Issuer:   testIssuer,
		Audience: testAudience,
		JWKS:     keys,
	})

	sign := func(kid string) string {
		tok := jwt.NewWithClaims(jwt.SigningMethodRS256, validClaims("screen@example.com"))
		tok.Header["kid"] = kid
		s, err := tok.SignedString(key)
		require.NoError(t, err)
		return s
	}

	claims, err := v.Verify(ctx, sign("k1"))
	require.NoError(t, err)
	assert.Equal(t, "screen@example.com", claims.Email)

	fetched := atomic.LoadInt32(&hits)
	_, err = v.Verify(ctx, sign("k1"))
	require.NoError(t, err)
	assert.Equal(t, fetched, atomic.LoadInt32(&hits), "cached key must not refetch")

	_, err = v.Verify(ctx, sign("unknown"))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifier_RejectsHS256WhenOnlyJWKS(t *testing.T) {
	var hits int32
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	srv := jwksServer(t, "k1", &key.PublicKey, &hits)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	keys, err := NewJWKS(ctx, srv.URL)
	require.NoError(t, err)

	v := NewVerifier(Options{Issuer: testIssuer, Audience: testAudience, JWKS: keys})
	_, err = v.Verify(ctx, signHS(t, []byte("guess"), validClaims("a@example.com")))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

type stubResolver struct {
	p   Principal
	err error
}

func (s stubResolver) ResolvePrincipal(ctx context.Context, email string) (Principal, error) {
	if s.err != nil {
		return Principal{}, s.err
	}
	p := s.p
	p.Email = email
	return p, nil
}

func TestMiddleware(t *testing.T) {
	secret := []byte("top-secret")
	v := NewVerifier(Options{Secret: secret})

	var got Principal
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name     string
		header   string
		resolver stubResolver
		want     int
	}{
		{name: "no header", header: "", want: http.StatusUnauthorized},
		{name: "not bearer", header: "Basic abc", want: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer abc", want: http.StatusUnauthorized},
		{
			name:     "resolver failure",
			header:   "Bearer " + signHS(t, secret, validClaims("A@Example.com")),
			resolver: stubResolver{err: errors.New("db down")},
			want:     http.StatusInternalServerError,
		},
		{
			name:     "ok",
			header:   "Bearer " + signHS(t, secret, validClaims("A@Example.com")),
			resolver: stubResolver{p: Principal{ID: "11111111-1111-1111-1111-111111111111"}},
			want:     http.StatusNoContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got = Principal{}
			h := Middleware(v, tt.resolver, logging.Discard())(next)
			req := httptest.NewRequest(http.MethodGet, "/contents", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusNoContent {
				assert.Equal(t, "11111111-1111-1111-1111-111111111111", got.ID)
				assert.Equal(t, "a@example.com", got.Email)
			}
		})
	}
}
