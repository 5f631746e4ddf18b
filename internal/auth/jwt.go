package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("missing Authorization header")
	ErrInvalidToken = errors.New("invalid token")
)

// TokenClaims are the claims the service reads from an access token.
type TokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Options configures a Verifier. Either JWKS (RS256) or Secret (HS256) must be set.
type Options struct {
	Issuer   string
	Audience string
	JWKS     jwt.Keyfunc
	Secret   []byte
}

// Verifier validates bearer tokens issued by the identity provider.
type Verifier struct {
	opts    Options
	methods []string
}

func NewVerifier(opts Options) *Verifier {
	var methods []string
	if opts.JWKS != nil {
		methods = append(methods, jwt.SigningMethodRS256.Alg())
	}
	if len(opts.Secret) > 0 {
		methods = append(methods, jwt.SigningMethodHS256.Alg())
	}
	return &Verifier{opts: opts, methods: methods}
}

// Verify parses raw and returns its claims when signature, expiry, issuer and audience hold.
func (v *Verifier) Verify(_ context.Context, raw string) (*TokenClaims, error) {
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods(v.methods),
		jwt.WithExpirationRequired(),
	}
	if v.opts.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(v.opts.Issuer))
	}
	if v.opts.Audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(v.opts.Audience))
	}

	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		switch t.Method.(type) {
		case *jwt.SigningMethodRSA:
			return v.opts.JWKS(t)
		case *jwt.SigningMethodHMAC:
			return v.opts.Secret, nil
		}
		return nil, ErrInvalidToken
	}, parserOpts...)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Email) == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrMissingToken
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", ErrInvalidToken
	}
	return strings.TrimSpace(parts[1]), nil
}
