package auth

import (
	"context"
	"fmt"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// NewJWKS returns a key function backed by the identity provider's published key set.
// Keys are cached and refreshed in the background until ctx is done. An unknown kid
// triggers a rate-limited refetch.
func NewJWKS(ctx context.Context, url string) (jwt.Keyfunc, error) {
	k, err := keyfunc.NewDefaultCtx(ctx, []string{url})
	if err != nil {
		return nil, fmt.Errorf("auth: jwks %s: %w", url, err)
	}
	return k.Keyfunc, nil
}
