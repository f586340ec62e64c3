package httpx

import (
	"errors"
	"strings"

	"github.com/fatimetou23083/CacheFlow/auth"
)

// claimsContextKey is where RequireAuth stores verified claims on the
// request context.
const claimsContextKey = "httpx.auth.claims"

// TokenVerifier validates a bearer token; *auth.Signer and *auth.Service
// both satisfy it.
type TokenVerifier interface {
	Verify(token string) (auth.Claims, error)
}

// RequireAuth rejects requests without a valid bearer token and exposes
// the verified claims to downstream handlers via ClaimsFrom.
func RequireAuth(verifier TokenVerifier) MiddlewareFunc {
	return func(next HandlerFunc) HandlerFunc {
		return func(c Context) error {
			header := c.Request().Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				return HTTPError(StatusUnauthorized, "missing bearer token")
			}
			claims, err := verifier.Verify(token)
			if err != nil {
				if errors.Is(err, auth.ErrTokenExpired) {
					return HTTPError(StatusUnauthorized, "token expired")
				}
				return HTTPError(StatusUnauthorized, "invalid token")
			}
			c.Set(claimsContextKey, claims)
			return next(c)
		}
	}
}

// ClaimsFrom returns the claims RequireAuth stored for this request.
func ClaimsFrom(c Context) (auth.Claims, bool) {
	claims, ok := c.Get(claimsContextKey).(auth.Claims)
	return claims, ok
}
