// Package middleware provides HTTP middleware for the Gin router.
//
// Go Learning Note — Middleware Pattern (Gin):
// In Gin, middleware is any function with the signature `gin.HandlerFunc`, which
// is `func(*gin.Context)`. Middleware functions form a chain: each one runs,
// optionally calls c.Next() to pass control to the next handler, and can call
// c.Abort() to stop the chain. This is the "chain of responsibility" pattern.
//
// Middleware is applied using .Use() on a router or route group. Common uses:
// authentication, logging, CORS headers, rate limiting, and request tracing.
package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// OwnerIDKey is the context key holding the caller's owner ID.
//
// Go Learning Note — Context Values:
// Gin's c.Set/c.Get stores request-scoped values in the *gin.Context. This is
// similar to the standard library's context.WithValue(). Use constants for
// the keys to avoid typos and enable refactoring.
const OwnerIDKey = "owner_id"

// AnonymousOwner owns every job when authentication is disabled.
const AnonymousOwner = "anonymous"

// OwnerID derives a stable, non-secret owner ID from an API key, so job
// listings never echo the key itself.
func OwnerID(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return "key-" + hex.EncodeToString(sum[:6])
}

// APIKeyAuth accepts "Authorization: Bearer <key>" for any key in keys. With
// no keys configured authentication is off and every caller is
// AnonymousOwner.
//
// Go Learning Note — Returning Functions (Closures):
// APIKeyAuth(keys) returns a gin.HandlerFunc. The closure captures the
// prepared key list once at startup instead of re-reading configuration on
// every request.
//
// Go Learning Note — c.Abort():
// c.Abort() prevents subsequent handlers in the chain from running. Without it,
// even after writing an error response, the next handler would still execute.
// Always pair error responses with c.Abort() in middleware.
func APIKeyAuth(keys []string) gin.HandlerFunc {
	accepted := make([][]byte, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			accepted = append(accepted, []byte(k))
		}
	}

	return func(c *gin.Context) {
		if len(accepted) == 0 {
			c.Set(OwnerIDKey, AnonymousOwner)
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			c.Abort()
			return
		}

		// strings.SplitN splits into at most 2 parts, handling tokens with spaces.
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			c.Abort()
			return
		}

		key := []byte(strings.TrimSpace(parts[1]))
		for _, k := range accepted {
			if subtle.ConstantTimeCompare(k, key) == 1 {
				c.Set(OwnerIDKey, OwnerID(string(key)))
				c.Next()
				return
			}
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
		c.Abort()
	}
}

// GetOwnerID retrieves the owner ID set by APIKeyAuth.
//
// Go Learning Note — Type Assertion:
// c.Get() returns (interface{}, bool). The comma-ok form `v, ok := x.(string)`
// returns ok=false instead of panicking when the value is missing, so a route
// mounted without the middleware degrades to the anonymous owner.
func GetOwnerID(c *gin.Context) string {
	v, _ := c.Get(OwnerIDKey)
	if id, ok := v.(string); ok {
		return id
	}
	return AnonymousOwner
}
