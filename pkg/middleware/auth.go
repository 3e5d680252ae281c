package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ClaimsKey is the gin context key holding the verified claims map.
const ClaimsKey = "claims"

// Token is minimal interface for a verified token that can expose claims
type Token interface {
	Claims(v interface{}) error
}

// Verifier is the minimal interface the middleware depends on
type Verifier interface {
	Verify(ctx context.Context, raw string) (Token, error)
}

// AuthMiddleware returns a Gin middleware that verifies Bearer tokens using the provided verifier.
// Failures abort with 403 and {"detail": ...}.
func AuthMiddleware(ver Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := strings.TrimSpace(c.GetHeader("Authorization"))
		if auth == "" {
			deny(c, "Invalid authorization code.")
			return
		}
		scheme, token, ok := strings.Cut(auth, " ")
		if !ok || scheme != "Bearer" || strings.TrimSpace(token) == "" {
			deny(c, "Invalid authentication scheme.")
			return
		}

		idToken, err := ver.Verify(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			deny(c, "Invalid token or expired token.")
			return
		}

		var claims map[string]interface{}
		if err := idToken.Claims(&claims); err != nil {
			deny(c, "Could not validate credentials")
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

func deny(c *gin.Context, detail string) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": detail})
}

// Subject returns the verified "sub" claim, if any.
func Subject(c *gin.Context) string {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return ""
	}
	cm, ok := v.(map[string]interface{})
	if !ok {
		return ""
	}
	sub, _ := cm["sub"].(string)
	return sub
}

// limitKey prefers the authenticated subject and falls back to the client IP.
func limitKey(c *gin.Context) string {
	if sub := Subject(c); sub != "" {
		return "sub:" + sub
	}
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}
