// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements bearer-token authentication and role gating. The
// token parser is injected as a narrow interface so the middleware does not
// depend on the service layer's wiring.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/chatcrm/go-crm-backend/internal/services"
)

// Gin context keys populated by RequireAuth.
const (
	ctxKeyUserEmail = "userEmail"
	ctxKeyUserRole  = "userRole"
	ctxKeyTenantID  = "tenantID"
)

// TokenParser validates a bearer token and returns its claims.
type TokenParser interface {
	ParseToken(token string) (*services.Claims, error)
}

// RequireAuth authenticates the request from the Authorization header and
// stores the actor's email, role, and tenant id in the Gin context. Requests
// without a valid bearer token get a 401 with the standard error envelope.
func RequireAuth(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(raw, "Bearer ")
		if !ok || token == "" {
			abortAuth(c, http.StatusUnauthorized, "unauthorized", "missing or malformed bearer token")
			return
		}

		claims, err := tokens.ParseToken(token)
		if err != nil {
			abortAuth(c, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
			return
		}

		c.Set(ctxKeyUserEmail, claims.Email)
		c.Set(ctxKeyUserRole, claims.Role)
		if claims.TenantID != nil {
			c.Set(ctxKeyTenantID, *claims.TenantID)
		}
		c.Next()
	}
}

// RequireRole gates a route group to the given roles. It must run after
// RequireAuth.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		if _, ok := allowed[c.GetString(ctxKeyUserRole)]; !ok {
			abortAuth(c, http.StatusForbidden, "forbidden", "insufficient role")
			return
		}
		c.Next()
	}
}

// RequireTenant gates a route group to actors bound to a tenant. Superadmins
// carry no tenant and are rejected here: tenant-scoped data is only readable
// through a tenant identity.
func RequireTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := TenantFrom(c); !ok {
			abortAuth(c, http.StatusForbidden, "forbidden", "no tenant context")
			return
		}
		c.Next()
	}
}

// TenantFrom returns the authenticated actor's tenant id, if any.
func TenantFrom(c *gin.Context) (uint, bool) {
	v, ok := c.Get(ctxKeyTenantID)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

// UserEmailFrom returns the authenticated actor's email, empty when the
// request is unauthenticated.
func UserEmailFrom(c *gin.Context) string { return c.GetString(ctxKeyUserEmail) }

// RoleFrom returns the authenticated actor's role, empty when the request is
// unauthenticated.
func RoleFrom(c *gin.Context) string { return c.GetString(ctxKeyUserRole) }

func tenantIDOrZero(c *gin.Context) uint {
	id, _ := TenantFrom(c)
	return id
}

func abortAuth(c *gin.Context, status int, code, message string) {
	rid, _ := c.Get(requestIDKey)
	c.AbortWithStatusJSON(status, gin.H{
		"request_id": asString(rid),
		"code":       code,
		"message":    message,
	})
}
