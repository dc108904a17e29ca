package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/nialike/backend/internal/auth"
	"github.com/nialike/backend/pkg/response"
)

// RequireRole admits callers whose token role is one of roles. Anonymous provider tokens
// (role "anon") carry a valid signature, so JWT alone does not keep them out.
// It must run after JWT.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		role, ok := c.Get(auth.ContextUserRole)
		if !ok {
			response.Unauthorized(c, "missing user context")
			c.Abort()
			return
		}
		if s, _ := role.(string); !allowed[s] {
			response.Forbidden(c, "this account cannot access the API")
			c.Abort()
			return
		}
		c.Next()
	}
}
