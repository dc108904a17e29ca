package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nialike/backend/internal/auth"
	"github.com/nialike/backend/pkg/response"
)

// JWT validates the auth provider's bearer token and stores the caller's id, role and email in the context.
func JWT(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			response.Unauthorized(c, "missing or malformed authorization header")
			c.Abort()
			return
		}
		claims, err := jwtService.Validate(token)
		switch {
		case errors.Is(err, auth.ErrTokenExpired):
			response.Unauthorized(c, "token expired")
			c.Abort()
			return
		case err != nil:
			response.Unauthorized(c, "invalid token")
			c.Abort()
			return
		}
		userID, _ := claims.UserID()
		c.Set(auth.ContextUserID, userID)
		c.Set(auth.ContextUserRole, claims.Role)
		c.Set(auth.ContextUserEmail, claims.Email)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
