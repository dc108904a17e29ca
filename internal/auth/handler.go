package auth

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nialike/backend/pkg/response"
)

// Context keys set by the JWT middleware.
const (
	ContextUserID    = "user_id"
	ContextUserRole  = "user_role"
	ContextUserEmail = "user_email"
)

// Me is the body of GET /me.
type Me struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Role  string    `json:"role"`
}

// Handler serves the identity of the caller.
type Handler struct{}

// NewHandler creates an auth handler.
func NewHandler() *Handler {
	return &Handler{}
}

// Me handles GET /me.
func (h *Handler) Me(c *gin.Context) {
	userID, ok := UserIDFrom(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}
	response.OK(c, Me{ID: userID, Email: c.GetString(ContextUserEmail), Role: c.GetString(ContextUserRole)})
}

// UserIDFrom returns the authenticated user id stored on the gin context.
func UserIDFrom(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}
