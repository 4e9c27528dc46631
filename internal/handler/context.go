package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Pulls a uuid the auth middleware stored in the context. Aborts with
// 401 when absent or mangled - routes using this sit behind RequireAuth,
// so either means a wiring bug rather than a user error.
func contextID(c *gin.Context, key string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.GetString(key))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		c.Abort()
		return uuid.Nil, false
	}
	return id, true
}

func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	return contextID(c, "user_id")
}

func currentSessionID(c *gin.Context) (uuid.UUID, bool) {
	return contextID(c, "session_id")
}

func currentOrgID(c *gin.Context) (uuid.UUID, bool) {
	return contextID(c, "org_id")
}

func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}
