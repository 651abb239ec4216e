package middlewares

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/allocation_backend/models"
	"github.com/mmdatafocus/allocation_backend/utils"
)

type ctxKey string

const (
	sessionKey = ctxKey("allocationSession")

	// SessionParam is the route parameter carrying the session id.
	SessionParam = "id"
)

type SessionGetter interface {
	Get(id string) (*models.AllocationSession, error)
}

// SessionMiddleware resolves the session named in the route and aborts with 404 when it
// does not exist.
func SessionMiddleware(store SessionGetter) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param(SessionParam)
		session, err := store.Get(id)
		if err != nil {
			if errors.Is(err, utils.ErrSessionNotFound) {
				c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			c.AbortWithError(http.StatusInternalServerError, err)
			return
		}

		c.Set(string(sessionKey), session)
		c.Request = c.Request.WithContext(utils.SetSessionIdInContext(c.Request.Context(), session.ID))
		c.Next()
	}
}

func SessionFromContext(c *gin.Context) *models.AllocationSession {
	raw, _ := c.Get(string(sessionKey))
	session, _ := raw.(*models.AllocationSession)
	return session
}
