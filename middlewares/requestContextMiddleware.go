package middlewares

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mmdatafocus/allocation_backend/utils"
)

const (
	CorrelationIdHeader = "x-correlation-id"
	OperatorHeader      = "x-operator"
)

// CorrelationMiddleware generates a correlation id once per request unless the caller
// sent one, and echoes it back.
func CorrelationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		cid := strings.TrimSpace(c.GetHeader(CorrelationIdHeader))
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Header(CorrelationIdHeader, cid)
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	}
}

// OperatorMiddleware records the operator name sent by the allocation UI.
// It is a log label only.
func OperatorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		operator := strings.TrimSpace(c.GetHeader(OperatorHeader))
		if operator == "" {
			c.Next()
			return
		}
		c.Request = c.Request.WithContext(utils.SetOperatorInContext(c.Request.Context(), operator))
		c.Next()
	}
}
