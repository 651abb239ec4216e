package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/allocation_backend/utils"
	"github.com/sirupsen/logrus"
)

// CustomErrorLogger logs only requests that recorded gin errors.
func CustomErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		fields := logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
			"status": c.Writer.Status(),
		}
		ctx := c.Request.Context()
		if cid, ok := utils.GetCorrelationIdFromContext(ctx); ok {
			fields["correlation_id"] = cid
		}
		if sid, ok := utils.GetSessionIdFromContext(ctx); ok {
			fields["session_id"] = sid
		}
		if operator, ok := utils.GetOperatorFromContext(ctx); ok {
			fields["operator"] = operator
		}
		logger.WithFields(fields).Error(c.Errors.String())
	}
}
