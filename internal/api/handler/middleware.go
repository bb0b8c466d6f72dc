package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/viridial-group/realestate-sub003/internal/apperr"
	"github.com/viridial-group/realestate-sub003/internal/domain"
	"github.com/viridial-group/realestate-sub003/internal/metrics"
)

// UserHeader carries the caller id set by the gateway after authentication.
const UserHeader = "X-User-ID"

const permissionKey = "permission"

// identify loads the caller's PermissionContext once per request.
func (h *WorkflowHandler) identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := uuid.Parse(c.GetHeader(UserHeader))
		if err != nil {
			h.writeError(c, apperr.New(apperr.NotAuthorized, "missing or malformed "+UserHeader, err))
			return
		}
		pc, err := h.permissions.GetPermissionContext(c.Request.Context(), userID)
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.Set(permissionKey, pc)
		c.Next()
	}
}

func permissionContext(c *gin.Context) *domain.PermissionContext {
	v, ok := c.Get(permissionKey)
	if !ok {
		return nil
	}
	pc, _ := v.(*domain.PermissionContext)
	return pc
}

func (h *WorkflowHandler) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

func countRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
