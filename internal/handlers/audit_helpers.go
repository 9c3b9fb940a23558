package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/deifi86/TeamChat/internal/telemetry"
)

const requestIDContextKey = "request_id"

func requestIDFromContext(c *gin.Context) string {
	if val, ok := c.Get(requestIDContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id
		}
	}

	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(requestIDContextKey, requestID)
	return requestID
}

func userIDFromContext(c *gin.Context) *string {
	if val, ok := c.Get("userID"); ok {
		if userID, ok := val.(int); ok && userID != 0 {
			value := strconv.Itoa(userID)
			return &value
		}
	}

	if header := c.GetHeader("X-User-ID"); header != "" {
		return &header
	}

	return nil
}

func emitAudit(c *gin.Context, audit *telemetry.AuditEmitter, kind, level, text string) {
	audit.Emit(c.Request.Context(), kind, level, text, requestIDFromContext(c), userIDFromContext(c))
}

// socketID identifies the websocket connection that originated a mutating
// request, so broadcasts can skip it while still reaching the acting user's
// other connections. Empty when the client has no live subscription.
func socketID(c *gin.Context) string {
	return c.GetHeader("X-Socket-ID")
}
