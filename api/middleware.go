package api

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/xraph/salesdoc"
)

// Gateway headers carrying the authenticated caller.
const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorRole = "X-Actor-Role"
	HeaderRequestID = "X-Request-ID"
)

const (
	requestIDKey = "request_id"
	actorKey     = "actor"
)

// RequestID middleware assigns a unique request ID to each request.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Header(HeaderRequestID, requestID)
		c.Set(requestIDKey, requestID)
		c.Next()
	}
}

// GetRequestID gets the request ID from gin context.
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// RequestLogger logs each request with its outcome.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"status", status,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"latency_ms", time.Since(start).Milliseconds(),
			"request_id", GetRequestID(c),
		}
		if actor, ok := c.Get(actorKey); ok {
			attrs = append(attrs, "actor_id", actor.(salesdoc.Actor).ID)
		}

		switch {
		case status >= 500:
			logger.Error("request completed", attrs...)
		case status >= 400:
			logger.Warn("request completed", attrs...)
		default:
			logger.Info("request completed", attrs...)
		}
	}
}

// Recovery turns panics into 500 responses.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("panic recovered",
					"error", rec,
					"request_id", GetRequestID(c),
					"path", c.Request.URL.Path,
					"stack", string(debug.Stack()),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
					Error:   "Internal",
					Message: "something went wrong, please try again later",
				})
			}
		}()
		c.Next()
	}
}

// Authenticate reads the actor from the gateway headers. Requests without
// a valid actor are rejected with 403.
func Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID := c.GetHeader(HeaderActorID)
		role, err := salesdoc.ParseRole(c.GetHeader(HeaderActorRole))
		if err != nil || actorID == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
				Error:   "Unauthorized",
				Message: "missing or invalid actor",
			})
			return
		}
		c.Set(actorKey, salesdoc.Actor{ID: actorID, Role: role})
		c.Next()
	}
}

func actorOf(c *gin.Context) salesdoc.Actor {
	if v, ok := c.Get(actorKey); ok {
		return v.(salesdoc.Actor)
	}
	return salesdoc.Actor{}
}
