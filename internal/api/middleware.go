package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"vidredact/internal/logging"
	"vidredact/internal/services"
)

const requestIDHeader = "X-Request-ID"

// requestContext tags the request context with a correlation ID, reusing the
// caller's header when present.
func requestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		c.Request = c.Request.WithContext(services.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

func accessLog(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []logging.Attr{
			logging.String("method", c.Request.Method),
			logging.String("path", c.Request.URL.Path),
			logging.Int("status", status),
			logging.Duration("latency", time.Since(started).Round(time.Microsecond)),
			logging.String("client_ip", c.ClientIP()),
		}
		log := logging.WithContext(c.Request.Context(), logger)
		switch {
		case status >= http.StatusInternalServerError:
			log.Warn("request failed", logging.Args(attrs...)...)
		case c.Request.URL.Path == "/healthz" || c.Request.URL.Path == "/metrics":
			log.Debug("request served", logging.Args(attrs...)...)
		default:
			log.Info("request served", logging.Args(attrs...)...)
		}
	}
}

func recoverPanics(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logging.ErrorWithContext(logging.WithContext(c.Request.Context(), logger), "handler panicked", "api_panic",
					logging.String("panic", fmt.Sprint(r)),
					logging.String("path", c.Request.URL.Path),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Detail: "internal error"})
			}
		}()
		c.Next()
	}
}
