package httpserver

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
)

// requestLogger logs method, path, status and latency. The query string is
// left out: it carries ciphertext and tokens.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		logger.Info("request",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}

func requestRecoveryWithLog(logger *slog.Logger) gin.RecoveryFunc {
	return func(c *gin.Context, err any) {
		logger.Error("handler panic",
			"err", err,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"stack", string(debug.Stack()),
		)
		c.String(http.StatusInternalServerError, "internal error")
		c.Abort()
	}
}
