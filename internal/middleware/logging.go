package middleware

import (
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Logging logs one line per request. Health probes are skipped so the
// kubelet does not flood the log.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		if strings.HasSuffix(c.FullPath(), "/healthz") {
			return
		}

		log.Printf(
			"request_id=%s method=%s path=%s status=%d duration_ms=%d",
			GetRequestID(c),
			c.Request.Method,
			c.FullPath(),
			c.Writer.Status(),
			time.Since(started).Milliseconds(),
		)
	}
}
