package authgin

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/watercooler-app/watercooler-api/adapters/ginutil"
)

const HeaderRequestID = "X-Request-ID"

// RequestLogger logs one line per request and installs a request-scoped
// logger carrying the request id. Successful probe requests are not logged.
func RequestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		began := time.Now()

		reqID := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Header(HeaderRequestID, reqID)

		entry := log.WithFields(logrus.Fields{
			"request_id": reqID,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
		})
		ginutil.SetLogger(c, entry)

		c.Next()

		status := c.Writer.Status()
		if status < 400 && isProbe(c.FullPath()) {
			return
		}
		fields := logrus.Fields{
			"status":  status,
			"latency": time.Since(began).String(),
		}
		if sub, ok := ginutil.UserID(c); ok {
			fields["subject"] = sub
		}
		line := entry.WithFields(fields)
		switch {
		case status >= 500:
			line.Error("request")
		case status >= 400:
			line.Warn("request")
		default:
			line.Info("request")
		}
	}
}

func isProbe(route string) bool {
	return strings.HasSuffix(route, "/health") || strings.HasSuffix(route, "/ready")
}
