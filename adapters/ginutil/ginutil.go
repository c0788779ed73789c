// Package ginutil holds the response, rate-limit and request-context helpers
// shared by the gin adapter and its handlers.
package ginutil

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/watercooler-app/watercooler-api/core"
	"github.com/watercooler-app/watercooler-api/profile"
	"github.com/watercooler-app/watercooler-api/proxy"
	"github.com/watercooler-app/watercooler-api/ratelimit"
)

// Context keys set by the auth middleware.
const (
	KeyUserID = "auth.user_id"
	KeyClaims = "auth.claims"
	keyLogger = "log.entry"
)

// Rate-limit buckets.
const (
	RLAvatarUpload = ratelimit.BucketAvatarUpload
	RLTranscribe   = ratelimit.BucketTranscribe
	RLProfileWrite = ratelimit.BucketProfileWrite
)

// RateLimiter is satisfied by the memory and Redis limiters.
type RateLimiter interface {
	AllowNamed(bucket, key string) (bool, error)
}

// AllowNamed checks bucket for the caller (subject, else client IP).
// A nil limiter allows everything; limiter errors are logged and allowed.
func AllowNamed(c *gin.Context, rl RateLimiter, bucket string) bool {
	if rl == nil {
		return true
	}
	key, ok := UserID(c)
	if !ok {
		key = c.ClientIP()
	}
	allowed, err := rl.AllowNamed(bucket, key)
	if err != nil {
		Logger(c).WithError(err).WithField("bucket", bucket).Warn("rate limiter unavailable")
		return true
	}
	return allowed
}

// Detail aborts with {"detail": msg}.
func Detail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": msg})
}

func BadRequest(c *gin.Context, msg string)    { Detail(c, http.StatusBadRequest, msg) }
func Unauthorized(c *gin.Context, msg string)  { Detail(c, http.StatusUnauthorized, msg) }
func NotFound(c *gin.Context, msg string)      { Detail(c, http.StatusNotFound, msg) }
func Unprocessable(c *gin.Context, msg string) { Detail(c, http.StatusUnprocessableEntity, msg) }
func TooMany(c *gin.Context)                   { Detail(c, http.StatusTooManyRequests, "rate limit exceeded") }
func ServerErr(c *gin.Context, msg string)     { Detail(c, http.StatusInternalServerError, msg) }

// ServerErrWithLog logs err with logMsg before answering 500 with msg.
func ServerErrWithLog(c *gin.Context, msg string, err error, logMsg string) {
	Logger(c).WithError(err).Error(logMsg)
	ServerErr(c, msg)
}

// AbortWithError maps domain errors to their HTTP status and detail.
// Anything unrecognized is logged and answered with a generic 500.
func AbortWithError(c *gin.Context, err error) {
	var (
		ce  *core.Error
		cfg proxy.ConfigError
		ue  *proxy.UpstreamError
		re  *proxy.RequestError
	)
	switch {
	case errors.As(err, &ce):
		if ce.Status() >= http.StatusInternalServerError {
			Logger(c).WithError(err).WithField("kind", ce.Kind).Warn("auth failure")
		}
		Detail(c, ce.Status(), ce.Error())
	case errors.Is(err, profile.ErrNotConfigured):
		Detail(c, http.StatusInternalServerError, err.Error())
	case errors.Is(err, profile.ErrInvalidID):
		Detail(c, http.StatusBadRequest, "Subject is not a valid profile id")
	case errors.As(err, &cfg):
		Detail(c, http.StatusInternalServerError, cfg.Error())
	case errors.As(err, &ue):
		Detail(c, ue.Status, ue.Error())
	case errors.As(err, &re):
		Logger(c).WithError(re.Err).Warn("upstream request failed")
		Detail(c, http.StatusInternalServerError, re.Error())
	default:
		ServerErrWithLog(c, "Internal server error", err, "unhandled error")
	}
}

// BearerToken extracts the credentials of an "Authorization: Bearer" header.
func BearerToken(c *gin.Context) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(c.GetHeader("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// UserID returns the verified subject set by the auth middleware.
func UserID(c *gin.Context) (string, bool) {
	v, ok := c.Get(KeyUserID)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}

// Claims returns the verified claim set set by the auth middleware.
func Claims(c *gin.Context) (core.Claims, bool) {
	v, ok := c.Get(KeyClaims)
	if !ok {
		return nil, false
	}
	cl, ok := v.(core.Claims)
	return cl, ok
}

// SetLogger stores a request-scoped logger.
func SetLogger(c *gin.Context, l logrus.FieldLogger) { c.Set(keyLogger, l) }

// Logger returns the request-scoped logger, or the standard logger.
func Logger(c *gin.Context) logrus.FieldLogger {
	if v, ok := c.Get(keyLogger); ok {
		if l, ok := v.(logrus.FieldLogger); ok {
			return l
		}
	}
	return logrus.StandardLogger()
}
