package authgin

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/watercooler-app/watercooler-api/adapters/ginutil"
	"github.com/watercooler-app/watercooler-api/core"
)

type claimsKey struct{}

// SetClaims stores verified claims on ctx for code below the gin layer.
func SetClaims(ctx context.Context, cl core.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, cl)
}

// ClaimsFromContext returns claims stored by SetClaims.
func ClaimsFromContext(ctx context.Context) (core.Claims, bool) {
	cl, ok := ctx.Value(claimsKey{}).(core.Claims)
	return cl, ok
}

// ClaimsFromGin prefers the gin keys set by AuthRequired and falls back to the request context.
func ClaimsFromGin(c *gin.Context) (core.Claims, bool) {
	if cl, ok := ginutil.Claims(c); ok {
		return cl, true
	}
	if c.Request == nil {
		return nil, false
	}
	return ClaimsFromContext(c.Request.Context())
}
