package authgin

import (
	"github.com/gin-gonic/gin"
	"github.com/watercooler-app/watercooler-api/core"
)

// CurrentUser returns the caller's identity summary built from verified claims.
// ok is false when the request was not authenticated.
func CurrentUser(c *gin.Context) (core.View, bool) {
	cl, ok := ClaimsFromGin(c)
	if !ok {
		return core.View{}, false
	}
	return core.ClaimsView(cl), true
}
