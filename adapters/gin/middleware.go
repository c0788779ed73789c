package authgin

import (
	"github.com/gin-gonic/gin"
	"github.com/watercooler-app/watercooler-api/adapters/ginutil"
	"github.com/watercooler-app/watercooler-api/core"
)

// AuthRequired verifies the bearer token and stores the verified claims under
// ginutil.KeyClaims and on the request context. When the token carries a
// subject it is also stored under ginutil.KeyUserID.
func AuthRequired(v *core.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := ginutil.BearerToken(c)
		if !ok {
			ginutil.Unauthorized(c, "Missing bearer token")
			return
		}
		claims, err := v.Verify(c.Request.Context(), token)
		if err != nil {
			ginutil.AbortWithError(c, err)
			return
		}
		c.Set(ginutil.KeyClaims, claims)
		c.Request = c.Request.WithContext(SetClaims(c.Request.Context(), claims))
		if sub, err := core.ResolveSubject(claims); err == nil {
			c.Set(ginutil.KeyUserID, sub)
			ginutil.SetLogger(c, ginutil.Logger(c).WithField("subject", sub))
		}
		c.Next()
	}
}

// SubjectRequired must run after AuthRequired. It rejects tokens without a
// usable sub claim.
func SubjectRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := ginutil.UserID(c); ok {
			c.Next()
			return
		}
		cl, _ := ginutil.Claims(c)
		_, err := core.ResolveSubject(cl)
		ginutil.AbortWithError(c, err)
	}
}
