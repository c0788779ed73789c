package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/watercooler-app/watercooler-api/adapters/ginutil"
	jwtkit "github.com/watercooler-app/watercooler-api/jwt"
)

// HandleDebugKidGET compares the token's kid with the kids of the published key set.
// The token is not verified.
func HandleDebugKidGET(keys KeySetReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := ginutil.BearerToken(c)
		if !ok {
			ginutil.Unauthorized(c, "Missing bearer token")
			return
		}
		h, err := jwtkit.PeekHeader(token)
		if err != nil {
			ginutil.BadRequest(c, "Bad token header: "+err.Error())
			return
		}
		m, err := keys.KeySetMaterial(c.Request.Context())
		if err != nil {
			ginutil.AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"token_kid": nullable(h.Kid),
			"token_alg": nullable(h.Alg),
			"jwks_kids": m.KeyIDs(),
		})
	}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
