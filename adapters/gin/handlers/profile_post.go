package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/watercooler-app/watercooler-api/adapters/ginutil"
	"github.com/watercooler-app/watercooler-api/profile"
)

// HandleProfilePOST creates the caller's profile, or applies the supplied
// fields when it already exists.
func HandleProfilePOST(svc *profile.Service, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLProfileWrite) {
			ginutil.TooMany(c)
			return
		}
		var f profile.Fields
		if err := c.ShouldBindJSON(&f); err != nil {
			ginutil.Unprocessable(c, "Invalid profile payload: "+err.Error())
			return
		}
		sub, _ := ginutil.UserID(c)
		p, err := svc.Upsert(c.Request.Context(), sub, f)
		if err != nil {
			ginutil.AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}
