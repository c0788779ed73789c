package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/watercooler-app/watercooler-api/adapters/ginutil"
	"github.com/watercooler-app/watercooler-api/profile"
)

func HandleProfilePATCH(svc *profile.Service, rl ginutil.RateLimiter) gin.HandlerFunc {
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
		p, err := svc.Update(c.Request.Context(), sub, f)
		if errors.Is(err, profile.ErrNotFound) {
			ginutil.NotFound(c, "Profile not found")
			return
		}
		if err != nil {
			ginutil.AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}
