package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/watercooler-app/watercooler-api/adapters/ginutil"
	"github.com/watercooler-app/watercooler-api/profile"
)

func HandleProfileMeGET(svc *profile.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		sub, _ := ginutil.UserID(c)
		p, err := svc.Get(c.Request.Context(), sub)
		if errors.Is(err, profile.ErrNotFound) {
			ginutil.NotFound(c, "profile not found")
			return
		}
		if err != nil {
			ginutil.AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}
