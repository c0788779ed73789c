package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/watercooler-app/watercooler-api/adapters/ginutil"
	"github.com/watercooler-app/watercooler-api/core"
)

func HandleMeGET() gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, ok := ginutil.Claims(c)
		if !ok {
			ginutil.Unauthorized(c, "Missing bearer token")
			return
		}
		c.JSON(http.StatusOK, core.ClaimsView(cl))
	}
}
