package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/watercooler-app/watercooler-api/adapters/ginutil"
)

const dbReadyTimeout = 3 * time.Second

// HandleDBReadyGET always answers 200; the body says whether the database responded.
func HandleDBReadyGET(db ReadyChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), dbReadyTimeout)
		defer cancel()
		if err := db.Ready(ctx); err != nil {
			ginutil.Logger(c).WithError(err).Warn("database not ready")
			c.JSON(http.StatusOK, gin.H{"db_ready": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"db_ready": true})
	}
}
