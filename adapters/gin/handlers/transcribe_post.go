package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/watercooler-app/watercooler-api/adapters/ginutil"
)

func HandleTranscribePOST(tr Transcriber, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLTranscribe) {
			ginutil.TooMany(c)
			return
		}
		fh, err := c.FormFile("file")
		if err != nil {
			ginutil.Unprocessable(c, "Missing multipart field: file")
			return
		}
		f, err := fh.Open()
		if err != nil {
			ginutil.ServerErrWithLog(c, "Failed to read upload", err, "open multipart file")
			return
		}
		defer f.Close()

		text, err := tr.Transcribe(c.Request.Context(), fh.Filename, fh.Header.Get("Content-Type"), f)
		if err != nil {
			ginutil.AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"text": text})
	}
}
