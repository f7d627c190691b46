package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/menfessboard/menfess/utils"
)

// BodyLimit caps request bodies at limit bytes. A declared Content-Length over
// the cap is refused before any of the body is read; otherwise reads past the
// cap fail with *http.MaxBytesError.
func BodyLimit(limit int64) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ctx.Request.ContentLength > limit {
			utils.Error(ctx, http.StatusRequestEntityTooLarge, 41301, "request body too large")
			ctx.Abort()
			return
		}
		if ctx.Request.Body != nil {
			ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, limit)
		}
		ctx.Next()
	}
}
