package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/menfessboard/menfess/utils"
)

// Metrics records request counts and latency by route template.
func Metrics() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := ctx.Request.Method
		utils.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(ctx.Writer.Status())).Inc()
		utils.HTTPDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}
