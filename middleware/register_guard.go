package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/menfessboard/menfess/utils"
)

// RegistrationGuard throttles sign-ups per client IP: a short cooldown
// between attempts and a daily cap on successful registrations. Successful
// responses bump the daily counter.
func RegistrationGuard() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ip := ctx.ClientIP()
		if !utils.RegistrationDailyLimitCheck(ip) {
			utils.Error(ctx, http.StatusTooManyRequests, 42902, "daily registration limit reached")
			ctx.Abort()
			return
		}
		if !utils.RegistrationCooldownTry(ip) {
			utils.Error(ctx, http.StatusTooManyRequests, 42903, "please wait before trying again")
			ctx.Abort()
			return
		}
		ctx.Next()
		if status := ctx.Writer.Status(); status >= 200 && status < 300 {
			utils.RegistrationDailyIncrement(ip)
		}
	}
}
