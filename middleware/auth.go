package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/menfessboard/menfess/models"
	"github.com/menfessboard/menfess/services"
	"github.com/menfessboard/menfess/utils"
)

const (
	// ContextActorKey stores the *services.Actor for the request.
	ContextActorKey = "actor"
	// ContextUserKey stores the freshly loaded *models.User.
	ContextUserKey = "user"
	// ContextClaimsKey stores the parsed token claims, used by logout.
	ContextClaimsKey = "claims"
	// ContextTokenKey stores the raw bearer token.
	ContextTokenKey = "token"
)

type authFailure struct {
	code int
	msg  string
}

// AuthRequired ensures the request carries a valid bearer token for an
// existing user. The user row is reloaded on every request, so role and
// suspension changes take effect immediately.
func AuthRequired(db *gorm.DB) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if fail := authenticate(ctx, db, true); fail != nil {
			utils.Error(ctx, http.StatusUnauthorized, fail.code, fail.msg)
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

// OptionalAuth attaches the actor when a valid token is present and lets
// anonymous requests through otherwise.
func OptionalAuth(db *gorm.DB) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if fail := authenticate(ctx, db, false); fail != nil {
			utils.Error(ctx, http.StatusUnauthorized, fail.code, fail.msg)
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

func authenticate(ctx *gin.Context, db *gorm.DB, required bool) *authFailure {
	authHeader := ctx.GetHeader("Authorization")
	if authHeader == "" {
		if required {
			return &authFailure{40101, "authorization header missing"}
		}
		return nil
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return &authFailure{40102, "invalid authorization header format"}
	}
	tokenString := strings.TrimSpace(parts[1])
	if tokenString == "" {
		return &authFailure{40103, "empty bearer token"}
	}
	if utils.IsTokenRevoked(tokenString) {
		return &authFailure{40104, "token revoked"}
	}
	claims, err := utils.ParseToken(tokenString)
	if err != nil {
		return &authFailure{40105, "invalid token"}
	}

	var user models.User
	if err := db.WithContext(ctx.Request.Context()).First(&user, claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &authFailure{40106, "account no longer exists"}
		}
		utils.Sugar.Errorf("load user %d: %v", claims.UserID, err)
		return &authFailure{40107, "unable to verify session"}
	}

	ctx.Set(ContextUserKey, &user)
	ctx.Set(ContextActorKey, services.ActorFromUser(&user))
	ctx.Set(ContextClaimsKey, claims)
	ctx.Set(ContextTokenKey, tokenString)
	return nil
}

// ActorFrom returns the request's actor, or nil for anonymous requests.
func ActorFrom(ctx *gin.Context) *services.Actor {
	if v, ok := ctx.Get(ContextActorKey); ok {
		if a, ok := v.(*services.Actor); ok {
			return a
		}
	}
	return nil
}

// UserFrom returns the user loaded by the auth middleware, or nil.
func UserFrom(ctx *gin.Context) *models.User {
	if v, ok := ctx.Get(ContextUserKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}
