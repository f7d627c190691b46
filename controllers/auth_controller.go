package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/menfessboard/menfess/middleware"
	"github.com/menfessboard/menfess/models"
	"github.com/menfessboard/menfess/services"
	"github.com/menfessboard/menfess/utils"
)

// AuthController handles registration, sessions and the caller's own profile.
type AuthController struct {
	users *services.IdentityService
	media *services.MediaStore
}

// NewAuthController creates a new AuthController instance.
func NewAuthController(users *services.IdentityService, media *services.MediaStore) *AuthController {
	return &AuthController{users: users, media: media}
}

// Register creates an account. Accepts JSON or multipart with an optional
// profile_picture file.
func (a *AuthController) Register(ctx *gin.Context) {
	var req struct {
		Username        string `form:"username" json:"username"`
		Email           string `form:"email" json:"email"`
		Password        string `form:"password" json:"password"`
		ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
	}
	if err := ctx.ShouldBind(&req); err != nil {
		bindFailed(ctx, err)
		return
	}
	if req.ConfirmPassword != "" && req.ConfirmPassword != req.Password {
		utils.Error(ctx, http.StatusBadRequest, 40004, "passwords do not match")
		return
	}

	picture, err := storeUpload(ctx, a.media, "profile_picture", services.MediaProfilePicture)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	user, err := a.users.CreateUser(ctx.Request.Context(), services.NewUser{
		Username:       req.Username,
		Email:          req.Email,
		Password:       req.Password,
		ProfilePicture: picture,
	})
	if err != nil {
		releaseUpload(ctx, a.media, services.MediaProfilePicture, picture)
		utils.Fail(ctx, err)
		return
	}

	utils.Sugar.Infof("user registered id=%d username=%s", user.ID, user.Username)
	utils.InvalidateByPrefix(utils.CachePrefixStats)
	utils.Created(ctx, gin.H{"user": sanitizeUserResponse(user)})
}

// Login exchanges credentials for a bearer token. Suspended accounts may log
// in; the returned user carries the flag.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Username string `form:"username" json:"username" binding:"required"`
		Password string `form:"password" json:"password" binding:"required"`
	}
	if err := ctx.ShouldBind(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}

	user, err := a.users.Authenticate(ctx.Request.Context(), req.Username, req.Password)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Username, utils.TokenTTL)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}

	utils.Success(ctx, gin.H{
		"token": token,
		"user":  sanitizeUserResponse(user),
	})
}

// Logout revokes the presented token until it would have expired anyway.
func (a *AuthController) Logout(ctx *gin.Context) {
	token := ctx.GetString(middleware.ContextTokenKey)
	expiresAt := time.Now().Add(utils.TokenTTL)
	if v, ok := ctx.Get(middleware.ContextClaimsKey); ok {
		if claims, ok := v.(*utils.Claims); ok && claims.ExpiresAt != nil {
			expiresAt = claims.ExpiresAt.Time
		}
	}
	utils.RevokeToken(token, expiresAt)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the caller's account.
func (a *AuthController) Me(ctx *gin.Context) {
	user := middleware.UserFrom(ctx)
	if user == nil {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	utils.Success(ctx, gin.H{"user": sanitizeUserResponse(user)})
}

// UpdateProfile edits the caller's account. Changing the password requires
// the current one.
func (a *AuthController) UpdateProfile(ctx *gin.Context) {
	user := middleware.UserFrom(ctx)
	if user == nil {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	var req struct {
		Username        *string `form:"username" json:"username"`
		Email           *string `form:"email" json:"email"`
		ThemePreference *string `form:"theme_preference" json:"theme_preference"`
		CurrentPassword string  `form:"current_password" json:"current_password"`
		NewPassword     string  `form:"new_password" json:"new_password"`
	}
	if err := ctx.ShouldBind(&req); err != nil {
		bindFailed(ctx, err)
		return
	}
	if req.NewPassword != "" && !utils.CheckPassword(user.PasswordHash, req.CurrentPassword) {
		utils.Error(ctx, http.StatusBadRequest, 40005, "current password is incorrect")
		return
	}

	picture, err := storeUpload(ctx, a.media, "profile_picture", services.MediaProfilePicture)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	updated, err := a.users.UpdateProfile(ctx.Request.Context(), user.ID, services.ProfilePatch{
		Username:        req.Username,
		Email:           req.Email,
		ThemePreference: req.ThemePreference,
		NewPassword:     req.NewPassword,
		ProfilePicture:  picture,
	})
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"user": sanitizeUserResponse(updated)})
}

// SetTheme stores the theme for signed-in users and echoes it back for
// anonymous visitors, who keep it client side.
func (a *AuthController) SetTheme(ctx *gin.Context) {
	var req struct {
		Theme string `form:"theme" json:"theme" binding:"required"`
	}
	if err := ctx.ShouldBind(&req); err != nil {
		bindFailed(ctx, err)
		return
	}
	theme := strings.ToLower(strings.TrimSpace(req.Theme))
	if !models.ValidTheme(theme) {
		utils.Error(ctx, http.StatusBadRequest, 40006, "theme must be light or dark")
		return
	}
	if user := middleware.UserFrom(ctx); user != nil {
		if err := a.users.SetTheme(ctx.Request.Context(), user.ID, theme); err != nil {
			utils.Fail(ctx, err)
			return
		}
	}
	utils.Success(ctx, gin.H{"theme": theme})
}
