package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/menfessboard/menfess/services"
	"github.com/menfessboard/menfess/utils"
)

// AdminController serves the moderation queue, reports and user management.
type AdminController struct {
	content    *services.ContentService
	engagement *services.EngagementService
	users      *services.IdentityService
	media      *services.MediaStore
	pageSize   int
}

// NewAdminController creates a new AdminController instance.
func NewAdminController(content *services.ContentService, engagement *services.EngagementService, users *services.IdentityService, media *services.MediaStore, pageSize int) *AdminController {
	return &AdminController{content: content, engagement: engagement, users: users, media: media, pageSize: pageSize}
}

// Pending lists menfesses awaiting approval.
func (a *AdminController) Pending(ctx *gin.Context) {
	cat, err := parseOptionalID(ctx.Query("category"))
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid category")
		return
	}
	page, err := a.content.ListPending(ctx.Request.Context(), actor(ctx), services.ListQuery{
		PageQuery:  parsePagination(ctx.Query("page"), ctx.Query("page_size"), a.pageSize),
		CategoryID: cat,
	})
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, page)
}

// Approve publishes a pending menfess.
func (a *AdminController) Approve(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	m, err := a.content.Approve(ctx.Request.Context(), actor(ctx), id)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	invalidateFeed()
	utils.Success(ctx, gin.H{"menfess": m})
}

// Reject discards a menfess.
func (a *AdminController) Reject(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	if _, err := a.content.Reject(ctx.Request.Context(), actor(ctx), id); err != nil {
		utils.Fail(ctx, err)
		return
	}
	invalidateFeed()
	utils.Success(ctx, gin.H{"message": "menfess rejected"})
}

// Reports lists filed reports, newest first.
func (a *AdminController) Reports(ctx *gin.Context) {
	q := parsePagination(ctx.Query("page"), ctx.Query("page_size"), a.pageSize)
	page, err := a.engagement.ListReports(ctx.Request.Context(), actor(ctx), q)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, page)
}

// Users lists all accounts.
func (a *AdminController) Users(ctx *gin.Context) {
	q := parsePagination(ctx.Query("page"), ctx.Query("page_size"), a.pageSize)
	page, err := a.users.ListUsers(ctx.Request.Context(), actor(ctx), q)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	items := make([]gin.H, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, sanitizeUserResponse(&page.Items[i]))
	}
	utils.Success(ctx, gin.H{"items": items, "pagination": page.Pagination})
}

// UpdateUser edits any account. Multipart requests may replace the profile picture.
func (a *AdminController) UpdateUser(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req struct {
		Username *string `form:"username" json:"username"`
		Email    *string `form:"email" json:"email"`
		Role     *string `form:"role" json:"role"`
	}
	if err := ctx.ShouldBind(&req); err != nil {
		bindFailed(ctx, err)
		return
	}
	if err := services.Authorize(actor(ctx), services.ActionEditUser, services.Resource{}); err != nil {
		utils.Fail(ctx, err)
		return
	}

	picture, err := storeUpload(ctx, a.media, "profile_picture", services.MediaProfilePicture)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	user, err := a.users.AdminUpdateUser(ctx.Request.Context(), actor(ctx), id, services.AdminUserPatch{
		Username:       req.Username,
		Email:          req.Email,
		Role:           req.Role,
		ProfilePicture: picture,
	})
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"user": sanitizeUserResponse(user)})
}

// ToggleSuspend flips a user's suspension flag.
func (a *AdminController) ToggleSuspend(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	user, err := a.users.ToggleSuspended(ctx.Request.Context(), actor(ctx), id)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	state := "unsuspended"
	if user.Suspended {
		state = "suspended"
	}
	utils.Sugar.Infof("user %d %s by %d", user.ID, state, actor(ctx).ID)
	utils.Respond(ctx, http.StatusOK, 0, "user "+state, gin.H{"user": sanitizeUserResponse(user)})
}
