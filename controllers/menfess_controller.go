package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/menfessboard/menfess/models"
	"github.com/menfessboard/menfess/services"
	"github.com/menfessboard/menfess/utils"
)

// MenfessController serves the feed, submissions and engagement endpoints.
type MenfessController struct {
	content    *services.ContentService
	engagement *services.EngagementService
	media      *services.MediaStore
	pageSize   int
}

// NewMenfessController creates a new MenfessController instance.
func NewMenfessController(content *services.ContentService, engagement *services.EngagementService, media *services.MediaStore, pageSize int) *MenfessController {
	return &MenfessController{content: content, engagement: engagement, media: media, pageSize: pageSize}
}

func (m *MenfessController) listQuery(ctx *gin.Context) (services.ListQuery, bool) {
	cat, err := parseOptionalID(ctx.Query("category"))
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid category")
		return services.ListQuery{}, false
	}
	return services.ListQuery{
		PageQuery:  parsePagination(ctx.Query("page"), ctx.Query("page_size"), m.pageSize),
		CategoryID: cat,
	}, true
}

// List returns the approved feed, newest first. Anonymous pages are cached.
func (m *MenfessController) List(ctx *gin.Context) {
	q, ok := m.listQuery(ctx)
	if !ok {
		return
	}
	viewer := actor(ctx)

	cacheKey := ""
	if viewer == nil {
		cat := ""
		if q.CategoryID != nil {
			cat = fmt.Sprint(*q.CategoryID)
		}
		cacheKey = fmt.Sprintf("%scat=%s:page=%d:size=%d", utils.CachePrefixFeed, cat, q.Page, q.PageSize)
		var cached services.MenfessPage
		if utils.CacheGetJSON(cacheKey, &cached) {
			utils.Success(ctx, cached)
			return
		}
	}

	page, err := m.content.ListApproved(ctx.Request.Context(), viewer, q)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	if cacheKey != "" {
		utils.CacheSetJSON(cacheKey, page, 0)
	}
	utils.Success(ctx, page)
}

// Mine lists the caller's own submissions, pending ones included.
func (m *MenfessController) Mine(ctx *gin.Context) {
	q, ok := m.listQuery(ctx)
	if !ok {
		return
	}
	page, err := m.content.ListMine(ctx.Request.Context(), actor(ctx), q)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, page)
}

// Create submits a menfess. Multipart requests may carry a voice_note file.
func (m *MenfessController) Create(ctx *gin.Context) {
	var req struct {
		Content         string `form:"content" json:"content"`
		CategoryID      string `form:"category_id" json:"category_id"`
		DisplayNameType string `form:"display_name_type" json:"display_name_type"`
		CustomName      string `form:"custom_name" json:"custom_name"`
	}
	if err := ctx.ShouldBind(&req); err != nil {
		bindFailed(ctx, err)
		return
	}
	cat, err := parseOptionalID(req.CategoryID)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid category")
		return
	}

	voice, err := storeUpload(ctx, m.media, "voice_note", services.MediaVoiceNote)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	created, err := m.content.Submit(ctx.Request.Context(), actor(ctx), services.SubmitInput{
		Text:        req.Content,
		CategoryID:  cat,
		VoiceRef:    voice,
		DisplayName: services.ParseDisplayName(req.DisplayNameType, req.CustomName),
	})
	if err != nil {
		releaseUpload(ctx, m.media, services.MediaVoiceNote, voice)
		utils.Fail(ctx, err)
		return
	}

	message := "menfess submitted and awaiting approval"
	if created.Approved {
		message = "menfess published"
		invalidateFeed()
	}
	views, err := m.content.Decorate(ctx.Request.Context(), actor(ctx), []models.Menfess{*created})
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Respond(ctx, http.StatusCreated, 0, message, gin.H{"menfess": views[0]})
}

// Get returns one menfess. Pending posts are only visible to their author and staff.
func (m *MenfessController) Get(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	viewer := actor(ctx)
	found, err := m.content.View(ctx.Request.Context(), viewer, id)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	views, err := m.content.Decorate(ctx.Request.Context(), viewer, []models.Menfess{*found})
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"menfess": views[0]})
}

// Delete removes a menfess. Authors may delete their own; staff may delete any.
func (m *MenfessController) Delete(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	if _, err := m.content.RejectOrDelete(ctx.Request.Context(), actor(ctx), id); err != nil {
		utils.Fail(ctx, err)
		return
	}
	invalidateFeed()
	utils.Success(ctx, gin.H{"message": "menfess deleted"})
}

// Like toggles the caller's like.
func (m *MenfessController) Like(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	res, err := m.engagement.ToggleLike(ctx.Request.Context(), actor(ctx), id)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	invalidateFeed()
	utils.Success(ctx, res)
}

// Comments lists comments oldest first.
func (m *MenfessController) Comments(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	comments, err := m.engagement.ListComments(ctx.Request.Context(), actor(ctx), id)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"items": comments})
}

// AddComment posts a comment.
func (m *MenfessController) AddComment(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req struct {
		Content string `form:"content" json:"content"`
	}
	if err := ctx.ShouldBind(&req); err != nil {
		bindFailed(ctx, err)
		return
	}
	comment, err := m.engagement.AddComment(ctx.Request.Context(), actor(ctx), id, req.Content)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	invalidateFeed()
	utils.Created(ctx, gin.H{"comment": comment})
}

// DeleteComment removes a comment. Its author and staff may do this.
func (m *MenfessController) DeleteComment(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	if _, err := m.engagement.DeleteComment(ctx.Request.Context(), actor(ctx), id); err != nil {
		utils.Fail(ctx, err)
		return
	}
	invalidateFeed()
	utils.Success(ctx, gin.H{"message": "comment deleted"})
}

// Report flags a menfess for staff.
func (m *MenfessController) Report(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req struct {
		Reason string `form:"reason" json:"reason"`
	}
	if err := ctx.ShouldBind(&req); err != nil {
		bindFailed(ctx, err)
		return
	}
	report, err := m.engagement.FileReport(ctx.Request.Context(), actor(ctx), id, req.Reason)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Created(ctx, gin.H{"report": report})
}
