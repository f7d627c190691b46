package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/menfessboard/menfess/middleware"
	"github.com/menfessboard/menfess/models"
	"github.com/menfessboard/menfess/services"
	"github.com/menfessboard/menfess/utils"
)

func parsePagination(pageStr, sizeStr string, defaultSize int) services.PageQuery {
	page := 1
	pageSize := defaultSize
	if pageSize <= 0 {
		pageSize = 10
	}
	if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
		page = p
	}
	if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 && s <= 100 {
		pageSize = s
	}
	return services.PageQuery{Page: page, PageSize: pageSize}
}

// parseID reads a positive numeric path parameter, answering 400 when it is
// malformed.
func parseID(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil || id == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40002, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// parseOptionalID reads an optional numeric value; blank means nil.
func parseOptionalID(raw string) (*uint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return nil, errors.New("invalid id")
	}
	v := uint(id)
	return &v, nil
}

// storeUpload saves the multipart file in field, if any, and returns its
// reference. A request without the field yields "".
func storeUpload(ctx *gin.Context, media *services.MediaStore, field string, kind services.MediaKind) (string, error) {
	fh, err := ctx.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return "", nil
		}
		if bodyTooLarge(err) {
			return "", services.ErrPayloadTooLarge
		}
		return "", &services.AppError{Kind: services.KindInvalidInput, Message: "invalid upload", Err: err}
	}
	if fh.Filename == "" {
		return "", nil
	}
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	return media.Store(ctx.Request.Context(), f, fh.Filename, fh.Size, kind)
}

// bindFailed answers a ShouldBind error: 413 when the body ran past the size
// cap, 400 otherwise.
func bindFailed(ctx *gin.Context, err error) {
	if bodyTooLarge(err) {
		utils.Fail(ctx, services.ErrPayloadTooLarge)
		return
	}
	utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
}

func bodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

func releaseUpload(ctx *gin.Context, media *services.MediaStore, kind services.MediaKind, ref string) {
	if ref == "" {
		return
	}
	if err := media.Release(ctx.Request.Context(), kind, ref); err != nil {
		utils.Sugar.Warnw("release upload failed", "kind", kind, "ref", ref, "err", err)
	}
}

func actor(ctx *gin.Context) *services.Actor {
	return middleware.ActorFrom(ctx)
}

func invalidateFeed() {
	utils.InvalidateByPrefix(utils.CachePrefixFeed)
	utils.InvalidateByPrefix(utils.CachePrefixStats)
}

// sanitizeUserResponse is the account view returned to its owner and to admins.
func sanitizeUserResponse(u *models.User) gin.H {
	return gin.H{
		"id":                  u.ID,
		"username":            u.Username,
		"email":               u.Email,
		"role":                u.Role,
		"suspended":           u.Suspended,
		"theme_preference":    u.ThemePreference,
		"profile_picture":     u.ProfilePicture,
		"profile_picture_url": services.MediaURL(services.MediaProfilePicture, u.ProfilePicture),
		"created_at":          u.CreatedAt,
	}
}
