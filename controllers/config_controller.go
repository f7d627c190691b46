package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/menfessboard/menfess/services"
	"github.com/menfessboard/menfess/utils"
)

// ConfigController serves client-facing configuration.
type ConfigController struct {
	media *services.MediaStore
}

func NewConfigController(media *services.MediaStore) *ConfigController {
	return &ConfigController{media: media}
}

// GetUploads describes accepted upload formats, the size limit and the
// formatting commands understood in menfess bodies.
func (c *ConfigController) GetUploads(ctx *gin.Context) {
	utils.Success(ctx, gin.H{
		"max_bytes": c.media.MaxBytes(),
		"profile_picture": gin.H{
			"field":      "profile_picture",
			"extensions": services.AllowedExtensions(services.MediaProfilePicture),
		},
		"voice_note": gin.H{
			"field":      "voice_note",
			"extensions": services.AllowedExtensions(services.MediaVoiceNote),
		},
		"markup": services.MarkupCommands,
	})
}
