package controllers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/menfessboard/menfess/models"
	"github.com/menfessboard/menfess/services"
	"github.com/menfessboard/menfess/utils"
)

const publicStatsCacheKey = utils.CachePrefixStats + "public"

// StatsController provides board statistics.
type StatsController struct {
	db *gorm.DB
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

type publicStats struct {
	Published int64 `json:"published_count"`
	Users     int64 `json:"user_count"`
	Comments  int64 `json:"comment_count"`
}

// GetStats returns public aggregate counts.
func (s *StatsController) GetStats(ctx *gin.Context) {
	var stats publicStats
	if utils.CacheGetJSON(publicStatsCacheKey, &stats) {
		utils.Success(ctx, stats)
		return
	}
	db := s.db.WithContext(ctx.Request.Context())
	// counts degrade to zero rather than failing the endpoint
	if err := db.Model(&models.Menfess{}).Where("approved = ?", true).Count(&stats.Published).Error; err != nil {
		stats.Published = 0
	}
	if err := db.Model(&models.User{}).Count(&stats.Users).Error; err != nil {
		stats.Users = 0
	}
	if err := db.Model(&models.Comment{}).Count(&stats.Comments).Error; err != nil {
		stats.Comments = 0
	}
	utils.CacheSetJSON(publicStatsCacheKey, stats, 0)
	utils.Success(ctx, stats)
}

// Dashboard returns the counts shown on the admin dashboard.
func (s *StatsController) Dashboard(ctx *gin.Context) {
	if err := services.Authorize(actor(ctx), services.ActionViewDashboard, services.Resource{}); err != nil {
		utils.Fail(ctx, err)
		return
	}
	db := s.db.WithContext(ctx.Request.Context())
	var pending, approved, reports, users, suspended, comments, likes int64
	counts := []struct {
		query *gorm.DB
		out   *int64
	}{
		{db.Model(&models.Menfess{}).Where("approved = ?", false), &pending},
		{db.Model(&models.Menfess{}).Where("approved = ?", true), &approved},
		{db.Model(&models.Report{}), &reports},
		{db.Model(&models.User{}), &users},
		{db.Model(&models.User{}).Where("suspended = ?", true), &suspended},
		{db.Model(&models.Comment{}), &comments},
		{db.Model(&models.Like{}), &likes},
	}
	for _, c := range counts {
		if err := c.query.Count(c.out).Error; err != nil {
			utils.Fail(ctx, err)
			return
		}
	}
	utils.Success(ctx, gin.H{
		"pending_count":   pending,
		"approved_count":  approved,
		"report_count":    reports,
		"user_count":      users,
		"suspended_count": suspended,
		"comment_count":   comments,
		"like_count":      likes,
	})
}
