package routes

import (
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/menfessboard/menfess/config"
	"github.com/menfessboard/menfess/controllers"
	"github.com/menfessboard/menfess/middleware"
	"github.com/menfessboard/menfess/services"
	"github.com/menfessboard/menfess/utils"
)

const formFieldsAllowance = 1 << 20

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, media *services.MediaStore) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.MaxMultipartMemory = 8 << 20

	// access log goes to its own rolling file; tests log through the app logger
	gl := utils.Logger
	if gin.Mode() != gin.TestMode && cfg.GinPath != "" {
		gl = utils.NewRollingFileLogger(cfg.GinPath, cfg)
	}
	r.Use(ginzap.Ginzap(gl, time.RFC3339, true))
	r.Use(ginzap.RecoveryWithZap(gl, true))
	r.Use(middleware.Metrics())
	// one upload plus room for the other form fields
	r.Use(middleware.BodyLimit(cfg.UploadMaxBytes() + formFieldsAllowance))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.Static("/uploads/profile_pics", filepath.Join(media.Root(), string(services.MediaProfilePicture)))
	r.Static("/uploads/voice_notes", filepath.Join(media.Root(), string(services.MediaVoiceNote)))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	identity := services.NewIdentityService(db, media)
	content := services.NewContentService(db, media)
	engagement := services.NewEngagementService(db)
	categories := services.NewCategoryService(db)

	authController := controllers.NewAuthController(identity, media)
	menfessController := controllers.NewMenfessController(content, engagement, media, cfg.PageSize)
	adminController := controllers.NewAdminController(content, engagement, identity, media, cfg.AdminPageSize)
	categoryController := controllers.NewCategoryController(categories)
	statsController := controllers.NewStatsController(db)
	configController := controllers.NewConfigController(media)

	authRequired := middleware.AuthRequired(db)
	optionalAuth := middleware.OptionalAuth(db)
	limit := middleware.RateLimitMiddleware(cfg.RateLimitPerMinute)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(limit)
	authGroup.POST("/register", middleware.RegistrationGuard(), authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", authRequired, authController.Logout)
	authGroup.GET("/me", authRequired, authController.Me)
	authGroup.PATCH("/profile", authRequired, authController.UpdateProfile)
	authGroup.POST("/theme", optionalAuth, authController.SetTheme)

	api.GET("/categories", categoryController.List)
	api.GET("/stats", statsController.GetStats)
	api.GET("/config/uploads", configController.GetUploads)

	public := api.Group("")
	public.Use(optionalAuth)
	public.GET("/menfess", menfessController.List)
	public.GET("/menfess/:id", menfessController.Get)
	public.GET("/menfess/:id/comments", menfessController.Comments)

	protected := api.Group("")
	protected.Use(authRequired, limit)
	protected.GET("/menfess/mine", menfessController.Mine)
	protected.POST("/menfess", menfessController.Create)
	protected.DELETE("/menfess/:id", menfessController.Delete)
	protected.POST("/menfess/:id/like", menfessController.Like)
	protected.POST("/menfess/:id/comments", menfessController.AddComment)
	protected.POST("/menfess/:id/reports", menfessController.Report)
	protected.DELETE("/comments/:id", menfessController.DeleteComment)

	admin := api.Group("/admin")
	admin.Use(authRequired)
	admin.GET("/stats", statsController.Dashboard)
	admin.GET("/menfess", adminController.Pending)
	admin.POST("/menfess/:id/approve", adminController.Approve)
	admin.POST("/menfess/:id/reject", adminController.Reject)
	admin.GET("/reports", adminController.Reports)
	admin.GET("/users", adminController.Users)
	admin.PATCH("/users/:id", adminController.UpdateUser)
	admin.POST("/users/:id/suspend", adminController.ToggleSuspend)
	admin.POST("/categories", categoryController.Create)
	admin.PUT("/categories/:id", categoryController.Update)
	admin.DELETE("/categories/:id", categoryController.Delete)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		ctx.JSON(http.StatusNotFound, gin.H{"message": "not found"})
	})

	return r
}
