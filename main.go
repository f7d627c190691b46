package main

import (
	"context"

	"github.com/menfessboard/menfess/config"
	"github.com/menfessboard/menfess/models"
	"github.com/menfessboard/menfess/routes"
	"github.com/menfessboard/menfess/services"
	"github.com/menfessboard/menfess/utils"
)

func main() {
	cfg := config.Load()

	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	utils.InitRedis(cfg)

	db := config.InitDatabase(models.All()...)
	if err := services.Bootstrap(context.Background(), db, services.SeedConfig{
		AdminUsername: cfg.SeedAdminUsername,
		AdminEmail:    cfg.SeedAdminEmail,
		AdminPassword: cfg.SeedAdminPassword,
	}); err != nil {
		utils.Sugar.Fatalf("bootstrap failed: %v", err)
	}

	media := services.NewMediaStore(cfg.UploadDir, cfg.UploadMaxBytes())
	if err := media.EnsureDirs(); err != nil {
		utils.Sugar.Fatalf("create upload directories: %v", err)
	}

	r := routes.SetupRouter(db, media)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
