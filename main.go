package main

import (
	"context"
	"log"
	"time"

	"github.com/cppla/linkvault/config"
	"github.com/cppla/linkvault/models"
	"github.com/cppla/linkvault/routes"
	"github.com/cppla/linkvault/stores"
	"github.com/cppla/linkvault/utils"
)

func main() {
	cfg := config.Load()
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in environment variables")
	}

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(cfg, &models.User{}, &models.Upload{}, &models.VaultAccess{})

	files, err := stores.NewFileStore(cfg.UploadDir)
	if err != nil {
		utils.Sugar.Fatalf("init file store: %v", err)
	}
	uploads := stores.NewUploadStore(db)

	rdb := utils.NewRedis(cfg)

	// Background sweep for expired or exhausted uploads
	sweeper := stores.NewSweeper(uploads, files, time.Duration(cfg.SweepIntervalSeconds)*time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sweeper.Start(ctx)

	r := routes.SetupRouter(routes.Deps{
		DB:        db,
		Cfg:       cfg,
		Uploads:   uploads,
		Files:     files,
		Blacklist: utils.NewTokenBlacklist(rdb),
		Cache:     utils.NewCache(rdb),
	})

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
