package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/linkvault/config"
	"github.com/cppla/linkvault/controllers"
	"github.com/cppla/linkvault/middleware"
	"github.com/cppla/linkvault/stores"
	"github.com/cppla/linkvault/utils"
)

// Deps carries the explicitly constructed collaborators the router wires into
// controllers. Everything is built once in main and passed down; no package
// reaches for ambient state.
type Deps struct {
	DB        *gorm.DB
	Cfg       config.AppConfig
	Uploads   *stores.UploadStore
	Files     *stores.FileStore
	Blacklist *utils.TokenBlacklist
	Cache     *utils.Cache
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(d Deps) *gin.Engine {
	switch strings.ToLower(d.Cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(ginzap.Ginzap(utils.Logger, time.RFC3339, true))
	r.Use(ginzap.RecoveryWithZap(utils.Logger, false))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(d.Cfg.AllowedOrigins) == 1 && d.Cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = d.Cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(d.DB, d.Cfg, d.Blacklist, d.Cache)
	uploadController := controllers.NewUploadController(d.Cfg, d.Uploads, d.Files)
	linkController := controllers.NewLinkController(d.Uploads, d.Files)
	configController := controllers.NewConfigController(d.Cfg)

	requireAuth := middleware.AuthRequired(d.Cfg.JWTSecret, d.Blacklist)
	optionalAuth := middleware.OptionalAuth(d.Cfg.JWTSecret, d.Blacklist)
	rateLimit := middleware.RateLimit(d.Cfg.RateLimitPerMinute)

	api := r.Group("/api/v1")

	api.GET("/config", configController.GetLimits)

	authGroup := api.Group("/auth")
	authGroup.Use(rateLimit)
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", requireAuth, authController.Logout)
	authGroup.GET("/me", requireAuth, authController.Me)

	api.GET("/users/search", requireAuth, authController.SearchUsers)

	uploadsGroup := api.Group("/uploads")
	uploadsGroup.POST("", optionalAuth, rateLimit, uploadController.Create)
	uploadsGroup.GET("", requireAuth, uploadController.ListMine)
	uploadsGroup.DELETE("/:id", requireAuth, uploadController.Delete)

	linkGroup := api.Group("/link")
	linkGroup.Use(optionalAuth)
	linkGroup.GET("/:slug/meta", linkController.Meta)
	linkGroup.POST("/:slug", linkController.Access)
	linkGroup.GET("/:slug/download", linkController.Download)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		ctx.Status(http.StatusNotFound)
	})

	return r
}
