package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/linkvault/config"
	"github.com/cppla/linkvault/utils"
)

// ConfigController exposes the service limits clients need to build the upload
// form without hardcoding them.
type ConfigController struct {
	cfg config.AppConfig
}

func NewConfigController(cfg config.AppConfig) *ConfigController {
	return &ConfigController{cfg: cfg}
}

// GetLimits returns the public upload constraints.
func (c *ConfigController) GetLimits(ctx *gin.Context) {
	utils.Success(ctx, gin.H{
		"max_upload_size_mb":     c.cfg.MaxUploadSizeMB,
		"max_text_length":        c.cfg.MaxTextLength,
		"default_expiry_minutes": c.cfg.DefaultExpiryMinutes,
	})
}
