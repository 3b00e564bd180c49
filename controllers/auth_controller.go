package controllers

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/linkvault/config"
	"github.com/cppla/linkvault/middleware"
	"github.com/cppla/linkvault/models"
	"github.com/cppla/linkvault/utils"
)

const tokenLifetime = 7 * 24 * time.Hour

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// AuthController handles registration, login and the user search backing the
// protected-vault allowlist picker.
type AuthController struct {
	db        *gorm.DB
	cfg       config.AppConfig
	blacklist *utils.TokenBlacklist
	cache     *utils.Cache
}

// NewAuthController creates an AuthController.
func NewAuthController(db *gorm.DB, cfg config.AppConfig, blacklist *utils.TokenBlacklist, cache *utils.Cache) *AuthController {
	return &AuthController{db: db, cfg: cfg, blacklist: blacklist, cache: cache}
}

// Register handles local account registration with bcrypt hashing.
func (a *AuthController) Register(ctx *gin.Context) {
	type request struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if len(req.Username) < 3 {
		utils.Error(ctx, http.StatusBadRequest, 40002, "Username must be at least 3 characters.")
		return
	}
	if len(req.Username) > 24 {
		utils.Error(ctx, http.StatusBadRequest, 40002, "Username must be 24 characters or fewer.")
		return
	}
	if !usernamePattern.MatchString(req.Username) {
		utils.Error(ctx, http.StatusBadRequest, 40002, "Username may only contain letters, numbers and underscores.")
		return
	}
	if len(req.Password) < 6 {
		utils.Error(ctx, http.StatusBadRequest, 40003, "Password must be at least 6 characters.")
		return
	}

	var existing models.User
	if err := a.db.Where("username = ?", req.Username).First(&existing).Error; err == nil {
		utils.Error(ctx, http.StatusConflict, 40901, "Username is already taken.")
		return
	} else if err != gorm.ErrRecordNotFound {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to check username")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50002, "failed to hash password")
		return
	}

	user := models.User{Username: req.Username, PasswordHash: hash}
	if email := strings.TrimSpace(req.Email); email != "" {
		user.Email = &email
	}
	if err := a.db.Create(&user).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to create user")
		return
	}

	token, err := utils.GenerateToken(a.cfg.JWTSecret, user.ID, user.Username, tokenLifetime)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to issue token")
		return
	}

	utils.Respond(ctx, http.StatusCreated, 0, "Account created successfully.", gin.H{
		"token": token,
		"user":  gin.H{"id": user.ID, "username": user.Username},
	})
}

// Login verifies credentials and issues a JWT.
func (a *AuthController) Login(ctx *gin.Context) {
	type request struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, "invalid request payload")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		utils.Error(ctx, http.StatusBadRequest, 40005, "Username is required.")
		return
	}
	if req.Password == "" {
		utils.Error(ctx, http.StatusBadRequest, 40006, "Password is required.")
		return
	}

	var user models.User
	err := a.db.Where("username = ?", req.Username).First(&user).Error
	if err != nil || !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "Invalid username or password.")
		return
	}

	token, err := utils.GenerateToken(a.cfg.JWTSecret, user.ID, user.Username, tokenLifetime)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50005, "failed to issue token")
		return
	}

	utils.Success(ctx, gin.H{
		"token": token,
		"user":  gin.H{"id": user.ID, "username": user.Username},
	})
}

// Logout revokes the presented token until its natural expiry.
func (a *AuthController) Logout(ctx *gin.Context) {
	authHeader := ctx.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		utils.Error(ctx, http.StatusBadRequest, 40007, "missing bearer token")
		return
	}
	tokenString := strings.TrimSpace(parts[1])

	claims, err := utils.ParseToken(a.cfg.JWTSecret, tokenString)
	if err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40111, "invalid token")
		return
	}
	if claims.ExpiresAt != nil {
		a.blacklist.Add(tokenString, claims.ExpiresAt.Time)
	}
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the authenticated identity.
func (a *AuthController) Me(ctx *gin.Context) {
	userID := middleware.RequesterID(ctx)
	var user models.User
	if err := a.db.First(&user, userID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
		return
	}
	utils.Success(ctx, gin.H{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
	})
}

// SearchUsers performs the username substring search backing the allowlist
// picker for protected uploads. The requesting user is excluded.
func (a *AuthController) SearchUsers(ctx *gin.Context) {
	q := strings.TrimSpace(ctx.Query("q"))
	if q == "" {
		utils.Success(ctx, gin.H{"users": []models.Grantee{}})
		return
	}
	requesterID := middleware.RequesterID(ctx)

	cacheKey := fmt.Sprintf("cache:user:search:%d:%s", requesterID, q)
	if b, ok := a.cache.GetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	var users []models.Grantee
	err := a.db.Model(&models.User{}).
		Select("id, username, email").
		Where("id != ? AND username LIKE ?", requesterID, "%"+q+"%").
		Order("username ASC").
		Limit(20).
		Scan(&users).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50006, "failed to search users")
		return
	}

	payload := utils.JSONResponse{Code: 0, Message: "success", Data: gin.H{"users": users}}
	a.cache.SetJSON(cacheKey, payload, time.Minute)
	utils.Success(ctx, gin.H{"users": users})
}
