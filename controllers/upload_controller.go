package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/linkvault/config"
	"github.com/cppla/linkvault/middleware"
	"github.com/cppla/linkvault/models"
	"github.com/cppla/linkvault/stores"
	"github.com/cppla/linkvault/utils"
)

// allowedMimeTypes is the upload whitelist; anything else is rejected up front.
var allowedMimeTypes = map[string]bool{
	// Images
	"image/jpeg": true, "image/png": true, "image/gif": true,
	"image/webp": true, "image/svg+xml": true, "image/bmp": true,
	// Documents
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
	"application/vnd.ms-powerpoint":                                     true,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": true,
	// Text
	"text/plain": true, "text/csv": true, "text/html": true,
	"text/css": true, "text/javascript": true,
	"application/json": true, "application/xml": true,
	// Archives
	"application/zip": true, "application/x-tar": true, "application/gzip": true,
	"application/x-7z-compressed": true, "application/x-rar-compressed": true,
	// Audio / Video
	"audio/mpeg": true, "audio/wav": true, "audio/ogg": true,
	"video/mp4": true, "video/webm": true, "video/ogg": true,
	// Code / misc
	"application/javascript":   true,
	"application/typescript":   true,
	"application/x-python-code": true,
	"application/x-sh":          true,
	"application/octet-stream":  true, // generic binary fallback
}

// UploadController handles creation and management of uploads.
type UploadController struct {
	cfg     config.AppConfig
	uploads *stores.UploadStore
	files   *stores.FileStore
}

// NewUploadController creates an UploadController.
func NewUploadController(cfg config.AppConfig, uploads *stores.UploadStore, files *stores.FileStore) *UploadController {
	return &UploadController{cfg: cfg, uploads: uploads, files: files}
}

// Create handles POST /uploads (multipart/form-data). Anonymous callers may
// create public uploads only.
func (u *UploadController) Create(ctx *gin.Context) {
	uploadType := models.UploadType(strings.TrimSpace(ctx.PostForm("type")))
	if uploadType != models.UploadTypeText && uploadType != models.UploadTypeFile {
		utils.Error(ctx, http.StatusBadRequest, 40010, `Invalid upload type. Must be "text" or "file".`)
		return
	}

	visibility := models.Visibility(strings.TrimSpace(ctx.PostForm("visibility")))
	if visibility == "" {
		visibility = models.VisibilityPublic
	}
	if !models.ValidVisibility(visibility) {
		utils.Error(ctx, http.StatusBadRequest, 40011, "Invalid visibility. Must be public, private, or protected.")
		return
	}

	requesterID := middleware.RequesterID(ctx)
	if visibility != models.VisibilityPublic && requesterID == 0 {
		utils.Error(ctx, http.StatusUnauthorized, 40112, "Authentication required for private/protected vaults.")
		return
	}

	expiresAt, err := u.parseExpiry(ctx.PostForm("expiresAt"))
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40012, err.Error())
		return
	}

	var maxViews *int
	if raw := strings.TrimSpace(ctx.PostForm("maxViews")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			utils.Error(ctx, http.StatusBadRequest, 40013, "maxViews must be a positive integer.")
			return
		}
		maxViews = &n
	}

	var grantIDs []uint
	if raw := strings.TrimSpace(ctx.PostForm("allowedUserIds")); raw != "" && visibility == models.VisibilityProtected {
		if err := json.Unmarshal([]byte(raw), &grantIDs); err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40014, "Invalid allowedUserIds format.")
			return
		}
	}

	var ownerID *uint
	if requesterID != 0 {
		id := requesterID
		ownerID = &id
	}

	var upload *models.Upload
	switch uploadType {
	case models.UploadTypeText:
		text := ctx.PostForm("textContent")
		if strings.TrimSpace(text) == "" {
			utils.Error(ctx, http.StatusBadRequest, 40015, "Text content is required for text uploads.")
			return
		}
		if len(text) > u.cfg.MaxTextLength {
			utils.Error(ctx, http.StatusBadRequest, 40016, "Text content exceeds the length limit.")
			return
		}
		upload = models.NewTextUpload("", ownerID, text)

	case models.UploadTypeFile:
		file, header, err := ctx.Request.FormFile("file")
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40017, "A file is required for file uploads.")
			return
		}
		defer file.Close()

		mimeType := header.Header.Get("Content-Type")
		if !allowedMimeTypes[mimeType] {
			utils.Error(ctx, http.StatusBadRequest, 40018, "File type \""+mimeType+"\" is not allowed.")
			return
		}

		maxBytes := int64(u.cfg.MaxUploadSizeMB) * 1024 * 1024
		storedName, size, err := u.files.Save(file, header.Filename, maxBytes)
		if errors.Is(err, stores.ErrFileTooLarge) {
			utils.Error(ctx, http.StatusRequestEntityTooLarge, 41301, "File too large.")
			return
		}
		if err != nil {
			utils.Sugar.Errorf("save upload file: %v", err)
			utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to store file")
			return
		}
		upload = models.NewFileUpload("", ownerID, filepath.Base(header.Filename), storedName, mimeType, size)
	}

	upload.Visibility = visibility
	upload.IsOneTime = parseFormBool(ctx.PostForm("isOneTime"))
	upload.MaxViews = maxViews
	upload.ExpiresAt = expiresAt

	if password := ctx.PostForm("password"); password != "" {
		hash, err := utils.HashPassword(password)
		if err != nil {
			u.discardFile(upload)
			utils.Error(ctx, http.StatusInternalServerError, 50011, "failed to hash password")
			return
		}
		upload.PasswordHash = hash
	}

	if err := u.uploads.Create(upload, grantIDs); err != nil {
		u.discardFile(upload)
		var ve *stores.ValidationError
		if errors.As(err, &ve) {
			utils.Error(ctx, http.StatusBadRequest, 40019, ve.Error())
			return
		}
		utils.Sugar.Errorf("create upload: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50012, "failed to create upload")
		return
	}

	utils.Respond(ctx, http.StatusCreated, 0, "Upload created.", gin.H{
		"upload": gin.H{
			"slug":        upload.Slug,
			"type":        upload.Type,
			"expires_at":  upload.ExpiresAt,
			"is_one_time": upload.IsOneTime,
			"max_views":   upload.MaxViews,
			"has_password": upload.HasPassword(),
			"visibility":  upload.Visibility,
			"url":         "/api/v1/link/" + upload.Slug,
		},
	})
}

// ListMine handles GET /uploads for the authenticated owner, newest first, with
// allowlists resolved for protected uploads.
func (u *UploadController) ListMine(ctx *gin.Context) {
	requesterID := middleware.RequesterID(ctx)

	records, err := u.uploads.FindByOwner(requesterID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50013, "failed to list uploads")
		return
	}

	items := make([]gin.H, 0, len(records))
	for _, rec := range records {
		item := gin.H{
			"id":                rec.ID,
			"slug":              rec.Slug,
			"type":              rec.Type,
			"original_filename": rec.OriginalFilename,
			"text_preview":      textPreview(rec.TextContent),
			"is_one_time":       rec.IsOneTime,
			"max_views":         rec.MaxViews,
			"view_count":        rec.ViewCount,
			"expires_at":        rec.ExpiresAt,
			"created_at":        rec.CreatedAt,
			"has_password":      rec.HasPassword(),
			"file_size":         rec.FileSize,
			"mime_type":         rec.MimeType,
			"visibility":        rec.Visibility,
		}
		if rec.Visibility == models.VisibilityProtected {
			grantees, err := u.uploads.ListGrantees(rec.ID)
			if err != nil {
				utils.Sugar.Warnf("list grantees for upload %d: %v", rec.ID, err)
			}
			item["allowed_users"] = grantees
		} else {
			item["allowed_users"] = []models.Grantee{}
		}
		items = append(items, item)
	}

	utils.Success(ctx, gin.H{"uploads": items})
}

// Delete handles DELETE /uploads/:id. Only the owner may delete; the stored
// file is removed immediately and the row is soft-deleted for the sweep.
func (u *UploadController) Delete(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid upload id")
		return
	}

	upload, err := u.uploads.FindByID(uint(id))
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50014, "failed to look up upload")
		return
	}
	if upload == nil {
		utils.Error(ctx, http.StatusNotFound, 40402, "Upload not found.")
		return
	}
	if !upload.IsOwner(middleware.RequesterID(ctx)) {
		utils.Error(ctx, http.StatusForbidden, 40301, "You do not own this upload.")
		return
	}

	if upload.StoredFilename != "" {
		if err := u.files.Remove(upload.StoredFilename); err != nil {
			utils.Sugar.Warnf("remove file for upload %d: %v", upload.ID, err)
		}
	}
	if err := u.uploads.SoftDelete(upload.ID); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50015, "failed to delete upload")
		return
	}
	utils.Success(ctx, gin.H{"message": "Upload deleted."})
}

// parseExpiry resolves the expiry timestamp: explicit value must parse and lie
// in the future, an empty value defaults to now + the configured window.
func (u *UploadController) parseExpiry(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Now().Add(time.Duration(u.cfg.DefaultExpiryMinutes) * time.Minute), nil
	}
	var t time.Time
	var err error
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04"} {
		if t, err = time.Parse(layout, raw); err == nil {
			break
		}
	}
	if err != nil {
		return time.Time{}, errors.New("Invalid expiry date format.")
	}
	if !t.After(time.Now()) {
		return time.Time{}, errors.New("Expiry date must be in the future.")
	}
	return t, nil
}

// discardFile removes a stored file when creation fails after the bytes landed.
func (u *UploadController) discardFile(upload *models.Upload) {
	if upload != nil && upload.StoredFilename != "" {
		_ = u.files.Remove(upload.StoredFilename)
	}
}

func parseFormBool(v string) bool {
	return v == "true" || v == "1" || v == "on"
}

func textPreview(text string) string {
	const limit = 120
	if text == "" {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
