package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/linkvault/middleware"
	"github.com/cppla/linkvault/models"
	"github.com/cppla/linkvault/stores"
	"github.com/cppla/linkvault/utils"
)

// LinkController serves link resolution: the metadata probe, the consuming
// content access, and the raw file download.
type LinkController struct {
	uploads *stores.UploadStore
	files   *stores.FileStore
}

// NewLinkController creates a LinkController.
func NewLinkController(uploads *stores.UploadStore, files *stores.FileStore) *LinkController {
	return &LinkController{uploads: uploads, files: files}
}

// resolve fetches the record for slug and runs the existence, validity and
// visibility gates for the current requester. Grant membership is looked up
// only when it can matter, so the evaluator itself stays pure.
func (l *LinkController) resolve(ctx *gin.Context, slug string) (*models.Upload, *models.Denial) {
	upload, err := l.uploads.FindBySlug(slug)
	if err != nil {
		utils.Sugar.Errorf("lookup slug %s: %v", slug, err)
		return nil, &models.Denial{Access: AccessStorageFailure, Reason: "Internal server error."}
	}

	requesterID := middleware.RequesterID(ctx)
	hasGrant := false
	if upload != nil && upload.Visibility == models.VisibilityProtected &&
		requesterID != 0 && !upload.IsOwner(requesterID) {
		hasGrant, err = l.uploads.HasAccess(upload.ID, requesterID)
		if err != nil {
			utils.Sugar.Errorf("grant lookup for upload %d: %v", upload.ID, err)
			return nil, &models.Denial{Access: AccessStorageFailure, Reason: "Internal server error."}
		}
	}

	if denial := models.Evaluate(upload, requesterID, hasGrant, time.Now()); denial != nil {
		return nil, denial
	}
	return upload, nil
}

// AccessStorageFailure is a controller-local marker for backend failures that
// must surface as opaque 500s, never as access-control outcomes.
const AccessStorageFailure models.Access = -1

// respondDenial maps an access denial onto the HTTP surface. AuthRequired and
// PasswordRequired carry hint flags so clients can drive login and password
// prompts without string matching.
func respondDenial(ctx *gin.Context, d *models.Denial) {
	switch d.Access {
	case models.AccessNotFound:
		utils.Error(ctx, http.StatusNotFound, 40403, d.Reason)
	case models.AccessExpired:
		utils.Error(ctx, http.StatusGone, 41001, d.Reason)
	case models.AccessAuthRequired:
		utils.Respond(ctx, http.StatusUnauthorized, 40120, d.Reason, gin.H{"requires_auth": true})
	case models.AccessForbidden:
		utils.Error(ctx, http.StatusForbidden, 40302, d.Reason)
	case models.AccessPasswordRequired:
		utils.Respond(ctx, http.StatusUnauthorized, 40121, d.Reason, gin.H{"requires_password": true})
	case models.AccessWrongSecret:
		utils.Error(ctx, http.StatusUnauthorized, 40122, d.Reason)
	default:
		utils.Error(ctx, http.StatusInternalServerError, 50020, "Internal server error.")
	}
}

// Meta handles GET /link/:slug/meta. It runs every gate except the secret one
// and never increments the view counter, so clients can render password prompts
// without consuming a view.
func (l *LinkController) Meta(ctx *gin.Context) {
	upload, denial := l.resolve(ctx, ctx.Param("slug"))
	if denial != nil {
		respondDenial(ctx, denial)
		return
	}

	utils.Success(ctx, gin.H{
		"slug":              upload.Slug,
		"type":              upload.Type,
		"has_password":      upload.HasPassword(),
		"is_one_time":       upload.IsOneTime,
		"max_views":         upload.MaxViews,
		"view_count":        upload.ViewCount,
		"expires_at":        upload.ExpiresAt,
		"original_filename": upload.OriginalFilename,
		"mime_type":         upload.MimeType,
		"file_size":         upload.FileSize,
		"visibility":        upload.Visibility,
	})
}

// Access handles POST /link/:slug: the consuming content access. All gates run
// in order; only a full pass increments the view counter.
func (l *LinkController) Access(ctx *gin.Context) {
	upload, denial := l.resolve(ctx, ctx.Param("slug"))
	if denial != nil {
		respondDenial(ctx, denial)
		return
	}

	var body struct {
		Password string `json:"password"`
	}
	_ = ctx.ShouldBindJSON(&body)

	if denial := models.CheckSecret(upload, body.Password); denial != nil {
		respondDenial(ctx, denial)
		return
	}

	updated, err := l.uploads.RecordView(upload.Slug)
	if err != nil || updated == nil {
		utils.Sugar.Errorf("record view for slug %s: %v", upload.Slug, err)
		utils.Error(ctx, http.StatusInternalServerError, 50021, "Internal server error.")
		return
	}

	if updated.Type == models.UploadTypeText {
		utils.Success(ctx, gin.H{
			"type":         updated.Type,
			"text_content": updated.TextContent,
			"view_count":   updated.ViewCount,
			"max_views":    updated.MaxViews,
			"is_one_time":  updated.IsOneTime,
			"expires_at":   updated.ExpiresAt,
		})
		return
	}

	utils.Success(ctx, gin.H{
		"type":              updated.Type,
		"original_filename": updated.OriginalFilename,
		"mime_type":         updated.MimeType,
		"file_size":         updated.FileSize,
		"view_count":        updated.ViewCount,
		"max_views":         updated.MaxViews,
		"is_one_time":       updated.IsOneTime,
		"expires_at":        updated.ExpiresAt,
		"download_url":      "/api/v1/link/" + updated.Slug + "/download",
	})
}

// Download handles GET /link/:slug/download and streams the stored bytes with
// the original filename. The password travels as a query parameter because the
// browser needs a plain link. Downloads re-run every gate but do not increment
// the counter; the consuming access already did.
func (l *LinkController) Download(ctx *gin.Context) {
	upload, denial := l.resolve(ctx, ctx.Param("slug"))
	if denial != nil {
		respondDenial(ctx, denial)
		return
	}

	if upload.Type != models.UploadTypeFile {
		utils.Error(ctx, http.StatusBadRequest, 40021, "This link does not contain a file.")
		return
	}

	if denial := models.CheckSecret(upload, ctx.Query("password")); denial != nil {
		respondDenial(ctx, denial)
		return
	}

	ctx.FileAttachment(l.files.Path(upload.StoredFilename), upload.OriginalFilename)
}
