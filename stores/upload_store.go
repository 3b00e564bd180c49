package stores

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/linkvault/models"
	"github.com/cppla/linkvault/utils"
)

// ValidationError marks caller-fixable creation problems so the API layer can
// surface them as 400s with the specific reason.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

// NewValidationError wraps a reason for a rejected creation payload.
func NewValidationError(msg string) *ValidationError {
	return &ValidationError{msg: msg}
}

const slugCreateAttempts = 5

// UploadStore is the persistence layer for uploads and their access grants.
// Every live-content query filters on the soft-delete flag here, never in callers.
type UploadStore struct {
	db *gorm.DB
}

// NewUploadStore wraps a gorm handle.
func NewUploadStore(db *gorm.DB) *UploadStore {
	return &UploadStore{db: db}
}

// Create validates the upload, assigns a fresh slug and persists the record
// together with any allowlist grants in a single transaction: either the upload
// and all of its grants are recorded or nothing is. On the negligible chance of
// a slug collision the insert is retried with a new slug.
func (s *UploadStore) Create(u *models.Upload, grantUserIDs []uint) error {
	if err := u.Validate(time.Now()); err != nil {
		return NewValidationError(err.Error())
	}
	if u.Visibility != models.VisibilityProtected && len(grantUserIDs) > 0 {
		return NewValidationError("allowed users are only valid for protected uploads")
	}

	grantUserIDs = utils.UniqueUint(grantUserIDs)

	var lastErr error
	for attempt := 0; attempt < slugCreateAttempts; attempt++ {
		slug, err := utils.NewSlug()
		if err != nil {
			return err
		}
		u.Slug = slug

		lastErr = s.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(u).Error; err != nil {
				return err
			}
			for _, uid := range grantUserIDs {
				grant := models.VaultAccess{UploadID: u.ID, UserID: uid}
				if err := tx.Create(&grant).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if lastErr == nil {
			return nil
		}
		if !isDuplicateKey(lastErr) {
			return lastErr
		}
		u.ID = 0
	}
	return lastErr
}

// FindBySlug returns the live record for slug, or nil when unknown or soft-deleted.
func (s *UploadStore) FindBySlug(slug string) (*models.Upload, error) {
	var u models.Upload
	err := s.db.Where("slug = ? AND is_deleted = ?", slug, false).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FindByID returns the live record for id, or nil when unknown or soft-deleted.
func (s *UploadStore) FindByID(id uint) (*models.Upload, error) {
	var u models.Upload
	err := s.db.Where("id = ? AND is_deleted = ?", id, false).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FindByOwner returns all live uploads owned by userID, newest first.
func (s *UploadStore) FindByOwner(userID uint) ([]models.Upload, error) {
	var uploads []models.Upload
	err := s.db.
		Where("user_id = ? AND is_deleted = ?", userID, false).
		Order("created_at DESC").
		Find(&uploads).Error
	return uploads, err
}

// RecordView atomically increments the view counter for slug and returns the
// post-increment record. The increment is a single UPDATE so two concurrent
// calls can never produce the same count. The validity check that precedes it
// in the request flow is deliberately not fused into this statement, so a
// race may allow one extra view past a cap.
func (s *UploadStore) RecordView(slug string) (*models.Upload, error) {
	err := s.db.Model(&models.Upload{}).
		Where("slug = ? AND is_deleted = ?", slug, false).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1)).Error
	if err != nil {
		return nil, err
	}
	return s.FindBySlug(slug)
}

// SoftDelete marks the record as logically removed; subsequent lookups miss it
// and the sweep hard-deletes it later.
func (s *UploadStore) SoftDelete(id uint) error {
	return s.db.Model(&models.Upload{}).
		Where("id = ?", id).
		UpdateColumn("is_deleted", true).Error
}

// FindExpired returns every non-soft-deleted record whose validity has lapsed:
// past expiry, a one-time link already viewed, or a view cap reached. The
// predicate mirrors Upload.Lapsed exactly.
func (s *UploadStore) FindExpired() ([]models.Upload, error) {
	var uploads []models.Upload
	err := s.db.
		Where("is_deleted = ?", false).
		Where(
			s.db.Where("expires_at <= ?", time.Now()).
				Or("is_one_time = ? AND view_count >= ?", true, 1).
				Or("max_views IS NOT NULL AND view_count >= max_views"),
		).
		Find(&uploads).Error
	return uploads, err
}

// HardDelete removes the row permanently; access grants cascade away with it.
func (s *UploadStore) HardDelete(id uint) error {
	if err := s.db.Where("upload_id = ?", id).Delete(&models.VaultAccess{}).Error; err != nil {
		return err
	}
	return s.db.Unscoped().Delete(&models.Upload{}, id).Error
}

// Grant records that userID may view the protected upload. Duplicate grants are
// no-ops, not errors.
func (s *UploadStore) Grant(uploadID, userID uint) error {
	grant := models.VaultAccess{UploadID: uploadID, UserID: userID}
	return s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&grant).Error
}

// HasAccess reports whether userID holds a grant on uploadID.
func (s *UploadStore) HasAccess(uploadID, userID uint) (bool, error) {
	var count int64
	err := s.db.Model(&models.VaultAccess{}).
		Where("upload_id = ? AND user_id = ?", uploadID, userID).
		Count(&count).Error
	return count > 0, err
}

// ListGrantees returns the allowlist of a protected upload ordered by username.
func (s *UploadStore) ListGrantees(uploadID uint) ([]models.Grantee, error) {
	var grantees []models.Grantee
	err := s.db.Model(&models.VaultAccess{}).
		Select("users.id, users.username, users.email").
		Joins("JOIN users ON users.id = vault_accesses.user_id").
		Where("vault_accesses.upload_id = ?", uploadID).
		Order("users.username ASC").
		Scan(&grantees).Error
	return grantees, err
}

// isDuplicateKey matches unique-constraint violations across the MySQL and
// SQLite drivers.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "UNIQUE constraint failed")
}
