package models

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// UploadType discriminates the payload variant of an upload.
type UploadType string

const (
	UploadTypeText UploadType = "text"
	UploadTypeFile UploadType = "file"
)

// Visibility controls who may pass the ownership gate of an upload.
type Visibility string

const (
	VisibilityPublic    Visibility = "public"
	VisibilityPrivate   Visibility = "private"
	VisibilityProtected Visibility = "protected"
)

// ValidVisibility reports whether v is one of the known visibility tiers.
func ValidVisibility(v Visibility) bool {
	return v == VisibilityPublic || v == VisibilityPrivate || v == VisibilityProtected
}

// Upload is the central entity: a time-limited piece of shared content addressed by
// an unguessable slug. Exactly one payload variant is populated, matching Type;
// the NewTextUpload / NewFileUpload constructors plus Validate keep inconsistent
// records unrepresentable at creation time.
type Upload struct {
	ID     uint    `gorm:"primaryKey" json:"id"`
	Slug   string  `gorm:"size:16;uniqueIndex;not null" json:"slug"`
	UserID *uint   `gorm:"index" json:"user_id"`
	Owner  *User   `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"-"`

	Type        UploadType `gorm:"size:8;not null" json:"type"`
	TextContent string     `gorm:"type:text" json:"-"`

	OriginalFilename string `gorm:"size:255" json:"original_filename,omitempty"`
	StoredFilename   string `gorm:"size:255" json:"-"`
	MimeType         string `gorm:"size:128" json:"mime_type,omitempty"`
	FileSize         int64  `json:"file_size,omitempty"`

	PasswordHash string `gorm:"size:255" json:"-"`

	IsOneTime bool `gorm:"not null;default:false" json:"is_one_time"`
	MaxViews  *int `json:"max_views"`
	ViewCount int  `gorm:"not null;default:0" json:"view_count"`

	ExpiresAt  time.Time  `gorm:"index;not null" json:"expires_at"`
	Visibility Visibility `gorm:"size:16;not null;default:'public'" json:"visibility"`

	IsDeleted bool `gorm:"not null;default:false;index" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (u *Upload) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return nil
}

// BeforeUpdate ensures the UpdatedAt timestamp is refreshed.
func (u *Upload) BeforeUpdate(tx *gorm.DB) error {
	u.UpdatedAt = time.Now()
	return nil
}

// NewTextUpload builds a text-variant upload with no file fields populated.
func NewTextUpload(slug string, ownerID *uint, text string) *Upload {
	return &Upload{
		Slug:        slug,
		UserID:      ownerID,
		Type:        UploadTypeText,
		TextContent: text,
		Visibility:  VisibilityPublic,
	}
}

// NewFileUpload builds a file-variant upload with no inline text populated.
func NewFileUpload(slug string, ownerID *uint, originalName, storedName, mimeType string, size int64) *Upload {
	return &Upload{
		Slug:             slug,
		UserID:           ownerID,
		Type:             UploadTypeFile,
		OriginalFilename: originalName,
		StoredFilename:   storedName,
		MimeType:         mimeType,
		FileSize:         size,
		Visibility:       VisibilityPublic,
	}
}

// Validate checks the payload/policy combination for internal consistency before
// the record is persisted.
func (u *Upload) Validate(now time.Time) error {
	switch u.Type {
	case UploadTypeText:
		if u.TextContent == "" {
			return errors.New("text content is required for text uploads")
		}
		if u.StoredFilename != "" || u.OriginalFilename != "" {
			return errors.New("text uploads must not carry file metadata")
		}
	case UploadTypeFile:
		if u.StoredFilename == "" {
			return errors.New("a stored file is required for file uploads")
		}
		if u.TextContent != "" {
			return errors.New("file uploads must not carry inline text")
		}
	default:
		return fmt.Errorf("invalid upload type %q", u.Type)
	}
	if !ValidVisibility(u.Visibility) {
		return fmt.Errorf("invalid visibility %q", u.Visibility)
	}
	if u.Visibility != VisibilityPublic && u.UserID == nil {
		return errors.New("private and protected uploads require an owner")
	}
	if !u.ExpiresAt.After(now) {
		return errors.New("expiry date must be in the future")
	}
	if u.MaxViews != nil && *u.MaxViews < 1 {
		return errors.New("maxViews must be a positive integer")
	}
	return nil
}

// HasPassword reports whether the upload carries a per-link secret.
func (u *Upload) HasPassword() bool {
	return u.PasswordHash != ""
}

// IsOwner reports whether requesterID identifies the upload's owner.
// A zero requesterID means anonymous and never matches.
func (u *Upload) IsOwner(requesterID uint) bool {
	return requesterID != 0 && u.UserID != nil && *u.UserID == requesterID
}
