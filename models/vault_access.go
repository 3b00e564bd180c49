package models

import "time"

// VaultAccess records that a user may view a protected upload. The composite unique
// index makes duplicate grants impossible; both foreign keys cascade so grants
// disappear with either endpoint.
type VaultAccess struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UploadID  uint      `gorm:"not null;uniqueIndex:idx_vault_access_upload_user" json:"upload_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_vault_access_upload_user;index" json:"user_id"`
	GrantedAt time.Time `gorm:"autoCreateTime" json:"granted_at"`

	Upload Upload `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	User   User   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

// Grantee is the public projection of a user on a protected upload's allowlist.
type Grantee struct {
	ID       uint    `json:"id"`
	Username string  `json:"username"`
	Email    *string `json:"email"`
}
