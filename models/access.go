package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Access classifies the outcome of evaluating an access attempt against an upload.
type Access int

const (
	AccessAllowed Access = iota
	AccessNotFound
	AccessExpired
	AccessAuthRequired
	AccessForbidden
	AccessPasswordRequired
	AccessWrongSecret
)

// Denial describes why an access attempt was refused. A nil *Denial means the
// attempt passed every gate that was evaluated.
type Denial struct {
	Access Access
	Reason string
}

func deny(a Access, reason string) *Denial {
	return &Denial{Access: a, Reason: reason}
}

// Lapsed reports whether the upload's validity has run out: past its expiry,
// a one-time link already viewed, or a view cap already reached. The returned
// reason is suitable for user messaging.
func (u *Upload) Lapsed(now time.Time) (bool, string) {
	if !now.Before(u.ExpiresAt) {
		return true, "This link has expired."
	}
	if u.IsOneTime && u.ViewCount >= 1 {
		return true, "This was a one-time link and has already been viewed."
	}
	if u.MaxViews != nil && u.ViewCount >= *u.MaxViews {
		return true, "Maximum view/download limit reached."
	}
	return false, ""
}

// Evaluate runs the existence, validity and visibility gates in fixed order for
// the given upload and requester. requesterID zero means anonymous; hasGrant is
// the pre-resolved allowlist membership for protected uploads. It is pure: it
// never mutates state and never touches storage. The secret gate is separate
// (CheckSecret) because the metadata probe must not run it.
func Evaluate(u *Upload, requesterID uint, hasGrant bool, now time.Time) *Denial {
	if u == nil || u.IsDeleted {
		return deny(AccessNotFound, "Content not found.")
	}
	if lapsed, reason := u.Lapsed(now); lapsed {
		return deny(AccessExpired, reason)
	}
	switch u.Visibility {
	case VisibilityPublic:
		return nil
	case VisibilityPrivate:
		if requesterID == 0 {
			return deny(AccessAuthRequired, "Authentication required.")
		}
		if !u.IsOwner(requesterID) {
			return deny(AccessForbidden, "Access denied. This vault is private.")
		}
		return nil
	case VisibilityProtected:
		if requesterID == 0 {
			return deny(AccessAuthRequired, "Authentication required.")
		}
		if u.IsOwner(requesterID) || hasGrant {
			return nil
		}
		return deny(AccessForbidden, "Access denied. You are not authorized to view this vault.")
	}
	return deny(AccessForbidden, "Unknown visibility type.")
}

// CheckSecret runs the secret gate: when the upload carries a password hash the
// supplied plaintext must verify against it. bcrypt's comparison is
// constant-time-equivalent, so a mismatch leaks no prefix information.
func CheckSecret(u *Upload, secret string) *Denial {
	if !u.HasPassword() {
		return nil
	}
	if secret == "" {
		return deny(AccessPasswordRequired, "This link is password-protected.")
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(secret)) != nil {
		return deny(AccessWrongSecret, "Incorrect password.")
	}
	return nil
}
