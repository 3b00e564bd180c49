package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTextVariant(t *testing.T) {
	now := time.Now()

	u := NewTextUpload("slug00000001", nil, "hello world")
	u.ExpiresAt = now.Add(time.Hour)
	assert.NoError(t, u.Validate(now))

	u = NewTextUpload("slug00000001", nil, "")
	u.ExpiresAt = now.Add(time.Hour)
	assert.Error(t, u.Validate(now))

	u = NewTextUpload("slug00000001", nil, "hello")
	u.ExpiresAt = now.Add(time.Hour)
	u.OriginalFilename = "leak.txt"
	assert.Error(t, u.Validate(now), "text uploads must not carry file metadata")
}

func TestValidateFileVariant(t *testing.T) {
	now := time.Now()

	u := NewFileUpload("slug00000002", nil, "report.pdf", "stored.pdf", "application/pdf", 1024)
	u.ExpiresAt = now.Add(time.Hour)
	assert.NoError(t, u.Validate(now))

	u = NewFileUpload("slug00000002", nil, "report.pdf", "", "application/pdf", 1024)
	u.ExpiresAt = now.Add(time.Hour)
	assert.Error(t, u.Validate(now), "stored filename is mandatory")

	u = NewFileUpload("slug00000002", nil, "report.pdf", "stored.pdf", "application/pdf", 1024)
	u.ExpiresAt = now.Add(time.Hour)
	u.TextContent = "leak"
	assert.Error(t, u.Validate(now), "file uploads must not carry inline text")
}

func TestValidatePolicy(t *testing.T) {
	now := time.Now()
	owner := uintPtr(1)

	newValid := func() *Upload {
		u := NewTextUpload("slug00000003", owner, "hello")
		u.ExpiresAt = now.Add(time.Hour)
		return u
	}

	u := newValid()
	u.Type = UploadType("blob")
	assert.Error(t, u.Validate(now))

	u = newValid()
	u.Visibility = Visibility("hidden")
	assert.Error(t, u.Validate(now))

	u = newValid()
	u.UserID = nil
	u.Visibility = VisibilityPrivate
	require.Error(t, u.Validate(now), "anonymous uploads cannot be private")
	u.Visibility = VisibilityProtected
	require.Error(t, u.Validate(now), "anonymous uploads cannot be protected")
	u.Visibility = VisibilityPublic
	assert.NoError(t, u.Validate(now))

	u = newValid()
	u.ExpiresAt = now
	assert.Error(t, u.Validate(now), "expiry must be strictly in the future")

	u = newValid()
	u.MaxViews = intPtr(0)
	assert.Error(t, u.Validate(now))
	u.MaxViews = intPtr(1)
	assert.NoError(t, u.Validate(now))
}
