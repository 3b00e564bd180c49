package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang.org/x/crypto/bcrypt"
)

func intPtr(n int) *int    { return &n }
func uintPtr(n uint) *uint { return &n }

func liveUpload(visibility Visibility, ownerID *uint) *Upload {
	return &Upload{
		Slug:        "abcdefgh1234",
		UserID:      ownerID,
		Type:        UploadTypeText,
		TextContent: "hello",
		ExpiresAt:   time.Now().Add(time.Hour),
		Visibility:  visibility,
	}
}

func TestEvaluateExistenceGate(t *testing.T) {
	now := time.Now()

	denial := Evaluate(nil, 0, false, now)
	require.NotNil(t, denial)
	assert.Equal(t, AccessNotFound, denial.Access)

	u := liveUpload(VisibilityPublic, nil)
	u.IsDeleted = true
	denial = Evaluate(u, 0, false, now)
	require.NotNil(t, denial)
	assert.Equal(t, AccessNotFound, denial.Access)
	assert.Equal(t, "Content not found.", denial.Reason)
}

func TestEvaluateValidityGate(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name   string
		mutate func(*Upload)
		reason string
	}{
		{
			name:   "past expiry",
			mutate: func(u *Upload) { u.ExpiresAt = now.Add(-time.Second) },
			reason: "This link has expired.",
		},
		{
			name:   "expiry boundary is inclusive",
			mutate: func(u *Upload) { u.ExpiresAt = now },
			reason: "This link has expired.",
		},
		{
			name:   "one-time already viewed",
			mutate: func(u *Upload) { u.IsOneTime = true; u.ViewCount = 1 },
			reason: "This was a one-time link and has already been viewed.",
		},
		{
			name:   "view cap reached",
			mutate: func(u *Upload) { u.MaxViews = intPtr(3); u.ViewCount = 3 },
			reason: "Maximum view/download limit reached.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := liveUpload(VisibilityPublic, nil)
			tt.mutate(u)
			denial := Evaluate(u, 0, false, now)
			require.NotNil(t, denial)
			assert.Equal(t, AccessExpired, denial.Access)
			assert.Equal(t, tt.reason, denial.Reason)
		})
	}
}

func TestEvaluateValidityPrecedesVisibility(t *testing.T) {
	// An expired private upload must report Expired, not AuthRequired, even to
	// anonymous callers: the gate order is fixed.
	u := liveUpload(VisibilityPrivate, uintPtr(7))
	u.ExpiresAt = time.Now().Add(-time.Minute)
	denial := Evaluate(u, 0, false, time.Now())
	require.NotNil(t, denial)
	assert.Equal(t, AccessExpired, denial.Access)
}

func TestEvaluateVisibilityGate(t *testing.T) {
	now := time.Now()
	owner := uintPtr(7)

	tests := []struct {
		name        string
		visibility  Visibility
		requesterID uint
		hasGrant    bool
		want        Access
	}{
		{"public anonymous", VisibilityPublic, 0, false, AccessAllowed},
		{"public stranger", VisibilityPublic, 99, false, AccessAllowed},
		{"private anonymous", VisibilityPrivate, 0, false, AccessAuthRequired},
		{"private stranger", VisibilityPrivate, 99, false, AccessForbidden},
		{"private owner", VisibilityPrivate, 7, false, AccessAllowed},
		{"protected anonymous", VisibilityProtected, 0, false, AccessAuthRequired},
		{"protected owner", VisibilityProtected, 7, false, AccessAllowed},
		{"protected granted", VisibilityProtected, 99, true, AccessAllowed},
		{"protected ungranted", VisibilityProtected, 99, false, AccessForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := liveUpload(tt.visibility, owner)
			denial := Evaluate(u, tt.requesterID, tt.hasGrant, now)
			if tt.want == AccessAllowed {
				assert.Nil(t, denial)
				return
			}
			require.NotNil(t, denial)
			assert.Equal(t, tt.want, denial.Access)
		})
	}
}

func TestEvaluateNeverRunsSecretGate(t *testing.T) {
	// The metadata probe relies on Evaluate stopping after visibility.
	u := liveUpload(VisibilityPublic, nil)
	hash, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	require.NoError(t, err)
	u.PasswordHash = string(hash)

	assert.Nil(t, Evaluate(u, 0, false, time.Now()))
}

func TestCheckSecret(t *testing.T) {
	u := liveUpload(VisibilityPublic, nil)
	assert.Nil(t, CheckSecret(u, ""), "no hash set means no secret gate")

	hash, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	require.NoError(t, err)
	u.PasswordHash = string(hash)

	denial := CheckSecret(u, "")
	require.NotNil(t, denial)
	assert.Equal(t, AccessPasswordRequired, denial.Access)

	denial = CheckSecret(u, "wrong")
	require.NotNil(t, denial)
	assert.Equal(t, AccessWrongSecret, denial.Access)
	assert.Equal(t, "Incorrect password.", denial.Reason)

	assert.Nil(t, CheckSecret(u, "secret1"))
}
