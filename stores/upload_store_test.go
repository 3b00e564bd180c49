package stores

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/linkvault/models"
	"github.com/cppla/linkvault/utils"
)

func intPtr(n int) *int { return &n }

func TestCreateAssignsSlugAndPersistsGrants(t *testing.T) {
	db := newTestDB(t)
	store := NewUploadStore(db)
	owner := newTestUser(t, db, "owner")
	alice := newTestUser(t, db, "alice")
	bob := newTestUser(t, db, "bob")

	u := models.NewTextUpload("", &owner.ID, "shared note")
	u.Visibility = models.VisibilityProtected
	u.ExpiresAt = futureExpiry()

	// Duplicate IDs in the request collapse to a single grant.
	err := store.Create(u, []uint{alice.ID, bob.ID, alice.ID})
	require.NoError(t, err)
	assert.Len(t, u.Slug, utils.SlugLength)
	assert.NotZero(t, u.ID)

	var count int64
	require.NoError(t, db.Model(&models.VaultAccess{}).Where("upload_id = ?", u.ID).Count(&count).Error)
	assert.EqualValues(t, 2, count)

	ok, err := store.HasAccess(u.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = store.HasAccess(u.ID, owner.ID)
	require.NoError(t, err)
	assert.False(t, ok, "ownership is not a grant")
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	db := newTestDB(t)
	store := NewUploadStore(db)
	owner := newTestUser(t, db, "owner")

	u := models.NewTextUpload("", &owner.ID, "")
	u.ExpiresAt = futureExpiry()
	err := store.Create(u, nil)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	u = models.NewTextUpload("", &owner.ID, "note")
	u.ExpiresAt = futureExpiry()
	err = store.Create(u, []uint{owner.ID})
	require.ErrorAs(t, err, &verr, "allowlists only apply to protected uploads")
}

func TestFindBySlugSkipsSoftDeleted(t *testing.T) {
	db := newTestDB(t)
	store := NewUploadStore(db)

	u := models.NewTextUpload("", nil, "note")
	u.ExpiresAt = futureExpiry()
	require.NoError(t, store.Create(u, nil))

	got, err := store.FindBySlug(u.Slug)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, u.ID, got.ID)

	require.NoError(t, store.SoftDelete(u.ID))

	got, err = store.FindBySlug(u.Slug)
	require.NoError(t, err)
	assert.Nil(t, got, "soft-deleted records must look absent")

	got, err = store.FindBySlug("nosuchslug00")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFindByOwnerNewestFirst(t *testing.T) {
	db := newTestDB(t)
	store := NewUploadStore(db)
	owner := newTestUser(t, db, "owner")

	older := seedUpload(t, db, &models.Upload{
		UserID: &owner.ID, Type: models.UploadTypeText, TextContent: "old",
		ExpiresAt: futureExpiry(), CreatedAt: time.Now().Add(-time.Hour),
	})
	newer := seedUpload(t, db, &models.Upload{
		UserID: &owner.ID, Type: models.UploadTypeText, TextContent: "new",
		ExpiresAt: futureExpiry(), CreatedAt: time.Now(),
	})
	seedUpload(t, db, &models.Upload{
		UserID: &owner.ID, Type: models.UploadTypeText, TextContent: "gone",
		ExpiresAt: futureExpiry(), IsDeleted: true,
	})

	uploads, err := store.FindByOwner(owner.ID)
	require.NoError(t, err)
	require.Len(t, uploads, 2)
	assert.Equal(t, newer.ID, uploads[0].ID)
	assert.Equal(t, older.ID, uploads[1].ID)
}

func TestRecordViewIncrements(t *testing.T) {
	db := newTestDB(t)
	store := NewUploadStore(db)

	u := models.NewTextUpload("", nil, "note")
	u.ExpiresAt = futureExpiry()
	require.NoError(t, store.Create(u, nil))

	got, err := store.RecordView(u.Slug)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 1, got.ViewCount)

	got, err = store.RecordView(u.Slug)
	require.NoError(t, err)
	assert.Equal(t, 2, got.ViewCount)
}

func TestRecordViewIsAtomicUnderConcurrency(t *testing.T) {
	db := newTestDB(t)
	store := NewUploadStore(db)

	u := models.NewTextUpload("", nil, "note")
	u.ExpiresAt = futureExpiry()
	require.NoError(t, store.Create(u, nil))

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.RecordView(u.Slug)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := store.FindBySlug(u.Slug)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, callers, got.ViewCount, "no increment may be lost")
}

func TestFindExpiredPredicate(t *testing.T) {
	db := newTestDB(t)
	store := NewUploadStore(db)

	live := seedUpload(t, db, &models.Upload{
		Type: models.UploadTypeText, TextContent: "live", ExpiresAt: futureExpiry(),
	})
	pastExpiry := seedUpload(t, db, &models.Upload{
		Type: models.UploadTypeText, TextContent: "old", ExpiresAt: time.Now().Add(-time.Minute),
	})
	oneTimeViewed := seedUpload(t, db, &models.Upload{
		Type: models.UploadTypeText, TextContent: "once", ExpiresAt: futureExpiry(),
		IsOneTime: true, ViewCount: 1,
	})
	capped := seedUpload(t, db, &models.Upload{
		Type: models.UploadTypeText, TextContent: "cap", ExpiresAt: futureExpiry(),
		MaxViews: intPtr(2), ViewCount: 2,
	})
	seedUpload(t, db, &models.Upload{
		Type: models.UploadTypeText, TextContent: "fresh once", ExpiresAt: futureExpiry(),
		IsOneTime: true, ViewCount: 0,
	})
	seedUpload(t, db, &models.Upload{
		Type: models.UploadTypeText, TextContent: "under cap", ExpiresAt: futureExpiry(),
		MaxViews: intPtr(2), ViewCount: 1,
	})

	expired, err := store.FindExpired()
	require.NoError(t, err)

	ids := make(map[uint]bool, len(expired))
	for _, e := range expired {
		ids[e.ID] = true
	}
	assert.False(t, ids[live.ID])
	assert.True(t, ids[pastExpiry.ID])
	assert.True(t, ids[oneTimeViewed.ID])
	assert.True(t, ids[capped.ID])
	assert.Len(t, expired, 3)
}

func TestGrantIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	store := NewUploadStore(db)
	owner := newTestUser(t, db, "owner")
	alice := newTestUser(t, db, "alice")

	u := seedUpload(t, db, &models.Upload{
		UserID: &owner.ID, Type: models.UploadTypeText, TextContent: "note",
		ExpiresAt: futureExpiry(), Visibility: models.VisibilityProtected,
	})

	require.NoError(t, store.Grant(u.ID, alice.ID))
	require.NoError(t, store.Grant(u.ID, alice.ID))

	var count int64
	require.NoError(t, db.Model(&models.VaultAccess{}).Where("upload_id = ?", u.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestListGranteesOrderedByUsername(t *testing.T) {
	db := newTestDB(t)
	store := NewUploadStore(db)
	owner := newTestUser(t, db, "owner")
	bob := newTestUser(t, db, "bob")
	alice := newTestUser(t, db, "alice")

	u := seedUpload(t, db, &models.Upload{
		UserID: &owner.ID, Type: models.UploadTypeText, TextContent: "note",
		ExpiresAt: futureExpiry(), Visibility: models.VisibilityProtected,
	})
	require.NoError(t, store.Grant(u.ID, bob.ID))
	require.NoError(t, store.Grant(u.ID, alice.ID))

	grantees, err := store.ListGrantees(u.ID)
	require.NoError(t, err)
	require.Len(t, grantees, 2)
	assert.Equal(t, "alice", grantees[0].Username)
	assert.Equal(t, "bob", grantees[1].Username)
}

func TestHardDeleteRemovesGrants(t *testing.T) {
	db := newTestDB(t)
	store := NewUploadStore(db)
	owner := newTestUser(t, db, "owner")
	alice := newTestUser(t, db, "alice")

	u := seedUpload(t, db, &models.Upload{
		UserID: &owner.ID, Type: models.UploadTypeText, TextContent: "note",
		ExpiresAt: futureExpiry(), Visibility: models.VisibilityProtected,
	})
	require.NoError(t, store.Grant(u.ID, alice.ID))
	require.NoError(t, store.HardDelete(u.ID))

	var uploads, grants int64
	require.NoError(t, db.Model(&models.Upload{}).Where("id = ?", u.ID).Count(&uploads).Error)
	require.NoError(t, db.Model(&models.VaultAccess{}).Where("upload_id = ?", u.ID).Count(&grants).Error)
	assert.Zero(t, uploads)
	assert.Zero(t, grants)
}

func TestIsDuplicateKey(t *testing.T) {
	assert.False(t, isDuplicateKey(nil))
	assert.False(t, isDuplicateKey(errors.New("connection refused")))
	assert.True(t, isDuplicateKey(errors.New("UNIQUE constraint failed: uploads.slug")))
	assert.True(t, isDuplicateKey(errors.New("Error 1062: Duplicate entry 'x' for key 'slug'")))
}
