package stores

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/cppla/linkvault/models"
	"github.com/cppla/linkvault/utils"
)

func TestMain(m *testing.M) {
	utils.Logger = zap.NewNop()
	utils.Sugar = utils.Logger.Sugar()
	os.Exit(m.Run())
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db") + "?_pragma=busy_timeout(10000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Upload{}, &models.VaultAccess{}))
	return db
}

func newTestUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username, PasswordHash: "x"}
	require.NoError(t, db.Create(u).Error)
	return u
}

// seedUpload inserts a record directly, bypassing Create's validation so tests
// can build already-lapsed states.
func seedUpload(t *testing.T, db *gorm.DB, u *models.Upload) *models.Upload {
	t.Helper()
	if u.Slug == "" {
		slug, err := utils.NewSlug()
		require.NoError(t, err)
		u.Slug = slug
	}
	if u.Visibility == "" {
		u.Visibility = models.VisibilityPublic
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func futureExpiry() time.Time { return time.Now().Add(time.Hour) }
