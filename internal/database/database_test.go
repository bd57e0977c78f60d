package database

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"chirp/internal/config"
	"chirp/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:db_%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	db, err := Open(sqlite.Open(dsn))
	require.NoError(t, err)
	require.NoError(t, configurePool(db, config.DriverSQLite))
	require.NoError(t, AutoMigrate(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func TestSQLiteDSN_EnablesForeignKeys(t *testing.T) {
	assert.Equal(t, "file:chirp.db?_foreign_keys=on&_busy_timeout=5000", SQLiteDSN("chirp.db"))
}

func TestDialectorFor(t *testing.T) {
	d, err := dialectorFor(&config.Config{DBDriver: config.DriverSQLite, DBSQLitePath: "x.db"})
	require.NoError(t, err)
	assert.Equal(t, "sqlite", d.Name())

	d, err = dialectorFor(&config.Config{DBDriver: config.DriverPostgres, DBHost: "localhost"})
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())

	_, err = dialectorFor(&config.Config{DBDriver: "oracle"})
	assert.Error(t, err)
}

func TestPersistentModels_IncludesDomainTables(t *testing.T) {
	var names []string
	for _, m := range PersistentModels() {
		names = append(names, fmt.Sprintf("%T", m))
	}
	assert.ElementsMatch(t, []string{"*models.User", "*models.Post", "*models.Vote"}, names)
}

func TestCascadeDeletes(t *testing.T) {
	db := openTestDB(t)

	owner := &models.User{Email: "owner@example.com", Password: "x"}
	voter := &models.User{Email: "voter@example.com", Password: "x"}
	require.NoError(t, db.Create(owner).Error)
	require.NoError(t, db.Create(voter).Error)

	post := &models.Post{Title: "T", Content: "C", Published: true, OwnerID: owner.ID}
	require.NoError(t, db.Omit("Owner").Create(post).Error)
	require.NoError(t, db.Omit("User", "Post").Create(&models.Vote{UserID: voter.ID, PostID: post.ID}).Error)

	t.Run("deleting the voter removes the vote", func(t *testing.T) {
		require.NoError(t, db.Delete(&models.User{}, voter.ID).Error)
		var votes int64
		require.NoError(t, db.Model(&models.Vote{}).Count(&votes).Error)
		assert.Zero(t, votes)
	})

	t.Run("deleting the owner removes posts", func(t *testing.T) {
		require.NoError(t, db.Delete(&models.User{}, owner.ID).Error)
		var posts int64
		require.NoError(t, db.Model(&models.Post{}).Count(&posts).Error)
		assert.Zero(t, posts)
	})
}

func TestVoteCompositeKeyRejectsDuplicates(t *testing.T) {
	db := openTestDB(t)

	user := &models.User{Email: "u@example.com", Password: "x"}
	require.NoError(t, db.Create(user).Error)
	post := &models.Post{Title: "T", Content: "C", Published: true, OwnerID: user.ID}
	require.NoError(t, db.Omit("Owner").Create(post).Error)

	vote := models.Vote{UserID: user.ID, PostID: post.ID}
	require.NoError(t, db.Omit("User", "Post").Create(&vote).Error)

	dup := models.Vote{UserID: user.ID, PostID: post.ID}
	err := db.Omit("User", "Post").Create(&dup).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestInTransaction(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	t.Run("commits and runs after-commit callbacks", func(t *testing.T) {
		ran := false
		err := InTransaction(ctx, db, func(ctx context.Context) error {
			require.NotNil(t, FromContext(ctx))
			AfterCommit(ctx, func(context.Context) { ran = true })
			assert.False(t, ran)
			return Conn(ctx, db).Create(&models.User{Email: "commit@example.com", Password: "x"}).Error
		})
		require.NoError(t, err)
		assert.True(t, ran)

		var count int64
		require.NoError(t, db.Model(&models.User{}).Where("email = ?", "commit@example.com").Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("rolls back on error and skips callbacks", func(t *testing.T) {
		ran := false
		boom := errors.New("boom")
		err := InTransaction(ctx, db, func(ctx context.Context) error {
			AfterCommit(ctx, func(context.Context) { ran = true })
			require.NoError(t, Conn(ctx, db).Create(&models.User{Email: "rollback@example.com", Password: "x"}).Error)
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.False(t, ran)

		var count int64
		require.NoError(t, db.Model(&models.User{}).Where("email = ?", "rollback@example.com").Count(&count).Error)
		assert.Zero(t, count)
	})

	t.Run("rolls back on panic", func(t *testing.T) {
		assert.Panics(t, func() {
			_ = InTransaction(ctx, db, func(ctx context.Context) error {
				require.NoError(t, Conn(ctx, db).Create(&models.User{Email: "panic@example.com", Password: "x"}).Error)
				panic("boom")
			})
		})

		var count int64
		require.NoError(t, db.Model(&models.User{}).Where("email = ?", "panic@example.com").Count(&count).Error)
		assert.Zero(t, count)
	})

	t.Run("nested calls join the outer unit of work", func(t *testing.T) {
		outerCtx, uow, err := Begin(ctx, db)
		require.NoError(t, err)

		err = InTransaction(outerCtx, db, func(ctx context.Context) error {
			assert.Same(t, uow, FromContext(ctx))
			return Conn(ctx, db).Create(&models.User{Email: "nested@example.com", Password: "x"}).Error
		})
		require.NoError(t, err)
		require.NoError(t, uow.Rollback())

		var count int64
		require.NoError(t, db.Model(&models.User{}).Where("email = ?", "nested@example.com").Count(&count).Error)
		assert.Zero(t, count)
	})

	t.Run("after-commit without a unit of work runs immediately", func(t *testing.T) {
		ran := false
		AfterCommit(ctx, func(context.Context) { ran = true })
		assert.True(t, ran)
	})

	t.Run("rollback after commit is a no-op", func(t *testing.T) {
		_, uow, err := Begin(ctx, db)
		require.NoError(t, err)
		require.NoError(t, uow.Commit(ctx))
		assert.NoError(t, uow.Rollback())
	})
}
