// Package testutil provides shared test doubles and fixtures for package tests.
package testutil

import (
	"fmt"
	"testing"

	"chirp/internal/database"
	"chirp/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewTestDB returns an isolated in-memory SQLite database with the schema applied
// and foreign keys enforced.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:chirp_%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	db, err := database.Open(sqlite.Open(dsn))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// CreateUser inserts a user whose password is hashed at bcrypt.MinCost.
func CreateUser(t testing.TB, db *gorm.DB, email, password string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{Email: email, Password: string(hash)}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreatePost inserts a published post owned by owner.
func CreatePost(t testing.TB, db *gorm.DB, owner *models.User, title, content string) *models.Post {
	t.Helper()

	post := &models.Post{Title: title, Content: content, Published: true, OwnerID: owner.ID}
	require.NoError(t, db.Omit("Owner").Create(post).Error)
	return post
}

// CreateVote inserts a vote row for (user, post).
func CreateVote(t testing.TB, db *gorm.DB, user *models.User, post *models.Post) {
	t.Helper()
	require.NoError(t, db.Omit("User", "Post").Create(&models.Vote{UserID: user.ID, PostID: post.ID}).Error)
}
