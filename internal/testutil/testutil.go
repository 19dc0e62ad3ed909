// Package testutil provides shared fixtures for backend tests.
package testutil

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"pulse/internal/database"
	"pulse/internal/idgen"
	"pulse/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// NewDB opens a private in-memory SQLite database with the full schema.
// A single connection keeps every statement on the same in-memory database.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:pulse_test_%d?mode=memory", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return db
}

// CreateUser inserts a user with the given username.
func CreateUser(t testing.TB, db *gorm.DB, username string) *models.User {
	t.Helper()
	u := &models.User{
		ID:       idgen.Next(),
		Username: username,
		Name:     username,
		Avatar:   "https://avatars.example/" + username + ".png",
	}
	require.NoError(t, db.WithContext(context.Background()).Create(u).Error)
	return u
}

// Follow writes a symmetric follow edge directly, bypassing the service.
func Follow(t testing.TB, db *gorm.DB, follower, followee *models.User) {
	t.Helper()
	follower.Following = follower.Following.Add(followee.ID)
	followee.Followers = followee.Followers.Add(follower.ID)
	require.NoError(t, db.Model(follower).Select("Following").Updates(follower).Error)
	require.NoError(t, db.Model(followee).Select("Followers").Updates(followee).Error)
}

// CreatePost inserts a post by author at the given time.
func CreatePost(t testing.TB, db *gorm.DB, author *models.User, content string, at time.Time) *models.Post {
	t.Helper()
	p := &models.Post{ID: idgen.Next(), AuthorID: author.ID, Content: content, CreatedAt: at}
	require.NoError(t, db.Create(p).Error)
	return p
}

// CreateComment inserts a comment; parent may be nil.
func CreateComment(t testing.TB, db *gorm.DB, post *models.Post, author *models.User, content string, parent *models.Comment, at time.Time) *models.Comment {
	t.Helper()
	c := &models.Comment{ID: idgen.Next(), PostID: post.ID, AuthorID: author.ID, Content: content, CreatedAt: at}
	if parent != nil {
		pid := parent.ID
		c.ParentCommentID = &pid
	}
	require.NoError(t, db.Create(c).Error)
	return c
}

// CreateMessage inserts a direct message.
func CreateMessage(t testing.TB, db *gorm.DB, from, to *models.User, content string, read bool, at time.Time) *models.Message {
	t.Helper()
	m := &models.Message{ID: idgen.Next(), SenderID: from.ID, ReceiverID: to.ID, Content: content, CreatedAt: at}
	require.NoError(t, db.Create(m).Error)
	if read {
		require.NoError(t, db.Model(m).Update("read", true).Error)
		m.Read = true
	}
	return m
}
