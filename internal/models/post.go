// Package models contains data structures for the application's domain models.
package models

import "time"

// MaxContentLength bounds post, comment and message bodies.
const MaxContentLength = 1000

// Post represents a short text item. Likes is mutated only by the like toggle.
type Post struct {
	ID        int64     `gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	AuthorID  int64     `gorm:"not null;index:idx_posts_author_created,priority:1" json:"author_id,string"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Likes     IDList    `gorm:"serializer:json;type:text" json:"likes"`
	CreatedAt time.Time `gorm:"index:idx_posts_author_created,priority:2" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Post) TableName() string {
	return "posts"
}

// PostView is a post enriched with author and liker summaries.
type PostView struct {
	ID         int64         `json:"id,string"`
	Author     UserSummary   `json:"author"`
	Content    string        `json:"content"`
	Likes      []UserSummary `json:"likes"`
	LikesCount int           `json:"likes_count"`
	// Liked is computed for the requesting user
	Liked     bool      `json:"liked"`
	CreatedAt time.Time `json:"created_at"`
}
