// Package models contains data structures for the application's domain models.
package models

import "time"

// Comment is a flat comment record. A nil ParentCommentID marks a top-level
// comment; otherwise it references a top-level comment of the same post.
type Comment struct {
	ID              int64     `gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	PostID          int64     `gorm:"not null;index:idx_comments_post_created,priority:1" json:"post_id,string"`
	AuthorID        int64     `gorm:"not null" json:"author_id,string"`
	Content         string    `gorm:"type:text;not null" json:"content"`
	ParentCommentID *int64    `gorm:"index" json:"parent_comment_id,string,omitempty"`
	CreatedAt       time.Time `gorm:"index:idx_comments_post_created,priority:2" json:"created_at"`
}

// TableName specifies the table name for GORM
func (Comment) TableName() string {
	return "comments"
}

// IsReply reports whether c answers another comment.
func (c *Comment) IsReply() bool {
	return c.ParentCommentID != nil
}

// CommentNode is a comment in a two-level thread.
type CommentNode struct {
	ID              int64          `json:"id,string"`
	PostID          int64          `json:"post_id,string"`
	Author          UserSummary    `json:"author"`
	Content         string         `json:"content"`
	ParentCommentID *int64         `json:"parent_comment_id,string,omitempty"`
	Replies         []*CommentNode `json:"replies"`
	CreatedAt       time.Time      `json:"created_at"`
}
