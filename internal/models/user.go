// Package models contains data structures for the application's domain models.
package models

import "time"

// User represents a member of the social graph. Followers and Following are
// the two halves of every follow edge and must stay symmetric across users.
type User struct {
	ID        int64     `gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	Username  string    `gorm:"size:64;uniqueIndex;not null" json:"username"`
	Name      string    `gorm:"size:120" json:"name"`
	Avatar    string    `json:"avatar"`
	Bio       string    `gorm:"type:text" json:"bio"`
	Followers IDList    `gorm:"serializer:json;type:text" json:"followers"`
	Following IDList    `gorm:"serializer:json;type:text" json:"following"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}

// Summary returns the public identity embedded in posts, comments and messages.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:       u.ID,
		Username: u.Username,
		Name:     u.Name,
		Avatar:   u.Avatar,
	}
}

// Profile returns the public profile of u as seen by viewerID.
func (u *User) Profile(viewerID int64) *PublicProfile {
	return &PublicProfile{
		UserSummary:    u.Summary(),
		Bio:            u.Bio,
		Followers:      u.Followers,
		Following:      u.Following,
		FollowersCount: len(u.Followers),
		FollowingCount: len(u.Following),
		IsFollowing:    viewerID != 0 && u.Followers.Contains(viewerID),
		CreatedAt:      u.CreatedAt,
	}
}

// UserSummary is the only shape in which other users are embedded in results.
type UserSummary struct {
	ID       int64  `json:"id,string"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar"`
}

// PublicProfile is a user's profile with follow counts and the viewer's follow state.
type PublicProfile struct {
	UserSummary
	Bio            string    `json:"bio"`
	Followers      IDList    `json:"followers"`
	Following      IDList    `json:"following"`
	FollowersCount int       `json:"followers_count"`
	FollowingCount int       `json:"following_count"`
	IsFollowing    bool      `json:"is_following"`
	CreatedAt      time.Time `json:"created_at"`
}
