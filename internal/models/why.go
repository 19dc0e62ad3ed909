package models

import "time"

// MaxWhyTitleLength bounds the title of a Why.
const MaxWhyTitleLength = 200

// Why is a question a user puts to the community.
type Why struct {
	ID          int64     `gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	AuthorID    int64     `gorm:"not null;index" json:"author_id,string"`
	Title       string    `gorm:"size:200;not null" json:"title"`
	Description string    `gorm:"type:text;not null" json:"description"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Why) TableName() string {
	return "whys"
}

// Pulse is an anonymous reply to a Why. No author is recorded.
type Pulse struct {
	ID        int64     `gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	WhyID     int64     `gorm:"not null;index:idx_pulses_why_created,priority:1" json:"why_id,string"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"index:idx_pulses_why_created,priority:2" json:"created_at"`
}

// TableName specifies the table name for GORM
func (Pulse) TableName() string {
	return "pulses"
}

// WhyView is a Why enriched with its author and reply count.
type WhyView struct {
	ID          int64       `json:"id,string"`
	Author      UserSummary `json:"author"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	PulseCount  int         `json:"pulse_count"`
	CreatedAt   time.Time   `json:"created_at"`
}
