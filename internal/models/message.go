// Package models contains data structures for the application's domain models.
package models

import "time"

// Message is a direct message. Only Read ever changes, and only from false to true.
type Message struct {
	ID         int64     `gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	SenderID   int64     `gorm:"not null;index:idx_messages_pair,priority:1" json:"sender_id,string"`
	ReceiverID int64     `gorm:"not null;index:idx_messages_pair,priority:2;index:idx_messages_unread,priority:1" json:"receiver_id,string"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	Read       bool      `gorm:"not null;default:false;index:idx_messages_unread,priority:2" json:"read"`
	CreatedAt  time.Time `gorm:"index:idx_messages_pair,priority:3" json:"created_at"`
}

// TableName specifies the table name for GORM
func (Message) TableName() string {
	return "messages"
}

// Counterparty returns the participant other than viewerID.
func (m *Message) Counterparty(viewerID int64) int64 {
	if m.SenderID == viewerID {
		return m.ReceiverID
	}
	return m.SenderID
}

// MessageView is a message enriched with both participants.
type MessageView struct {
	ID        int64       `json:"id,string"`
	Sender    UserSummary `json:"sender"`
	Receiver  UserSummary `json:"receiver"`
	Content   string      `json:"content"`
	Read      bool        `json:"read"`
	CreatedAt time.Time   `json:"created_at"`
}

// LastMessage is the preview carried by a conversation summary.
type LastMessage struct {
	ID        int64     `json:"id,string"`
	SenderID  int64     `json:"sender_id,string"`
	Content   string    `json:"content"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// ConversationSummary is derived on every read: one per counterparty, never persisted.
type ConversationSummary struct {
	User        UserSummary `json:"user"`
	LastMessage LastMessage `json:"last_message"`
	UnreadCount int         `json:"unread_count"`
}
