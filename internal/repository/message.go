package repository

import (
	"context"

	"pulse/internal/idgen"
	"pulse/internal/models"
	"pulse/internal/observability"

	"gorm.io/gorm"
)

// MessageRepository defines persistence operations for direct messages.
type MessageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	// ListForUser returns every message the user sent or received, newest first.
	ListForUser(ctx context.Context, userID int64) ([]*models.Message, error)
	// ListBetween returns the exchange between two users, oldest first.
	ListBetween(ctx context.Context, userA, userB int64) ([]*models.Message, error)
	MarkRead(ctx context.Context, senderID, receiverID int64) (int64, error)
	CountUnread(ctx context.Context, receiverID int64) (int64, error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new MessageRepository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, msg *models.Message) error {
	defer observability.TrackQuery("create", "messages")()

	if msg.ID == 0 {
		msg.ID = idgen.Next()
	}
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return models.NewStoreUnavailableError(err)
	}
	return nil
}

func (r *messageRepository) ListForUser(ctx context.Context, userID int64) ([]*models.Message, error) {
	defer observability.TrackQuery("list_for_user", "messages")()

	var msgs []*models.Message
	err := readDB(r.db).WithContext(ctx).
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&msgs).Error
	if err != nil {
		return nil, mapError(err, "Message", nil)
	}
	return msgs, nil
}

func (r *messageRepository) ListBetween(ctx context.Context, userA, userB int64) ([]*models.Message, error) {
	defer observability.TrackQuery("list_between", "messages")()

	var msgs []*models.Message
	err := readDB(r.db).WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", userA, userB, userB, userA).
		Order("created_at ASC").
		Order("id ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, mapError(err, "Message", nil)
	}
	return msgs, nil
}

// MarkRead flags every unread message from sender to receiver and returns how many changed.
func (r *messageRepository) MarkRead(ctx context.Context, senderID, receiverID int64) (int64, error) {
	defer observability.TrackQuery("mark_read", "messages")()

	res := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("sender_id = ? AND receiver_id = ? AND read = ?", senderID, receiverID, false).
		Update("read", true)
	if res.Error != nil {
		return 0, models.NewStoreUnavailableError(res.Error)
	}
	return res.RowsAffected, nil
}

func (r *messageRepository) CountUnread(ctx context.Context, receiverID int64) (int64, error) {
	defer observability.TrackQuery("count_unread", "messages")()

	var n int64
	err := readDB(r.db).WithContext(ctx).
		Model(&models.Message{}).
		Where("receiver_id = ? AND read = ?", receiverID, false).
		Count(&n).Error
	if err != nil {
		return 0, models.NewStoreUnavailableError(err)
	}
	return n, nil
}
