package service

import (
	"context"
	"log/slog"
	"sort"

	"pulse/internal/featureflags"
	"pulse/internal/grouping"
	"pulse/internal/middleware"
	"pulse/internal/models"
	"pulse/internal/repository"
)

// MessageService sends direct messages and aggregates conversations.
type MessageService struct {
	messageRepo repository.MessageRepository
	userRepo    repository.UserRepository
	loader      summaryLoader
}

// NewMessageService returns a new MessageService.
func NewMessageService(messageRepo repository.MessageRepository, userRepo repository.UserRepository, flags *featureflags.Manager) *MessageService {
	return &MessageService{
		messageRepo: messageRepo,
		userRepo:    userRepo,
		loader:      summaryLoader{userRepo: userRepo, flags: flags},
	}
}

type conversationAcc struct {
	counterparty int64
	last         *models.Message
	unread       int
}

// ListConversations returns one summary per counterparty, most recent first.
func (s *MessageService) ListConversations(ctx context.Context, viewerID int64) ([]*models.ConversationSummary, error) {
	msgs, err := s.messageRepo.ListForUser(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	groups := grouping.GroupBy(msgs,
		func(m *models.Message) int64 { return m.Counterparty(viewerID) },
		func(acc conversationAcc, m *models.Message, first bool) conversationAcc {
			if first {
				acc.counterparty = m.Counterparty(viewerID)
				acc.last = m
			}
			if !m.Read && m.ReceiverID == viewerID {
				acc.unread++
			}
			return acc
		},
	)

	summaries, err := s.loader.load(ctx, viewerID, groups.Keys())
	if err != nil {
		return nil, err
	}

	out := make([]*models.ConversationSummary, 0, groups.Len())
	for _, acc := range groups.Values() {
		out = append(out, &models.ConversationSummary{
			User: summaryOrPlaceholder(summaries, acc.counterparty),
			LastMessage: models.LastMessage{
				ID:        acc.last.ID,
				SenderID:  acc.last.SenderID,
				Content:   acc.last.Content,
				Read:      acc.last.Read,
				CreatedAt: acc.last.CreatedAt,
			},
			UnreadCount: acc.unread,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastMessage.CreatedAt.After(out[j].LastMessage.CreatedAt)
	})
	return out, nil
}

// SendMessage stores a message from senderID to receiverID.
func (s *MessageService) SendMessage(ctx context.Context, senderID, receiverID int64, content string) (*models.MessageView, error) {
	if senderID == receiverID {
		return nil, models.NewInvalidOperationError("Cannot message yourself")
	}
	content, err := normalizeContent(content, "Message")
	if err != nil {
		return nil, err
	}

	users, err := s.userRepo.GetByIDs(ctx, []int64{senderID, receiverID})
	if err != nil {
		return nil, err
	}
	if users[receiverID] == nil {
		return nil, models.NewNotFoundError("User", receiverID)
	}
	if users[senderID] == nil {
		return nil, models.NewNotFoundError("User", senderID)
	}

	msg := &models.Message{SenderID: senderID, ReceiverID: receiverID, Content: content}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, err
	}
	middleware.Logger.DebugContext(ctx, "message sent", slog.Int64("message_id", msg.ID), slog.Int64("receiver_id", receiverID))

	return &models.MessageView{
		ID:        msg.ID,
		Sender:    users[senderID].Summary(),
		Receiver:  users[receiverID].Summary(),
		Content:   msg.Content,
		Read:      msg.Read,
		CreatedAt: msg.CreatedAt,
	}, nil
}

// MarkRead marks everything counterpartyID sent to viewerID as read and
// returns how many messages changed.
func (s *MessageService) MarkRead(ctx context.Context, viewerID, counterpartyID int64) (int64, error) {
	return s.messageRepo.MarkRead(ctx, counterpartyID, viewerID)
}

// GetMessages returns the exchange between the viewer and counterpartyID, oldest first.
func (s *MessageService) GetMessages(ctx context.Context, viewerID, counterpartyID int64) ([]*models.MessageView, error) {
	msgs, err := s.messageRepo.ListBetween(ctx, viewerID, counterpartyID)
	if err != nil {
		return nil, err
	}
	summaries, err := s.loader.load(ctx, viewerID, []int64{viewerID, counterpartyID})
	if err != nil {
		return nil, err
	}

	out := make([]*models.MessageView, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, &models.MessageView{
			ID:        m.ID,
			Sender:    summaryOrPlaceholder(summaries, m.SenderID),
			Receiver:  summaryOrPlaceholder(summaries, m.ReceiverID),
			Content:   m.Content,
			Read:      m.Read,
			CreatedAt: m.CreatedAt,
		})
	}
	return out, nil
}

// UnreadCount returns how many received messages the viewer has not read.
func (s *MessageService) UnreadCount(ctx context.Context, viewerID int64) (int64, error) {
	return s.messageRepo.CountUnread(ctx, viewerID)
}
