package server

import (
	"pulse/internal/notifications"

	"github.com/gofiber/fiber/v2"
)

type sendMessageRequest struct {
	ReceiverID string `json:"receiverId" validate:"required,numeric"`
	Content    string `json:"content" validate:"required"`
}

type markReadRequest struct {
	UserID string `json:"userId" validate:"required,numeric"`
}

// GetConversations handles GET /api/messages/conversations
func (s *Server) GetConversations(c *fiber.Ctx) error {
	convos, err := s.messageService.ListConversations(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(convos)
}

// GetMessages handles GET /api/messages?userId=
func (s *Server) GetMessages(c *fiber.Ctx) error {
	otherID, err := parseIDString(c, c.Query("userId"), "user ID")
	if err != nil {
		return nil
	}

	msgs, err := s.messageService.GetMessages(c.UserContext(), currentUserID(c), otherID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(msgs)
}

// SendMessage handles POST /api/messages
func (s *Server) SendMessage(c *fiber.Ctx) error {
	var req sendMessageRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	receiverID, err := parseIDString(c, req.ReceiverID, "receiver ID")
	if err != nil {
		return nil
	}

	msg, err := s.messageService.SendMessage(c.UserContext(), currentUserID(c), receiverID, req.Content)
	if err != nil {
		return respondError(c, err)
	}
	s.notifier.Notify(c.UserContext(), receiverID, notifications.Event{
		Type:      notifications.EventNewMessage,
		ActorID:   msg.Sender.ID,
		SubjectID: msg.ID,
		Data:      msg,
	})
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// MarkMessagesRead handles POST /api/messages/read
func (s *Server) MarkMessagesRead(c *fiber.Ctx) error {
	var req markReadRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	otherID, err := parseIDString(c, req.UserID, "user ID")
	if err != nil {
		return nil
	}

	updated, err := s.messageService.MarkRead(c.UserContext(), currentUserID(c), otherID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"updated": updated})
}
