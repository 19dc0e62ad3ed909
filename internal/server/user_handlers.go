package server

import (
	"strings"

	"pulse/internal/models"
	"pulse/internal/notifications"

	"github.com/gofiber/fiber/v2"
)

type followRequest struct {
	UserID string `json:"userId" validate:"required,numeric"`
}

type followResponse struct {
	Following bool                  `json:"following"`
	User      *models.PublicProfile `json:"user"`
	Warning   string                `json:"warning,omitempty"`
}

// Follow handles POST /api/follow. The call toggles: following a user the
// actor already follows unfollows them.
func (s *Server) Follow(c *fiber.Ctx) error {
	var req followRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	targetID, err := parseIDString(c, req.UserID, "user ID")
	if err != nil {
		return nil
	}

	res, err := s.graphService.Follow(c.UserContext(), currentUserID(c), targetID)
	if err != nil {
		return respondError(c, err)
	}

	if res.Following {
		s.notifier.Notify(c.UserContext(), targetID, notifications.Event{
			Type:    notifications.EventNewFollower,
			ActorID: currentUserID(c),
		})
	}

	resp := followResponse{Following: res.Following, User: res.Profile}
	if res.Warning != nil {
		resp.Warning = res.Warning.Message
	}
	return c.JSON(resp)
}

// GetSuggestions handles GET /api/users/suggestions?limit=
func (s *Server) GetSuggestions(c *fiber.Ctx) error {
	users, err := s.graphService.Suggestions(c.UserContext(), currentUserID(c), c.QueryInt("limit", 0))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(users)
}

// SearchUsers handles GET /api/users/search?q=
func (s *Server) SearchUsers(c *fiber.Ctx) error {
	users, err := s.graphService.SearchUsers(c.UserContext(), currentUserID(c), c.Query("q"), c.QueryInt("limit", 0))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(users)
}

// GetUserProfile handles GET /api/users/:username
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	username := strings.TrimSpace(c.Params("username"))
	profile, err := s.graphService.GetProfile(c.UserContext(), currentUserID(c), username)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(profile)
}

// GetNotifications handles GET /api/notifications
func (s *Server) GetNotifications(c *fiber.Ctx) error {
	unread, err := s.messageService.UnreadCount(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"unreadMessages": unread})
}
