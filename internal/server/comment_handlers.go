package server

import (
	"pulse/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createCommentRequest struct {
	PostID          string `json:"postId" validate:"required,numeric"`
	Content         string `json:"content" validate:"required"`
	ParentCommentID string `json:"parentCommentId" validate:"omitempty,numeric"`
}

// GetComments handles GET /api/comments?postId=
func (s *Server) GetComments(c *fiber.Ctx) error {
	postID, err := parseIDString(c, c.Query("postId"), "post ID")
	if err != nil {
		return nil
	}

	thread, err := s.commentService.GetThread(c.UserContext(), currentUserID(c), postID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(thread)
}

// CreateComment handles POST /api/comments
func (s *Server) CreateComment(c *fiber.Ctx) error {
	var req createCommentRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	postID, err := parseIDString(c, req.PostID, "post ID")
	if err != nil {
		return nil
	}

	in := service.AddCommentInput{PostID: postID, AuthorID: currentUserID(c), Content: req.Content}
	if req.ParentCommentID != "" {
		parentID, err := parseIDString(c, req.ParentCommentID, "parent comment ID")
		if err != nil {
			return nil
		}
		in.ParentCommentID = &parentID
	}

	comment, err := s.commentService.AddComment(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}
