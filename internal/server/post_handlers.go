package server

import (
	"pulse/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createPostRequest struct {
	Content string `json:"content" validate:"required"`
}

type likeRequest struct {
	PostID string `json:"postId" validate:"required,numeric"`
}

// CreatePost handles POST /api/posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req createPostRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	post, err := s.postService.CreatePost(c.UserContext(), currentUserID(c), req.Content)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetPost handles GET /api/posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.GetPost(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// ToggleLike handles POST /api/like
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	var req likeRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	postID, err := parseIDString(c, req.PostID, "post ID")
	if err != nil {
		return nil
	}

	res, err := s.postService.ToggleLike(c.UserContext(), postID, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// GetFeed handles GET /api/feed?cursor=&limit=
func (s *Server) GetFeed(c *fiber.Ctx) error {
	page, err := s.feedService.GetFeed(c.UserContext(), service.FeedQuery{
		ViewerID: currentUserID(c),
		Cursor:   c.Query("cursor"),
		Limit:    c.QueryInt("limit", 0),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// GetUserPosts handles GET /api/users/:id/posts?cursor=&limit=
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	authorID, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	page, err := s.feedService.GetAuthorFeed(c.UserContext(), currentUserID(c), authorID, c.Query("cursor"), c.QueryInt("limit", 0))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}
