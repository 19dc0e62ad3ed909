package service

import (
	"context"
	"sort"

	"pulse/internal/featureflags"
	"pulse/internal/grouping"
	"pulse/internal/models"
	"pulse/internal/repository"
)

// CommentService builds two-level comment threads.
type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
	userRepo    repository.UserRepository
	loader      summaryLoader
}

// AddCommentInput is a new comment; ParentCommentID nil makes it top-level.
type AddCommentInput struct {
	PostID          int64
	AuthorID        int64
	Content         string
	ParentCommentID *int64
}

// NewCommentService returns a new CommentService.
func NewCommentService(
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	flags *featureflags.Manager,
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
		userRepo:    userRepo,
		loader:      summaryLoader{userRepo: userRepo, flags: flags},
	}
}

// GetThread returns the post's top-level comments newest first, each with its
// replies oldest first. Replies whose parent is not a top-level comment of
// the post are left out.
func (s *CommentService) GetThread(ctx context.Context, viewerID, postID int64) ([]*models.CommentNode, error) {
	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		return nil, err
	}
	comments, err := s.commentRepo.ListByPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	authorIDs := make([]int64, 0, len(comments))
	for _, c := range comments {
		authorIDs = append(authorIDs, c.AuthorID)
	}
	summaries, err := s.loader.load(ctx, viewerID, authorIDs)
	if err != nil {
		return nil, err
	}

	return buildThread(comments, summaries), nil
}

// buildThread expects comments oldest first.
func buildThread(comments []*models.Comment, summaries map[int64]models.UserSummary) []*models.CommentNode {
	// Group under the parent's ID; top-level comments group under their own.
	groups := grouping.GroupBy(comments,
		func(c *models.Comment) int64 {
			if c.ParentCommentID != nil {
				return *c.ParentCommentID
			}
			return c.ID
		},
		func(acc []*models.Comment, c *models.Comment, _ bool) []*models.Comment {
			return append(acc, c)
		},
	)

	roots := make([]*models.CommentNode, 0)
	for _, c := range comments {
		if c.IsReply() {
			continue
		}
		node := newCommentNode(c, summaries)
		members, _ := groups.Get(c.ID)
		for _, m := range members {
			if m.IsReply() {
				node.Replies = append(node.Replies, newCommentNode(m, summaries))
			}
		}
		roots = append(roots, node)
	}

	sort.SliceStable(roots, func(i, j int) bool {
		if !roots[i].CreatedAt.Equal(roots[j].CreatedAt) {
			return roots[i].CreatedAt.After(roots[j].CreatedAt)
		}
		return roots[i].ID > roots[j].ID
	})
	return roots
}

func newCommentNode(c *models.Comment, summaries map[int64]models.UserSummary) *models.CommentNode {
	return &models.CommentNode{
		ID:              c.ID,
		PostID:          c.PostID,
		Author:          summaryOrPlaceholder(summaries, c.AuthorID),
		Content:         c.Content,
		ParentCommentID: c.ParentCommentID,
		Replies:         []*models.CommentNode{},
		CreatedAt:       c.CreatedAt,
	}
}

// AddComment stores a comment or a reply to a top-level comment of the same post.
func (s *CommentService) AddComment(ctx context.Context, in AddCommentInput) (*models.CommentNode, error) {
	content, err := normalizeContent(in.Content, "Content")
	if err != nil {
		return nil, err
	}
	if _, err := s.postRepo.GetByID(ctx, in.PostID); err != nil {
		return nil, err
	}
	author, err := s.userRepo.GetByID(ctx, in.AuthorID)
	if err != nil {
		return nil, err
	}

	if in.ParentCommentID != nil {
		parent, err := s.commentRepo.GetByID(ctx, *in.ParentCommentID)
		if err != nil {
			return nil, err
		}
		if parent.PostID != in.PostID {
			return nil, models.NewValidationError("Parent comment belongs to another post")
		}
		if parent.IsReply() {
			return nil, models.NewValidationError("Replies cannot be nested")
		}
	}

	comment := &models.Comment{
		PostID:          in.PostID,
		AuthorID:        in.AuthorID,
		Content:         content,
		ParentCommentID: in.ParentCommentID,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}

	return newCommentNode(comment, map[int64]models.UserSummary{author.ID: author.Summary()}), nil
}
