package service

import (
	"context"
	"log/slog"

	"pulse/internal/featureflags"
	"pulse/internal/middleware"
	"pulse/internal/models"
	"pulse/internal/observability"
	"pulse/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// PostService creates posts and applies the like toggle.
type PostService struct {
	postRepo repository.PostRepository
	userRepo repository.UserRepository
	loader   summaryLoader
}

// LikeResult is the outcome of a like toggle.
type LikeResult struct {
	Liked      bool `json:"liked"`
	LikesCount int  `json:"likesCount"`
}

// NewPostService returns a new PostService.
func NewPostService(postRepo repository.PostRepository, userRepo repository.UserRepository, flags *featureflags.Manager) *PostService {
	return &PostService{
		postRepo: postRepo,
		userRepo: userRepo,
		loader:   summaryLoader{userRepo: userRepo, flags: flags},
	}
}

// CreatePost stores a new post by authorID.
func (s *PostService) CreatePost(ctx context.Context, authorID int64, content string) (*models.PostView, error) {
	content, err := normalizeContent(content, "Content")
	if err != nil {
		return nil, err
	}
	if _, err := s.userRepo.GetByID(ctx, authorID); err != nil {
		return nil, err
	}

	post := &models.Post{AuthorID: authorID, Content: content}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	middleware.Logger.DebugContext(ctx, "post created", slog.Int64("post_id", post.ID))

	views, err := s.loader.postViews(ctx, authorID, []*models.Post{post})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// GetPost returns one enriched post.
func (s *PostService) GetPost(ctx context.Context, viewerID, postID int64) (*models.PostView, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	views, err := s.loader.postViews(ctx, viewerID, []*models.Post{post})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// ToggleLike flips userID's like on postID. Concurrent toggles on the same
// post are serialized by the store, so none is lost.
func (s *PostService) ToggleLike(ctx context.Context, postID, userID int64) (*LikeResult, error) {
	span, ctx := observability.NewSpan(ctx, "PostService.ToggleLike",
		attribute.Int64("post.id", postID),
		attribute.Int64("user.id", userID),
	)
	defer span.End()

	post, liked, err := s.postRepo.ToggleLike(ctx, postID, userID)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	observability.LikeToggles.WithLabelValues(observability.ToggleAction(liked, "like", "unlike")).Inc()
	return &LikeResult{Liked: liked, LikesCount: len(post.Likes)}, nil
}
