package service

import (
	"context"

	"pulse/internal/featureflags"
	"pulse/internal/idgen"
	"pulse/internal/models"
	"pulse/internal/observability"
	"pulse/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const (
	DefaultFeedLimit = 10
	MaxFeedLimit     = 100
)

// FeedOptions configures page sizes.
type FeedOptions struct {
	DefaultLimit int
	MaxLimit     int
}

// FeedQuery selects one page of a feed.
type FeedQuery struct {
	ViewerID int64
	// Cursor is the ID of the last post of the previous page. Malformed
	// values and IDs of posts that no longer exist yield the first page.
	Cursor string
	Limit  int
}

// FeedPage is one page of posts, newest first.
type FeedPage struct {
	Posts      []*models.PostView `json:"posts"`
	NextCursor *string            `json:"nextCursor"`
	HasMore    bool               `json:"hasMore"`
}

// FeedService assembles keyset-paginated feeds.
type FeedService struct {
	postRepo repository.PostRepository
	userRepo repository.UserRepository
	loader   summaryLoader
	opts     FeedOptions
}

// NewFeedService returns a new FeedService. Zero options use the defaults.
func NewFeedService(postRepo repository.PostRepository, userRepo repository.UserRepository, flags *featureflags.Manager, opts FeedOptions) *FeedService {
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = MaxFeedLimit
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = DefaultFeedLimit
	}
	opts.DefaultLimit = min(opts.DefaultLimit, opts.MaxLimit)
	return &FeedService{
		postRepo: postRepo,
		userRepo: userRepo,
		loader:   summaryLoader{userRepo: userRepo, flags: flags},
		opts:     opts,
	}
}

// GetFeed returns the viewer's own posts and posts by users the viewer
// follows, ordered by creation time then ID, both descending.
func (s *FeedService) GetFeed(ctx context.Context, q FeedQuery) (*FeedPage, error) {
	span, ctx := observability.NewSpan(ctx, "FeedService.GetFeed", attribute.Int64("viewer.id", q.ViewerID))
	defer span.End()

	viewer, err := s.userRepo.GetByID(ctx, q.ViewerID)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	visible := make([]int64, 0, len(viewer.Following)+1)
	visible = append(visible, viewer.ID)
	visible = append(visible, viewer.Following...)

	page, err := s.page(ctx, q.ViewerID, visible, q.Cursor, q.Limit)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	span.AddAttributes(attribute.Int("feed.size", len(page.Posts)), attribute.Bool("feed.has_more", page.HasMore))
	return page, nil
}

// GetAuthorFeed pages through one author's posts.
func (s *FeedService) GetAuthorFeed(ctx context.Context, viewerID, authorID int64, cursor string, limit int) (*FeedPage, error) {
	if _, err := s.userRepo.GetByID(ctx, authorID); err != nil {
		return nil, err
	}
	return s.page(ctx, viewerID, []int64{authorID}, cursor, limit)
}

func (s *FeedService) page(ctx context.Context, viewerID int64, authors []int64, cursor string, limit int) (*FeedPage, error) {
	limit = clampLimit(limit, s.opts.DefaultLimit, s.opts.MaxLimit)

	before, err := s.resolveCursor(ctx, cursor)
	if err != nil {
		return nil, err
	}

	posts, err := s.postRepo.ListVisible(ctx, authors, before, limit+1)
	if err != nil {
		return nil, err
	}

	page := &FeedPage{}
	if len(posts) > limit {
		posts = posts[:limit]
		page.HasMore = true
		next := idgen.Format(posts[len(posts)-1].ID)
		page.NextCursor = &next
	}

	page.Posts, err = s.loader.postViews(ctx, viewerID, posts)
	if err != nil {
		return nil, err
	}
	observability.FeedPageSize.Observe(float64(len(page.Posts)))
	return page, nil
}

// resolveCursor returns the keyset boundary for cursor, or 0 for the first page.
func (s *FeedService) resolveCursor(ctx context.Context, cursor string) (int64, error) {
	if cursor == "" {
		return 0, nil
	}
	id, err := idgen.Parse(cursor)
	if err != nil {
		return 0, nil
	}
	if _, err := s.postRepo.GetByID(ctx, id); err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return id, nil
}
