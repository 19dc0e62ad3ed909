package repository

import (
	"context"

	"pulse/internal/idgen"
	"pulse/internal/models"
	"pulse/internal/observability"

	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	// ListVisible returns up to limit posts by authorIDs, newest first. A
	// positive beforeID restricts the range to posts with a smaller ID.
	ListVisible(ctx context.Context, authorIDs []int64, beforeID int64, limit int) ([]*models.Post, error)
	ToggleLike(ctx context.Context, postID, userID int64) (*models.Post, bool, error)
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	defer observability.TrackQuery("create", "posts")()

	if post.ID == 0 {
		post.ID = idgen.Next()
	}
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return models.NewStoreUnavailableError(err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	defer observability.TrackQuery("get_by_id", "posts")()

	var post models.Post
	if err := readDB(r.db).WithContext(ctx).First(&post, id).Error; err != nil {
		return nil, mapError(err, "Post", id)
	}
	return &post, nil
}

func (r *postRepository) ListVisible(ctx context.Context, authorIDs []int64, beforeID int64, limit int) ([]*models.Post, error) {
	defer observability.TrackQuery("list_visible", "posts")()

	posts := make([]*models.Post, 0, limit)
	if len(authorIDs) == 0 || limit <= 0 {
		return posts, nil
	}

	q := readDB(r.db).WithContext(ctx).Where("author_id IN ?", authorIDs)
	if beforeID > 0 {
		q = q.Where("id < ?", beforeID)
	}
	if err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&posts).Error; err != nil {
		return nil, mapError(err, "Post", nil)
	}
	return posts, nil
}

// ToggleLike flips userID's membership in the post's likes under a row lock
// and reports whether the user likes the post afterwards.
func (r *postRepository) ToggleLike(ctx context.Context, postID, userID int64) (*models.Post, bool, error) {
	defer observability.TrackQuery("toggle_like", "posts")()

	var post models.Post
	var liked bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&post, postID).Error; err != nil {
			return err
		}
		post.Likes, liked = post.Likes.Toggle(userID)
		return tx.Model(&post).Select("Likes", "UpdatedAt").Updates(&post).Error
	})
	if err != nil {
		return nil, false, mapError(err, "Post", postID)
	}
	return &post, liked, nil
}
