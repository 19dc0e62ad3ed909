package service

import (
	"context"

	"pulse/internal/featureflags"
	"pulse/internal/models"
	"pulse/internal/repository"
)

// summaryLoader resolves user summaries in one batch.
type summaryLoader struct {
	userRepo repository.UserRepository
	flags    *featureflags.Manager
}

func (l summaryLoader) load(ctx context.Context, viewerID int64, ids []int64) (map[int64]models.UserSummary, error) {
	return l.userRepo.GetSummaries(ctx, ids, l.flags.Enabled(featureflags.FeedSummaryCache, viewerID))
}

// summaryOrPlaceholder keeps results renderable when a referenced user is gone.
func summaryOrPlaceholder(summaries map[int64]models.UserSummary, id int64) models.UserSummary {
	if s, ok := summaries[id]; ok {
		return s
	}
	return models.UserSummary{ID: id, Username: "[deleted]"}
}

// postViews enriches posts with author and liker summaries from one batch lookup.
func (l summaryLoader) postViews(ctx context.Context, viewerID int64, posts []*models.Post) ([]*models.PostView, error) {
	ids := make([]int64, 0, len(posts)*2)
	for _, p := range posts {
		ids = append(ids, p.AuthorID)
		ids = append(ids, p.Likes...)
	}
	summaries, err := l.load(ctx, viewerID, ids)
	if err != nil {
		return nil, err
	}

	views := make([]*models.PostView, 0, len(posts))
	for _, p := range posts {
		likes := make([]models.UserSummary, 0, len(p.Likes))
		for _, id := range p.Likes {
			if s, ok := summaries[id]; ok {
				likes = append(likes, s)
			}
		}
		views = append(views, &models.PostView{
			ID:         p.ID,
			Author:     summaryOrPlaceholder(summaries, p.AuthorID),
			Content:    p.Content,
			Likes:      likes,
			LikesCount: len(p.Likes),
			Liked:      viewerID != 0 && p.Likes.Contains(viewerID),
			CreatedAt:  p.CreatedAt,
		})
	}
	return views, nil
}
